// Copyright 2025 Tim O'Donnell
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dataimport

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/feats"
)

// BuildDataset encodes cleaned assay records into the training
// representation: one sample per 9-residue window of each epitope, each
// window weighted by 1/(number of windows) and carrying the record's
// IC50. Records whose allele has no known pseudosequence are skipped
// with a warning naming the closest known allele.
func BuildDataset(
	records []AssayRecord,
	seqs *PseudoSequences,
	alphabet *feats.Alphabet,
) (*feats.Dataset, error) {
	encoder, err := feats.NewEncoder(alphabet, seqs.Length())
	if err != nil {
		return nil, err
	}
	ds := &feats.Dataset{}
	numSkipped := 0
	for _, rec := range records {
		mhcSeq, ok := seqs.Lookup(rec.Allele)
		if !ok {
			log.Warn().
				Str("allele", rec.Allele).
				Str("nearestKnown", seqs.Nearest(rec.Allele)).
				Msg("no pseudosequence for allele, skipping record")
			numSkipped++
			continue
		}
		vectors, weight, err := encoder.EncodePeptide(rec.Epitope, mhcSeq)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s/%s: %w", rec.Allele, rec.Epitope, err)
		}
		for _, vec := range vectors {
			ds.Add(vec, rec.IC50, weight)
		}
	}
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	log.Info().
		Int("numRecords", len(records)).
		Int("numSkipped", numSkipped).
		Int("numSamples", ds.Len()).
		Int("numDims", ds.NumDims()).
		Msg("built training dataset")
	return ds, nil
}
