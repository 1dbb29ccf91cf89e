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
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/feats"
)

// PseudoSequences maps normalized MHC allele names to the fixed-length
// binding-pocket residues used for pairwise encoding.
type PseudoSequences struct {
	seqs   map[string]string
	length int
}

// NormalizeAllele canonicalizes an allele name the way the binding data
// is cleaned: 'HLA-A*03:01' and 'HLA-A03:01 ' both become 'HLA-A03:01'.
func NormalizeAllele(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, "*", ""))
}

// ReadPseudoSequences loads a CSV table with an Allele and a Residues
// column. All pseudosequences must have the same length - the encoder
// depends on a constant MHC dimension.
func ReadPseudoSequences(path string) (*PseudoSequences, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read MHC pseudosequences: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read MHC pseudosequences: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("MHC pseudosequence table %s is empty", path)
	}
	alleleCol, residuesCol := -1, -1
	for i, name := range rows[0] {
		switch strings.TrimSpace(name) {
		case "Allele":
			alleleCol = i
		case "Residues":
			residuesCol = i
		}
	}
	if alleleCol < 0 || residuesCol < 0 {
		return nil, fmt.Errorf(
			"MHC pseudosequence table %s must have Allele and Residues columns", path)
	}

	ps := &PseudoSequences{seqs: make(map[string]string, len(rows)-1)}
	for rowIdx, row := range rows[1:] {
		allele := NormalizeAllele(row[alleleCol])
		seq := strings.TrimSpace(strings.ToUpper(row[residuesCol]))
		if allele == "" || seq == "" {
			return nil, fmt.Errorf(
				"MHC pseudosequence table %s: row %d is incomplete", path, rowIdx+2)
		}
		if ps.length == 0 {
			ps.length = len(seq)

		} else if len(seq) != ps.length {
			return nil, fmt.Errorf(
				"%w: allele %s has a pseudosequence of %d residues, expected %d",
				feats.ErrDimensionMismatch, allele, len(seq), ps.length)
		}
		ps.seqs[allele] = seq
	}
	log.Info().
		Str("file", path).
		Int("numAlleles", len(ps.seqs)).
		Int("seqLength", ps.length).
		Msg("loaded MHC pseudosequences")
	return ps, nil
}

// Lookup returns the pseudosequence for a normalized allele name.
func (ps *PseudoSequences) Lookup(allele string) (string, bool) {
	seq, ok := ps.seqs[allele]
	return seq, ok
}

// Length returns the shared pseudosequence length.
func (ps *PseudoSequences) Length() int {
	return ps.length
}

// NumAlleles returns the number of known alleles.
func (ps *PseudoSequences) NumAlleles() int {
	return len(ps.seqs)
}

// Nearest returns the known allele closest (by edit distance) to the
// given name, used to hint at probable naming mismatches when a lookup
// fails.
func (ps *PseudoSequences) Nearest(allele string) string {
	best := ""
	bestDist := -1
	for known := range ps.seqs {
		d := levenshtein.ComputeDistance(allele, known)
		if bestDist < 0 || d < bestDist {
			best = known
			bestDist = d
		}
	}
	return best
}
