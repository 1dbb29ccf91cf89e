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

package feats

import (
	"fmt"
)

// WindowSize is the fixed peptide window length the whole pipeline
// operates on. Longer peptides are encoded as multiple sliding windows.
const WindowSize = 9

// ErrDimensionMismatch is returned when paired arrays or sequences
// violate a shape contract.
var ErrDimensionMismatch = fmt.Errorf("dimension mismatch")

// Encoder converts (peptide window, MHC pseudosequence) pairs into
// pair-index vectors. The MHC pseudosequence length is fixed for the
// lifetime of an encoder so that all emitted vectors conform.
type Encoder struct {
	alphabet *Alphabet
	mhcLen   int
}

func NewEncoder(alphabet *Alphabet, mhcLen int) (*Encoder, error) {
	if mhcLen <= 0 {
		return nil, fmt.Errorf("%w: invalid MHC pseudosequence length %d", ErrDimensionMismatch, mhcLen)
	}
	return &Encoder{alphabet: alphabet, mhcLen: mhcLen}, nil
}

// VectorLen returns the length of every index vector this encoder emits.
func (enc *Encoder) VectorLen() int {
	return WindowSize * enc.mhcLen
}

// EncodeWindow encodes a single 9-residue peptide window against an MHC
// pseudosequence. For each peptide position i and MHC position j (MHC as
// the inner loop) it emits PairIndex(peptide[i], mhc[j]).
func (enc *Encoder) EncodeWindow(window, mhcSeq string) ([]int, error) {
	if len(window) != WindowSize {
		return nil, fmt.Errorf(
			"%w: peptide window must have %d residues, got %d", ErrDimensionMismatch, WindowSize, len(window))
	}
	if len(mhcSeq) != enc.mhcLen {
		return nil, fmt.Errorf(
			"%w: MHC pseudosequence must have %d residues, got %d", ErrDimensionMismatch, enc.mhcLen, len(mhcSeq))
	}
	vec := make([]int, 0, enc.VectorLen())
	for i := 0; i < WindowSize; i++ {
		for j := 0; j < enc.mhcLen; j++ {
			idx, err := enc.alphabet.PairIndex(window[i], mhcSeq[j])
			if err != nil {
				return nil, err
			}
			vec = append(vec, idx)
		}
	}
	return vec, nil
}

// EncodePeptide slides a 9-residue window over the whole peptide and
// encodes each valid offset. Every window carries the weight
// 1/(number of windows) so that long peptides do not dominate the loss.
func (enc *Encoder) EncodePeptide(peptide, mhcSeq string) (vectors [][]int, weight float64, err error) {
	numWindows := len(peptide) - WindowSize + 1
	if numWindows < 1 {
		return nil, 0, fmt.Errorf(
			"%w: peptide must have at least %d residues, got %d", ErrDimensionMismatch, WindowSize, len(peptide))
	}
	vectors = make([][]int, 0, numWindows)
	for start := 0; start < numWindows; start++ {
		vec, err := enc.EncodeWindow(peptide[start:start+WindowSize], mhcSeq)
		if err != nil {
			return nil, 0, err
		}
		vectors = append(vectors, vec)
	}
	return vectors, 1.0 / float64(numWindows), nil
}
