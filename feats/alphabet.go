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

// AminoAcidLetters contains the 20 standard amino acid one-letter codes
// in their canonical (sorted) order. The order is load-bearing: pair
// indices and therefore any serialized coefficient vector depend on it.
const AminoAcidLetters = "ACDEFGHIKLMNPQRSTVWY"

// NumAminoAcids is the alphabet size.
const NumAminoAcids = len(AminoAcidLetters)

// NumAminoAcidPairs is the number of ordered (peptide letter, MHC letter)
// combinations, i.e. the dimension of any pairwise coefficient vector.
const NumAminoAcidPairs = NumAminoAcids * NumAminoAcids

// ErrUnknownSymbol is returned when a sequence contains a character
// outside the 20-letter amino acid alphabet.
var ErrUnknownSymbol = fmt.Errorf("unknown amino acid symbol")

// Alphabet provides a stable bijection between ordered amino-acid letter
// pairs and integer indices in [0, 400). It is built once at startup and
// must not be mutated afterwards; all encoders, materializers and
// re-estimation steps share the same instance.
type Alphabet struct {
	ranks [128]int8
}

// NewAlphabet builds the canonical alphabet.
func NewAlphabet() *Alphabet {
	var a Alphabet
	for i := range a.ranks {
		a.ranks[i] = -1
	}
	for i := 0; i < NumAminoAcids; i++ {
		a.ranks[AminoAcidLetters[i]] = int8(i)
	}
	return &a
}

// Rank returns the position of a letter within the canonical order.
func (a *Alphabet) Rank(c byte) (int, error) {
	if int(c) >= len(a.ranks) || a.ranks[c] < 0 {
		return 0, fmt.Errorf("%w: %q", ErrUnknownSymbol, string(rune(c)))
	}
	return int(a.ranks[c]), nil
}

// PairIndex maps an ordered letter pair (peptide letter, MHC letter) to
// its index in [0, NumAminoAcidPairs).
func (a *Alphabet) PairIndex(pep, mhc byte) (int, error) {
	ri, err := a.Rank(pep)
	if err != nil {
		return 0, err
	}
	rj, err := a.Rank(mhc)
	if err != nil {
		return 0, err
	}
	return ri*NumAminoAcids + rj, nil
}

// IndexToPair is the exact inverse of PairIndex.
func (a *Alphabet) IndexToPair(idx int) (pep, mhc byte, err error) {
	if idx < 0 || idx >= NumAminoAcidPairs {
		return 0, 0, fmt.Errorf("pair index %d out of range [0, %d)", idx, NumAminoAcidPairs)
	}
	return AminoAcidLetters[idx/NumAminoAcids], AminoAcidLetters[idx%NumAminoAcids], nil
}

// PairKey returns the two-letter key ("AC") for a pair index. Reference
// coefficient tables are keyed this way.
func (a *Alphabet) PairKey(idx int) (string, error) {
	pep, mhc, err := a.IndexToPair(idx)
	if err != nil {
		return "", err
	}
	return string([]byte{pep, mhc}), nil
}
