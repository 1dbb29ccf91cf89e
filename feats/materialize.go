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

// ErrIndexOutOfRange is returned when an index vector references a pair
// index outside [0, NumAminoAcidPairs).
var ErrIndexOutOfRange = fmt.Errorf("pair index out of range")

// Materialize expands an index matrix into a dense feature matrix by
// substitution lookup: out[r][c] = coeffs[idx[r][c]]. It is the forward
// direction of the coefficient transform; Accumulate below is its
// adjoint. Pure function, inputs are left untouched.
func Materialize(idx [][]int, coeffs []float64) ([][]float64, error) {
	if len(coeffs) != NumAminoAcidPairs {
		return nil, fmt.Errorf(
			"%w: coefficient vector must have %d entries, got %d",
			ErrDimensionMismatch, NumAminoAcidPairs, len(coeffs))
	}
	out := make([][]float64, len(idx))
	for r, row := range idx {
		outRow := make([]float64, len(row))
		for c, xi := range row {
			if xi < 0 || xi >= NumAminoAcidPairs {
				return nil, fmt.Errorf("%w: X[%d][%d] = %d", ErrIndexOutOfRange, r, c, xi)
			}
			outRow[c] = coeffs[xi]
		}
		out[r] = outRow
	}
	return out, nil
}

// Accumulate scatter-adds per-position model weights back into the
// 400-dimensional amino-acid-pair space, producing one row per sample:
// out[r][idx[r][c]] += posWeights[c]. This is the transpose relationship
// of Materialize - the materializer reads coefficients by index, the
// accumulator writes contributions by index.
func Accumulate(idx [][]int, posWeights []float64) ([][]float64, error) {
	out := make([][]float64, len(idx))
	for r, row := range idx {
		if len(row) != len(posWeights) {
			return nil, fmt.Errorf(
				"%w: sample %d has %d positions, expected %d",
				ErrDimensionMismatch, r, len(row), len(posWeights))
		}
		outRow := make([]float64, NumAminoAcidPairs)
		for c, xi := range row {
			if xi < 0 || xi >= NumAminoAcidPairs {
				return nil, fmt.Errorf("%w: X[%d][%d] = %d", ErrIndexOutOfRange, r, c, xi)
			}
			outRow[xi] += posWeights[c]
		}
		out[r] = outRow
	}
	return out, nil
}
