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
	"math/rand/v2"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Dataset is the persistent training representation: the sample index
// matrix X, the IC50 target vector Y and the sample weight vector W.
// Rows of X reference amino-acid-pair indices, one entry per
// (peptide position, MHC position) combination.
type Dataset struct {
	X [][]int   `msgpack:"x"`
	Y []float64 `msgpack:"y"`
	W []float64 `msgpack:"w"`
}

// Len returns the number of samples.
func (ds *Dataset) Len() int {
	return len(ds.Y)
}

// NumDims returns the index vector length shared by all samples,
// or 0 for an empty dataset.
func (ds *Dataset) NumDims() int {
	if len(ds.X) == 0 {
		return 0
	}
	return len(ds.X[0])
}

// Add appends one sample.
func (ds *Dataset) Add(idx []int, ic50, weight float64) {
	ds.X = append(ds.X, idx)
	ds.Y = append(ds.Y, ic50)
	ds.W = append(ds.W, weight)
}

// Validate checks the shape and value contracts the training core relies
// on: X/Y/W have matching lengths, all index rows conform, every index is
// a valid pair index, targets are strictly positive (required for the log
// transform) and weights are non-negative.
func (ds *Dataset) Validate() error {
	if len(ds.X) != len(ds.Y) || len(ds.W) != len(ds.Y) {
		return fmt.Errorf(
			"%w: |X| = %d, |Y| = %d, |W| = %d",
			ErrDimensionMismatch, len(ds.X), len(ds.Y), len(ds.W))
	}
	numDims := ds.NumDims()
	for r, row := range ds.X {
		if len(row) != numDims {
			return fmt.Errorf(
				"%w: X row %d has %d entries, expected %d",
				ErrDimensionMismatch, r, len(row), numDims)
		}
		for c, xi := range row {
			if xi < 0 || xi >= NumAminoAcidPairs {
				return fmt.Errorf("%w: X[%d][%d] = %d", ErrIndexOutOfRange, r, c, xi)
			}
		}
	}
	for i, y := range ds.Y {
		if y <= 0 {
			return fmt.Errorf("sample %d: IC50 must be positive, got %f", i, y)
		}
	}
	for i, w := range ds.W {
		if w < 0 {
			return fmt.Errorf("sample %d: weight must be non-negative, got %f", i, w)
		}
	}
	return nil
}

// Shuffle permutes X, Y and W in lockstep.
func (ds *Dataset) Shuffle() {
	rand.Shuffle(ds.Len(), func(i, j int) {
		ds.X[i], ds.X[j] = ds.X[j], ds.X[i]
		ds.Y[i], ds.Y[j] = ds.Y[j], ds.Y[i]
		ds.W[i], ds.W[j] = ds.W[j], ds.W[i]
	})
}

// Slice returns the samples in [start, stop) without copying row data.
func (ds *Dataset) Slice(start, stop int) *Dataset {
	return &Dataset{
		X: ds.X[start:stop],
		Y: ds.Y[start:stop],
		W: ds.W[start:stop],
	}
}

// SplitFold splits the dataset into a test part [start, stop) and the
// complementary training part, mirroring contiguous k-fold CV.
func (ds *Dataset) SplitFold(start, stop int) (train, test *Dataset) {
	n := ds.Len()
	train = &Dataset{
		X: make([][]int, 0, n-(stop-start)),
		Y: make([]float64, 0, n-(stop-start)),
		W: make([]float64, 0, n-(stop-start)),
	}
	train.X = append(append(train.X, ds.X[:start]...), ds.X[stop:]...)
	train.Y = append(append(train.Y, ds.Y[:start]...), ds.Y[stop:]...)
	train.W = append(append(train.W, ds.W[:start]...), ds.W[stop:]...)
	return train, ds.Slice(start, stop)
}

// SaveToFile serializes the dataset artifact using msgpack.
func (ds *Dataset) SaveToFile(path string) error {
	srz, err := msgpack.Marshal(ds)
	if err != nil {
		return fmt.Errorf("failed to serialize dataset: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to save dataset to a file: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(srz); err != nil {
		return fmt.Errorf("failed to save dataset to a file: %w", err)
	}
	log.Info().Str("file", path).Int("samples", ds.Len()).Msg("saved training dataset")
	return nil
}

// LoadDatasetFromFile reads a previously saved artifact and validates it.
func LoadDatasetFromFile(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load dataset from file: %w", err)
	}
	var ds Dataset
	if err := msgpack.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("failed to load dataset from file: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load dataset from file: %w", err)
	}
	log.Info().
		Str("file", path).
		Int("samples", ds.Len()).
		Int("numDims", ds.NumDims()).
		Msg("loaded training dataset")
	return &ds, nil
}
