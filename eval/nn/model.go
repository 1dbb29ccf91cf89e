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

// Package nn provides a small feed-forward network as an alternative
// affinity regressor. It fits log-affinities on min-max normalized
// features; it cannot take part in coefficient refinement (no linear
// position weights to extract).
package nn

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	deep "github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultHiddenUnits is the first hidden layer width used when the
	// caller does not configure one.
	DefaultHiddenUnits = 32

	numEpochs    = 400
	learningRate = 0.001
)

// FeatureRange keeps one feature's observed min/max for normalization.
type FeatureRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

type Model struct {
	neuralNet    *deep.Neural
	dataRanges   []FeatureRange
	hiddenLayout []int
}

// NewModel creates an untrained network whose first hidden layer has the
// given width; a second, narrower layer is fixed at 8 units. Zero or
// negative widths fall back to DefaultHiddenUnits.
func NewModel(hiddenUnits int) *Model {
	if hiddenUnits <= 0 {
		hiddenUnits = DefaultHiddenUnits
	}
	return &Model{hiddenLayout: []int{hiddenUnits, 8}}
}

func (m *Model) Fit(x [][]float64, y, w []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("no training data provided")
	}
	numFeatures := len(x[0])

	m.dataRanges = make([]FeatureRange, numFeatures)
	for j := range m.dataRanges {
		m.dataRanges[j] = FeatureRange{Min: math.Inf(1), Max: math.Inf(-1)}
	}
	for _, row := range x {
		if len(row) != numFeatures {
			return fmt.Errorf("inconsistent feature row length %d, expected %d", len(row), numFeatures)
		}
		for j, v := range row {
			if v < m.dataRanges[j].Min {
				m.dataRanges[j].Min = v
			}
			if v > m.dataRanges[j].Max {
				m.dataRanges[j].Max = v
			}
		}
	}

	examples := make(training.Examples, 0, len(x))
	for i, row := range x {
		if y[i] <= 0 {
			return fmt.Errorf("target %d must be positive, got %f", i, y[i])
		}
		input := make([]float64, numFeatures)
		copy(input, row)
		m.normalize(input)
		examples = append(examples, training.Example{
			Input:    input,
			Response: []float64{math.Log(y[i])},
		})
	}

	if len(m.hiddenLayout) == 0 {
		m.hiddenLayout = []int{DefaultHiddenUnits, 8}
	}
	m.neuralNet = deep.NewNeural(&deep.Config{
		Inputs:     numFeatures,
		Layout:     append(append([]int{}, m.hiddenLayout...), 1),
		Activation: deep.ActivationReLU,
		Mode:       deep.ModeRegression,
		Weight:     deep.NewNormal(1.0, 0.0),
		Bias:       true,
	})

	trn, heldout := examples.Split(0.8)
	optimizer := training.NewAdam(learningRate, 0.9, 0.999, 1e-8)
	trainer := training.NewTrainer(optimizer, 0)
	trainer.Train(m.neuralNet, trn, heldout, numEpochs)

	log.Debug().
		Int("dataSize", len(examples)).
		Ints("layout", m.hiddenLayout).
		Msg("trained NN affinity regressor")
	return nil
}

func (m *Model) Predict(x [][]float64) ([]float64, error) {
	if m.neuralNet == nil {
		return nil, fmt.Errorf("NN model has not been fitted")
	}
	out := make([]float64, len(x))
	for i, row := range x {
		input := make([]float64, len(row))
		copy(input, row)
		m.normalize(input)
		pred := m.neuralNet.Predict(input)
		out[i] = math.Exp(pred[0])
	}
	return out, nil
}

func (m *Model) normalize(row []float64) {
	for j := range row {
		lo, hi := m.dataRanges[j].Min, m.dataRanges[j].Max
		if hi == lo {
			row[j] = 0
		} else {
			row[j] = (row[j] - lo) / (hi - lo)
		}
	}
}

// ----------------------

type jsonizedModel struct {
	NeuralNet  *deep.Dump     `json:"neuralNet"`
	DataRanges []FeatureRange `json:"dataRanges"`
}

func (m *Model) SaveToFile(path string) error {
	if m.neuralNet == nil {
		return fmt.Errorf("NN model has not been fitted")
	}
	data, err := json.Marshal(jsonizedModel{
		NeuralNet:  m.neuralNet.Dump(),
		DataRanges: m.dataRanges,
	})
	if err != nil {
		return fmt.Errorf("failed to save NN model to a file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save NN model to a file: %w", err)
	}
	return nil
}

func LoadFromFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load NN model from file %s: %w", path, err)
	}
	var tmp jsonizedModel
	if err := json.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("failed to load NN model from file %s: %w", path, err)
	}
	return &Model{
		neuralNet:  deep.FromDump(tmp.NeuralNet),
		dataRanges: tmp.DataRanges,
	}, nil
}
