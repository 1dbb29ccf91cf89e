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

// Package lgb wraps a pre-trained LightGBM booster as an inference-only
// affinity predictor. Training happens outside this program; the model
// file is produced by the LightGBM toolchain and assumed to predict
// log-affinities on materialized pairwise features.
package lgb

import (
	"fmt"
	"math"

	"github.com/dmitryikh/leaves"

	"github.com/timodonnell/mhcpred/eval"
)

type Model struct {
	ensemble *leaves.Ensemble
}

// LoadFromFile reads a LightGBM text model file.
func LoadFromFile(path string) (*Model, error) {
	ensemble, err := leaves.LGEnsembleFromFile(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to load LightGBM model from file %s: %w", path, err)
	}
	return &Model{ensemble: ensemble}, nil
}

// Fit always fails: the booster only supports inference.
func (m *Model) Fit(x [][]float64, y, w []float64) error {
	return eval.ErrInferenceOnly
}

func (m *Model) Predict(x [][]float64) ([]float64, error) {
	if m.ensemble == nil {
		return nil, eval.ErrNotFitted
	}
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = math.Exp(m.ensemble.PredictSingle(row, 0))
	}
	return out, nil
}

func (m *Model) GetInfo() string {
	if m.ensemble == nil {
		return "LightGBM model (unloaded)"
	}
	return fmt.Sprintf("LightGBM model, trees: %d", m.ensemble.NEstimators())
}
