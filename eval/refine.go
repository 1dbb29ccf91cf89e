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

package eval

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/feats"
)

// DefaultRefineRounds is the reference number of alternating rounds.
const DefaultRefineRounds = 5

// RefineOptions configures the alternating refinement loop.
type RefineOptions struct {
	// Rounds is the fixed number of (fit, re-estimate) rounds.
	Rounds int

	// Alpha is the ridge regularization strength for both the
	// position-space fit and the coefficient refit.
	Alpha float64

	// Tolerance optionally terminates the loop early once the largest
	// absolute coefficient change between rounds falls below it.
	// Zero disables early stopping (the reference behavior).
	Tolerance float64
}

func (opts RefineOptions) withDefaults() RefineOptions {
	if opts.Rounds <= 0 {
		opts.Rounds = DefaultRefineRounds
	}
	if opts.Alpha <= 0 {
		opts.Alpha = DefaultRidgeAlpha
	}
	return opts
}

// RoundSnapshot captures one completed round: the coefficient vector the
// features were materialized from and the position weights fitted on
// them. Snapshots are immutable; each round hands a fresh one forward.
type RoundSnapshot struct {
	Coeffs          []float64 `json:"coeffs"`
	PositionWeights []float64 `json:"positionWeights"`
	Intercept       float64   `json:"intercept"`
}

// RefinedModel is the trained artifact: the final coefficient vector
// plus the final fitted position-space model.
type RefinedModel struct {
	Coeffs          []float64       `json:"coeffs"`
	PositionWeights []float64       `json:"positionWeights"`
	Intercept       float64         `json:"intercept"`
	Alpha           float64         `json:"alpha"`
	Converged       bool            `json:"converged"`
	Rounds          []RoundSnapshot `json:"-"`
}

// Refine drives the alternating optimization over the two coupled
// parameter blocks: position weights and pairwise coefficients.
// Each round materializes features from the current coefficient vector,
// fits a log-space regression with sample weights, then folds the fitted
// position weights back into a new coefficient vector. Any fit failure
// aborts the loop; nothing is retried.
func Refine(x [][]int, y, w, initCoeffs []float64, opts RefineOptions) (*RefinedModel, error) {
	opts = opts.withDefaults()
	if len(initCoeffs) != feats.NumAminoAcidPairs {
		return nil, fmt.Errorf(
			"%w: initial coefficient vector must have %d entries, got %d",
			feats.ErrDimensionMismatch, feats.NumAminoAcidPairs, len(initCoeffs))
	}

	coeffs := append([]float64(nil), initCoeffs...)
	result := &RefinedModel{Alpha: opts.Alpha}

	for round := 0; round < opts.Rounds; round++ {
		features, err := feats.Materialize(x, coeffs)
		if err != nil {
			return nil, err
		}
		model := NewLogLinear(NewRidge(opts.Alpha))
		if err := model.Fit(features, y, w); err != nil {
			return nil, fmt.Errorf("refinement round %d: %w", round, err)
		}
		snapshot := RoundSnapshot{
			Coeffs:          coeffs,
			PositionWeights: model.Weights(),
			Intercept:       model.Intercept(),
		}
		result.Rounds = append(result.Rounds, snapshot)
		result.Coeffs = snapshot.Coeffs
		result.PositionWeights = snapshot.PositionWeights
		result.Intercept = snapshot.Intercept

		if round == opts.Rounds-1 {
			break
		}
		next, err := ReestimateCoefficients(x, snapshot.PositionWeights, y, opts.Alpha)
		if err != nil {
			return nil, fmt.Errorf("refinement round %d: %w", round, err)
		}
		delta := maxAbsDiff(coeffs, next)
		log.Debug().
			Int("round", round).
			Float64("coeffDelta", delta).
			Msg("completed refinement round")
		coeffs = next
		if opts.Tolerance > 0 && delta < opts.Tolerance {
			result.Converged = true
			log.Info().
				Int("round", round).
				Float64("coeffDelta", delta).
				Msg("refinement converged early")
			break
		}
	}
	return result, nil
}

func maxAbsDiff(a, b []float64) float64 {
	var maxDiff float64
	for i := range a {
		d := math.Abs(a[i] - b[i])
		if d > maxDiff {
			maxDiff = d
		}
	}
	return maxDiff
}

// Predict materializes features from the final coefficient vector and
// applies the final position-space model, returning affinity units.
func (m *RefinedModel) Predict(x [][]int) ([]float64, error) {
	features, err := feats.Materialize(x, m.Coeffs)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(features))
	for i, row := range features {
		if len(row) != len(m.PositionWeights) {
			return nil, fmt.Errorf(
				"%w: sample %d has %d positions, expected %d",
				feats.ErrDimensionMismatch, i, len(row), len(m.PositionWeights))
		}
		sum := m.Intercept
		for j, v := range row {
			sum += m.PositionWeights[j] * v
		}
		out[i] = math.Exp(sum)
	}
	return out, nil
}

// SaveToFile stores the trained artifact as JSON.
func (m *RefinedModel) SaveToFile(path string) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to save refined model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save refined model: %w", err)
	}
	return nil
}

// LoadRefinedModelFromFile restores a trained artifact.
func LoadRefinedModelFromFile(path string) (*RefinedModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load refined model: %w", err)
	}
	var model RefinedModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, fmt.Errorf("failed to load refined model: %w", err)
	}
	if len(model.Coeffs) != feats.NumAminoAcidPairs {
		return nil, fmt.Errorf(
			"%w: model file has %d coefficients, expected %d",
			feats.ErrDimensionMismatch, len(model.Coeffs), feats.NumAminoAcidPairs)
	}
	return &model, nil
}
