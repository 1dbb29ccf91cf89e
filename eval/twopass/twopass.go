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

// Package twopass implements the two-stage affinity predictor: a
// random-forest classifier first buckets samples into discretized
// log-affinity categories, then a per-category ridge regressor refines
// the prediction within the bucket.
package twopass

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	randomforest "github.com/malaschitz/randomForest"
	"github.com/rs/zerolog/log"

	"github.com/timodonnell/mhcpred/eval"
)

const (
	// DefaultCategoryBase discretizes affinities as floor(log_50(Y)).
	DefaultCategoryBase = 50.0
	DefaultNumTrees     = 100
)

// categoryRegressor is one bucket's fitted log-space linear model.
type categoryRegressor struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

func (cr *categoryRegressor) predictLog(row []float64) (float64, error) {
	if len(row) != len(cr.Weights) {
		return 0, fmt.Errorf(
			"category regressor expects %d features, got %d", len(cr.Weights), len(row))
	}
	sum := cr.Intercept
	for j, v := range row {
		sum += cr.Weights[j] * v
	}
	return sum, nil
}

// Model is the two-stage classifier+regressor. The discretization
// function is shared between training and prediction; changing
// CategoryBase between the two would silently misroute samples, so the
// value is serialized with the model.
type Model struct {
	CategoryBase float64
	NumTrees     int
	Alpha        float64

	forest     *randomforest.Forest
	regressors []*categoryRegressor
	fitted     bool
}

func New(categoryBase float64, numTrees int, alpha float64) *Model {
	if categoryBase <= 1 {
		categoryBase = DefaultCategoryBase
	}
	if numTrees <= 0 {
		numTrees = DefaultNumTrees
	}
	if alpha <= 0 {
		alpha = eval.DefaultRidgeAlpha
	}
	return &Model{CategoryBase: categoryBase, NumTrees: numTrees, Alpha: alpha}
}

// Category maps an affinity value to its discretized log bucket:
// max(0, floor(log_base(y))).
func (m *Model) Category(y float64) int {
	cat := int(math.Log(y) / math.Log(m.CategoryBase))
	if cat < 0 {
		cat = 0
	}
	return cat
}

// NumCategories returns the number of regressor slots (max category + 1)
// after fitting.
func (m *Model) NumCategories() int {
	return len(m.regressors)
}

// Fit trains the first-stage classifier on all samples and one ridge
// regressor per occupied category. Sample weights only influence which
// bucket boundaries matter in aggregate scoring, not the per-bucket
// fits, mirroring the reference behavior.
func (m *Model) Fit(x [][]float64, y, w []float64) error {
	if len(x) == 0 {
		return fmt.Errorf("no training data provided")
	}
	if len(y) != len(x) {
		return fmt.Errorf("%d samples but %d targets", len(x), len(y))
	}
	categories := make([]int, len(y))
	maxCategory := 0
	for i, v := range y {
		if v <= 0 {
			return fmt.Errorf("target %d must be positive, got %f", i, v)
		}
		categories[i] = m.Category(v)
		if categories[i] > maxCategory {
			maxCategory = categories[i]
		}
	}

	m.forest = &randomforest.Forest{}
	m.forest.Data = randomforest.ForestData{
		X:     x,
		Class: categories,
	}
	m.forest.Train(m.NumTrees)

	m.regressors = make([]*categoryRegressor, maxCategory+1)
	for category := 0; category <= maxCategory; category++ {
		var (
			bucketX [][]float64
			bucketY []float64
		)
		for i, cat := range categories {
			if cat != category {
				continue
			}
			bucketX = append(bucketX, x[i])
			bucketY = append(bucketY, math.Log(y[i]))
		}
		if len(bucketX) == 0 {
			continue
		}
		ridge := eval.NewRidge(m.Alpha)
		if err := ridge.Fit(bucketX, bucketY, nil); err != nil {
			return fmt.Errorf("category %d regressor: %w", category, err)
		}
		m.regressors[category] = &categoryRegressor{
			Weights:   ridge.Weights(),
			Intercept: ridge.Intercept(),
		}
		log.Debug().
			Int("category", category).
			Int("samples", len(bucketX)).
			Msg("fitted category regressor")
	}
	m.fitted = true
	return nil
}

// Predict routes each sample through the classifier to its category
// regressor and exponentiates back to affinity units. A sample routed
// to a category without a trained regressor is a hard error.
func (m *Model) Predict(x [][]float64) ([]float64, error) {
	if !m.fitted {
		return nil, eval.ErrNotFitted
	}
	out := make([]float64, len(x))
	for i, row := range x {
		category := m.classify(row)
		if category >= len(m.regressors) || m.regressors[category] == nil {
			return nil, fmt.Errorf("%w: category %d", eval.ErrEmptyCategory, category)
		}
		logPred, err := m.regressors[category].predictLog(row)
		if err != nil {
			return nil, err
		}
		out[i] = math.Exp(logPred)
	}
	return out, nil
}

func (m *Model) classify(row []float64) int {
	votes := m.forest.Vote(row)
	best := 0
	for c := 1; c < len(votes); c++ {
		if votes[c] > votes[best] {
			best = c
		}
	}
	return best
}

// ----------------------

type jsonizedModel struct {
	Forest       json.RawMessage      `json:"forest"`
	Regressors   []*categoryRegressor `json:"regressors"`
	CategoryBase float64              `json:"categoryBase"`
	NumTrees     int                  `json:"numTrees"`
	Alpha        float64              `json:"alpha"`
}

// SaveToFile stores the model, including the forest, as JSON.
func (m *Model) SaveToFile(path string) error {
	if !m.fitted {
		return eval.ErrNotFitted
	}
	forestData, err := json.Marshal(m.forest)
	if err != nil {
		return fmt.Errorf("failed to save two-pass model: %w", err)
	}
	data, err := json.Marshal(jsonizedModel{
		Forest:       forestData,
		Regressors:   m.regressors,
		CategoryBase: m.CategoryBase,
		NumTrees:     m.NumTrees,
		Alpha:        m.Alpha,
	})
	if err != nil {
		return fmt.Errorf("failed to save two-pass model: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to save two-pass model: %w", err)
	}
	return nil
}

// LoadFromFile restores a previously saved model.
func LoadFromFile(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load two-pass model: %w", err)
	}
	var tmp jsonizedModel
	if err := json.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("failed to load two-pass model: %w", err)
	}
	var forest randomforest.Forest
	if err := json.Unmarshal(tmp.Forest, &forest); err != nil {
		return nil, fmt.Errorf("failed to load two-pass model: %w", err)
	}
	return &Model{
		CategoryBase: tmp.CategoryBase,
		NumTrees:     tmp.NumTrees,
		Alpha:        tmp.Alpha,
		forest:       &forest,
		regressors:   tmp.Regressors,
		fitted:       true,
	}, nil
}
