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
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"

	"github.com/timodonnell/mhcpred/feats"
)

// DefaultNumFolds is the reference cross-validation fold count.
const DefaultNumFolds = 10

// CrossValOptions configures a cross-validation pass.
type CrossValOptions struct {
	NumFolds        int
	BinderThreshold float64
	Refine          RefineOptions
}

func (opts CrossValOptions) withDefaults() CrossValOptions {
	if opts.NumFolds <= 0 {
		opts.NumFolds = DefaultNumFolds
	}
	if opts.BinderThreshold <= 0 {
		opts.BinderThreshold = DefaultBinderThreshold
	}
	return opts
}

// FoldResult holds one fold's evaluation.
type FoldResult struct {
	Fold      int     `json:"fold"`
	TrainSize int     `json:"trainSize"`
	TestSize  int     `json:"testSize"`
	Metrics   Metrics `json:"metrics"`
}

// CrossValResult aggregates all folds.
type CrossValResult struct {
	Folds []FoldResult `json:"folds"`
	Mean  Metrics      `json:"mean"`
}

// CrossValidate splits the dataset into contiguous folds and, for each
// fold, trains the alternating refinement loop on the complement and
// evaluates on the fold. Any fold failure aborts the entire pass - folds
// are never skipped.
func CrossValidate(ds *feats.Dataset, initCoeffs []float64, opts CrossValOptions) (*CrossValResult, error) {
	opts = opts.withDefaults()
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	n := ds.Len()
	splitSize := n / opts.NumFolds
	if splitSize == 0 {
		return nil, fmt.Errorf(
			"%w: %d samples cannot form %d folds", feats.ErrDimensionMismatch, n, opts.NumFolds)
	}

	result := &CrossValResult{Folds: make([]FoldResult, 0, opts.NumFolds)}
	bar := progressbar.Default(int64(opts.NumFolds), "cross-validating")
	for fold := 0; fold < opts.NumFolds; fold++ {
		start := fold * splitSize
		stop := (fold + 1) * splitSize
		if stop > n {
			stop = n
		}
		train, test := ds.SplitFold(start, stop)
		log.Debug().
			Int("fold", fold+1).
			Int("trainSize", train.Len()).
			Int("testSize", test.Len()).
			Msg("running cross-validation fold")

		model, err := Refine(train.X, train.Y, train.W, initCoeffs, opts.Refine)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		pred, err := model.Predict(test.X)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		metrics, err := Score(pred, test.Y, test.W, opts.BinderThreshold)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		result.Folds = append(result.Folds, FoldResult{
			Fold:      fold + 1,
			TrainSize: train.Len(),
			TestSize:  test.Len(),
			Metrics:   metrics,
		})
		bar.Add(1)
	}
	result.Mean = meanMetrics(result.Folds)
	return result, nil
}

// CrossValidateRegressor evaluates a non-refining model family: features
// are materialized once from a fixed coefficient vector (typically the
// reference table) and a fresh model is fitted per fold.
func CrossValidateRegressor(
	ds *feats.Dataset,
	coeffs []float64,
	newModel func() Regressor,
	opts CrossValOptions,
) (*CrossValResult, error) {
	opts = opts.withDefaults()
	if err := ds.Validate(); err != nil {
		return nil, err
	}
	features, err := feats.Materialize(ds.X, coeffs)
	if err != nil {
		return nil, err
	}
	n := ds.Len()
	splitSize := n / opts.NumFolds
	if splitSize == 0 {
		return nil, fmt.Errorf(
			"%w: %d samples cannot form %d folds", feats.ErrDimensionMismatch, n, opts.NumFolds)
	}

	result := &CrossValResult{Folds: make([]FoldResult, 0, opts.NumFolds)}
	bar := progressbar.Default(int64(opts.NumFolds), "cross-validating")
	for fold := 0; fold < opts.NumFolds; fold++ {
		start := fold * splitSize
		stop := (fold + 1) * splitSize
		if stop > n {
			stop = n
		}
		trainX := make([][]float64, 0, n-(stop-start))
		trainX = append(append(trainX, features[:start]...), features[stop:]...)
		train, test := ds.SplitFold(start, stop)

		model := newModel()
		if err := model.Fit(trainX, train.Y, train.W); err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		pred, err := model.Predict(features[start:stop])
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		metrics, err := Score(pred, test.Y, test.W, opts.BinderThreshold)
		if err != nil {
			return nil, fmt.Errorf("fold %d: %w", fold+1, err)
		}
		result.Folds = append(result.Folds, FoldResult{
			Fold:      fold + 1,
			TrainSize: train.Len(),
			TestSize:  test.Len(),
			Metrics:   metrics,
		})
		bar.Add(1)
	}
	result.Mean = meanMetrics(result.Folds)
	return result, nil
}

func meanMetrics(folds []FoldResult) Metrics {
	var mean Metrics
	if len(folds) == 0 {
		return mean
	}
	for _, f := range folds {
		mean.MAE += f.Metrics.MAE
		mean.Accuracy += f.Metrics.Accuracy
		mean.Sensitivity += f.Metrics.Sensitivity
		mean.Specificity += f.Metrics.Specificity
	}
	k := float64(len(folds))
	mean.MAE /= k
	mean.Accuracy /= k
	mean.Sensitivity /= k
	mean.Specificity /= k
	return mean
}
