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

// Regressor is a generalization of the model families used to predict
// binding affinity from dense feature matrices. Fit failures are fatal
// for the current run - there is no retry semantics.
type Regressor interface {
	// Fit trains the model on (features, targets, sample weights).
	// A nil weight vector means uniform weights.
	Fit(x [][]float64, y, w []float64) error

	// Predict returns one predicted target per feature row.
	Predict(x [][]float64) ([]float64, error)
}

// LinearRegressor additionally exposes per-feature weights, which the
// alternating refinement loop folds back into the pairwise coefficient
// space. Only linear model families can take part in refinement.
type LinearRegressor interface {
	Regressor
	Weights() []float64
	Intercept() float64
}
