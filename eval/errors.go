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

import "errors"

var (
	// ErrNumericalFailure signals that a least-squares solve did not
	// converge (singular or near-singular design matrix). It aborts the
	// current training or cross-validation run.
	ErrNumericalFailure = errors.New("numerical failure in least-squares solve")

	// ErrEmptyCategory signals that a discretized affinity category has
	// no trained regressor.
	ErrEmptyCategory = errors.New("no regressor trained for category")

	// ErrNotFitted signals Predict on a model that was never fitted.
	ErrNotFitted = errors.New("model has not been fitted")

	// ErrInferenceOnly signals Fit on a model that only supports
	// inference from a pre-trained artifact.
	ErrInferenceOnly = errors.New("model supports inference only")
)
