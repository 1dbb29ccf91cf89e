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

	"github.com/timodonnell/mhcpred/feats"
)

// ReestimateCoefficients refits the 400-dimensional pairwise coefficient
// vector from per-position model weights. Each sample's position weights
// are scatter-added into the amino-acid-pair buckets its index vector
// points to (the adjoint of materialization), then a ridge regression of
// ln(targets) on the accumulated design matrix yields the new vector.
//
// Sample weights are deliberately absent here: the refit regresses the
// same training rows the position weights came from, and the reference
// behavior applies window weights only in the position-space fit.
func ReestimateCoefficients(x [][]int, posWeights, targets []float64, alpha float64) ([]float64, error) {
	if len(x) != len(targets) {
		return nil, fmt.Errorf(
			"%w: %d samples but %d targets", feats.ErrDimensionMismatch, len(x), len(targets))
	}
	design, err := feats.Accumulate(x, posWeights)
	if err != nil {
		return nil, err
	}
	model := NewLogLinear(NewRidge(alpha))
	if err := model.Fit(design, targets, nil); err != nil {
		return nil, fmt.Errorf("coefficient re-estimation failed: %w", err)
	}
	return model.Weights(), nil
}
