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
	"math"

	"github.com/timodonnell/mhcpred/feats"
)

// DefaultBinderThreshold is the conventional IC50 cutoff (in nM) between
// binders and non-binders.
const DefaultBinderThreshold = 500.0

// Metrics aggregates weighted evaluation measures for one prediction
// set. The binary measures label a sample "binder" when its affinity is
// at or below the threshold (lower IC50 = stronger binding).
type Metrics struct {
	MAE         float64 `json:"mae"`
	Accuracy    float64 `json:"accuracy"`
	Sensitivity float64 `json:"sensitivity"`
	Specificity float64 `json:"specificity"`
}

// Score computes weighted MAE plus binary accuracy, sensitivity and
// specificity of predictions against actual affinities. Sensitivity is
// taken over actual binders; specificity, matching the reference
// implementation, over predicted binders.
func Score(pred, actual, weights []float64, binderThreshold float64) (Metrics, error) {
	if len(pred) != len(actual) || len(weights) != len(actual) {
		return Metrics{}, fmt.Errorf(
			"%w: |pred| = %d, |actual| = %d, |weights| = %d",
			feats.ErrDimensionMismatch, len(pred), len(actual), len(weights))
	}
	var (
		totalW, errSum        float64
		correctW              float64
		actualBindW, sensW    float64
		predictedBindW, specW float64
	)
	for i := range pred {
		w := weights[i]
		totalW += w
		errSum += w * math.Abs(pred[i]-actual[i])

		predBind := pred[i] <= binderThreshold
		actualBind := actual[i] <= binderThreshold
		correct := predBind == actualBind
		if correct {
			correctW += w
		}
		if actualBind {
			actualBindW += w
			if correct {
				sensW += w
			}
		}
		if predBind {
			predictedBindW += w
			if correct {
				specW += w
			}
		}
	}
	if totalW <= 0 {
		return Metrics{}, fmt.Errorf("total sample weight is zero")
	}
	return Metrics{
		MAE:         errSum / totalW,
		Accuracy:    correctW / totalW,
		Sensitivity: ratioOrNaN(sensW, actualBindW),
		Specificity: ratioOrNaN(specW, predictedBindW),
	}, nil
}

func ratioOrNaN(num, den float64) float64 {
	if den == 0 {
		return math.NaN()
	}
	return num / den
}
