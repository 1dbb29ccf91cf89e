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
)

// LogLinear wraps a linear regressor so that it operates in log-affinity
// space: binding is modeled multiplicatively, so the pipeline fits
// ln(IC50) and exponentiates predictions back to affinity units.
type LogLinear struct {
	inner LinearRegressor
}

func NewLogLinear(inner LinearRegressor) *LogLinear {
	return &LogLinear{inner: inner}
}

func (m *LogLinear) Fit(x [][]float64, y, w []float64) error {
	logY := make([]float64, len(y))
	for i, v := range y {
		if v <= 0 {
			return fmt.Errorf("target %d must be positive for the log transform, got %f", i, v)
		}
		logY[i] = math.Log(v)
	}
	return m.inner.Fit(x, logY, w)
}

func (m *LogLinear) Predict(x [][]float64) ([]float64, error) {
	out, err := m.inner.Predict(x)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = math.Exp(out[i])
	}
	return out, nil
}

func (m *LogLinear) Weights() []float64 {
	return m.inner.Weights()
}

func (m *LogLinear) Intercept() float64 {
	return m.inner.Intercept()
}
