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

	"gonum.org/v1/gonum/mat"

	"github.com/timodonnell/mhcpred/feats"
)

// DefaultRidgeAlpha matches the reference regularization strength.
const DefaultRidgeAlpha = 1.0

// Ridge is a weighted ridge regression solved in closed form. The
// intercept is fitted but not penalized: features and targets are
// centered by their weighted means before the solve, matching the usual
// treatment of the bias term.
type Ridge struct {
	Alpha float64

	coefs     []float64
	intercept float64
	fitted    bool
}

func NewRidge(alpha float64) *Ridge {
	return &Ridge{Alpha: alpha}
}

// NewOLS returns an ordinary least squares variant (no regularization).
// A singular design matrix then surfaces as ErrNumericalFailure.
func NewOLS() *Ridge {
	return &Ridge{Alpha: 0}
}

func (r *Ridge) Fit(x [][]float64, y, w []float64) error {
	n := len(x)
	if n == 0 {
		return fmt.Errorf("%w: empty design matrix", feats.ErrDimensionMismatch)
	}
	if len(y) != n {
		return fmt.Errorf("%w: %d samples but %d targets", feats.ErrDimensionMismatch, n, len(y))
	}
	if w != nil && len(w) != n {
		return fmt.Errorf("%w: %d samples but %d weights", feats.ErrDimensionMismatch, n, len(w))
	}
	p := len(x[0])

	weightAt := func(i int) float64 {
		if w == nil {
			return 1
		}
		return w[i]
	}
	totalWeight := 0.0
	for i := 0; i < n; i++ {
		totalWeight += weightAt(i)
	}
	if totalWeight <= 0 {
		return fmt.Errorf("%w: total sample weight is zero", ErrNumericalFailure)
	}

	xMeans := make([]float64, p)
	var yMean float64
	for i := 0; i < n; i++ {
		if len(x[i]) != p {
			return fmt.Errorf(
				"%w: row %d has %d features, expected %d", feats.ErrDimensionMismatch, i, len(x[i]), p)
		}
		wi := weightAt(i)
		for j := 0; j < p; j++ {
			xMeans[j] += wi * x[i][j]
		}
		yMean += wi * y[i]
	}
	for j := 0; j < p; j++ {
		xMeans[j] /= totalWeight
	}
	yMean /= totalWeight

	// centered rows scaled by sqrt(w) turn the weighted problem into an
	// ordinary one: (Xc' W Xc + aI) b = Xc' W yc
	xw := mat.NewDense(n, p, nil)
	yw := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		sw := math.Sqrt(weightAt(i))
		for j := 0; j < p; j++ {
			xw.Set(i, j, sw*(x[i][j]-xMeans[j]))
		}
		yw.SetVec(i, sw*(y[i]-yMean))
	}

	var gram mat.Dense
	gram.Mul(xw.T(), xw)
	sym := mat.NewSymDense(p, nil)
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			v := gram.At(j, k)
			if j == k {
				v += r.Alpha
			}
			sym.SetSym(j, k, v)
		}
	}

	var rhs mat.VecDense
	rhs.MulVec(xw.T(), yw)

	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return fmt.Errorf(
			"%w: design matrix is not positive definite (alpha=%g)", ErrNumericalFailure, r.Alpha)
	}
	var beta mat.VecDense
	if err := chol.SolveVecTo(&beta, &rhs); err != nil {
		return fmt.Errorf("%w: %v", ErrNumericalFailure, err)
	}

	r.coefs = make([]float64, p)
	r.intercept = yMean
	for j := 0; j < p; j++ {
		r.coefs[j] = beta.AtVec(j)
		r.intercept -= r.coefs[j] * xMeans[j]
	}
	r.fitted = true
	return nil
}

func (r *Ridge) Predict(x [][]float64) ([]float64, error) {
	if !r.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(x))
	for i, row := range x {
		if len(row) != len(r.coefs) {
			return nil, fmt.Errorf(
				"%w: row %d has %d features, expected %d",
				feats.ErrDimensionMismatch, i, len(row), len(r.coefs))
		}
		sum := r.intercept
		for j, v := range row {
			sum += r.coefs[j] * v
		}
		out[i] = sum
	}
	return out, nil
}

// Weights returns a copy of the fitted coefficient vector.
func (r *Ridge) Weights() []float64 {
	out := make([]float64, len(r.coefs))
	copy(out, r.coefs)
	return out
}

func (r *Ridge) Intercept() float64 {
	return r.intercept
}
