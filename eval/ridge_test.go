package eval

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timodonnell/mhcpred/feats"
)

func TestRidgeRecoversLinearRelation(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	n := 200
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := rng.Float64()*10 - 5
		b := rng.Float64()*10 - 5
		x[i] = []float64{a, b}
		y[i] = 2*a - 3*b + 5
	}
	model := NewRidge(1e-6)
	require.NoError(t, model.Fit(x, y, nil))

	w := model.Weights()
	assert.InDelta(t, 2.0, w[0], 1e-3)
	assert.InDelta(t, -3.0, w[1], 1e-3)
	assert.InDelta(t, 5.0, model.Intercept(), 1e-3)

	pred, err := model.Predict([][]float64{{1, 1}})
	require.NoError(t, err)
	assert.InDelta(t, 4.0, pred[0], 1e-2)
}

func TestRidgeSampleWeights(t *testing.T) {
	// two contradictory clusters; weights select the first
	x := [][]float64{{0}, {1}, {0}, {1}}
	y := []float64{0, 1, 10, 12}
	w := []float64{1, 1, 0, 0}

	model := NewRidge(1e-9)
	require.NoError(t, model.Fit(x, y, w))
	pred, err := model.Predict([][]float64{{0}, {1}})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, pred[0], 1e-6)
	assert.InDelta(t, 1.0, pred[1], 1e-6)
}

func TestOLSSingularDesignFails(t *testing.T) {
	// duplicated feature column makes the unregularized Gram singular
	x := [][]float64{{1, 1}, {2, 2}, {3, 3}, {4, 4}}
	y := []float64{1, 2, 3, 4}
	model := NewOLS()
	err := model.Fit(x, y, nil)
	assert.ErrorIs(t, err, ErrNumericalFailure)

	// with regularization the same system solves
	ridge := NewRidge(1.0)
	assert.NoError(t, ridge.Fit(x, y, nil))
}

func TestRidgeShapeChecks(t *testing.T) {
	model := NewRidge(1.0)
	assert.ErrorIs(t, model.Fit(nil, nil, nil), feats.ErrDimensionMismatch)
	assert.ErrorIs(t, model.Fit([][]float64{{1}}, []float64{1, 2}, nil), feats.ErrDimensionMismatch)
	assert.ErrorIs(t, model.Fit([][]float64{{1}, {2, 3}}, []float64{1, 2}, nil), feats.ErrDimensionMismatch)

	_, err := model.Predict([][]float64{{1}})
	assert.ErrorIs(t, err, ErrNotFitted)
}

func TestLogLinearExponentiates(t *testing.T) {
	// y = exp(2x): log-space fit is exactly linear
	x := [][]float64{{0}, {1}, {2}, {3}}
	y := []float64{1, 7.389056, 54.598150, 403.428793}

	model := NewLogLinear(NewRidge(1e-9))
	require.NoError(t, model.Fit(x, y, nil))
	pred, err := model.Predict([][]float64{{1.5}})
	require.NoError(t, err)
	assert.InDelta(t, 20.0855, pred[0], 1e-2)

	w := model.Weights()
	assert.InDelta(t, 2.0, w[0], 1e-4)
}

func TestLogLinearRejectsNonPositiveTargets(t *testing.T) {
	model := NewLogLinear(NewRidge(1.0))
	err := model.Fit([][]float64{{1}, {2}}, []float64{1, 0}, nil)
	assert.Error(t, err)
}
