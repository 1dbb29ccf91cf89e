package eval

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScoreWeightedMetrics(t *testing.T) {
	pred := []float64{100, 600, 400, 800}
	actual := []float64{200, 700, 900, 300}
	w := []float64{1, 1, 2, 2}

	m, err := Score(pred, actual, w, 500)
	require.NoError(t, err)

	// MAE = (1*100 + 1*100 + 2*500 + 2*500) / 6
	assert.InDelta(t, 2200.0/6.0, m.MAE, 1e-9)
	// correct: samples 0 (binder/binder) and 1 (non/non) only
	assert.InDelta(t, 2.0/6.0, m.Accuracy, 1e-9)
	// actual binders: samples 0 (w=1) and 3 (w=2); correct among them: 0
	assert.InDelta(t, 1.0/3.0, m.Sensitivity, 1e-9)
	// predicted binders: samples 0 (w=1) and 2 (w=2); correct among them: 0
	assert.InDelta(t, 1.0/3.0, m.Specificity, 1e-9)
}

func TestScorePerfectPredictions(t *testing.T) {
	y := []float64{10, 1000, 200, 20000}
	w := []float64{1, 1, 1, 1}
	m, err := Score(y, y, w, 500)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.MAE)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.Equal(t, 1.0, m.Sensitivity)
	assert.Equal(t, 1.0, m.Specificity)
}

func TestScoreNoPredictedBinders(t *testing.T) {
	pred := []float64{1000, 2000}
	actual := []float64{1500, 2500}
	w := []float64{1, 1}
	m, err := Score(pred, actual, w, 500)
	require.NoError(t, err)
	assert.Equal(t, 1.0, m.Accuracy)
	assert.True(t, math.IsNaN(m.Sensitivity))
	assert.True(t, math.IsNaN(m.Specificity))
}

func TestScoreShapeCheck(t *testing.T) {
	_, err := Score([]float64{1}, []float64{1, 2}, []float64{1, 1}, 500)
	assert.Error(t, err)
}

func TestBaselineAccuracy(t *testing.T) {
	y := []float64{100, 200, 300, 900}
	assert.InDelta(t, 0.75, BaselineAccuracy(y, 500), 1e-9)
	assert.InDelta(t, 0.75, BaselineAccuracy([]float64{600, 700, 800, 100}, 500), 1e-9)
}
