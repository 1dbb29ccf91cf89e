package nn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewModelHiddenLayout(t *testing.T) {
	m := NewModel(16)
	assert.Equal(t, []int{16, 8}, m.hiddenLayout)

	m = NewModel(0)
	assert.Equal(t, []int{DefaultHiddenUnits, 8}, m.hiddenLayout)

	m = NewModel(-3)
	assert.Equal(t, []int{DefaultHiddenUnits, 8}, m.hiddenLayout)
}

func TestFitUsesConfiguredLayout(t *testing.T) {
	m := NewModel(4)
	x := make([][]float64, 0, 20)
	y := make([]float64, 0, 20)
	for i := 0; i < 20; i++ {
		v := float64(i + 1)
		x = append(x, []float64{v, 2 * v})
		y = append(y, 100*v)
	}
	require.NoError(t, m.Fit(x, y, nil))

	pred, err := m.Predict(x[:3])
	require.NoError(t, err)
	for _, p := range pred {
		assert.False(t, math.IsNaN(p))
		assert.Greater(t, p, 0.0)
	}
}

func TestPredictBeforeFitFails(t *testing.T) {
	m := NewModel(8)
	_, err := m.Predict([][]float64{{1, 2}})
	assert.Error(t, err)
}
