package twopass

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timodonnell/mhcpred/eval"
)

func TestCategoryDiscretization(t *testing.T) {
	m := New(50, 10, 1.0)
	assert.Equal(t, 0, m.Category(0.5))
	assert.Equal(t, 0, m.Category(1))
	assert.Equal(t, 0, m.Category(49.9))
	assert.Equal(t, 1, m.Category(50))
	assert.Equal(t, 1, m.Category(2499))
	assert.Equal(t, 2, m.Category(2500))
	assert.Equal(t, 3, m.Category(500000))
}

// two clearly separated clusters: feature[0] near 0 maps to category 0
// targets, feature[0] near 10 to category 1 targets
func twoClusterData(rng *rand.Rand, n int) (x [][]float64, y []float64) {
	x = make([][]float64, n)
	y = make([]float64, n)
	for i := 0; i < n; i++ {
		if i%2 == 0 {
			x[i] = []float64{rng.Float64(), rng.Float64()}
			y[i] = 5 + rng.Float64()*20 // category 0 (< 50)
		} else {
			x[i] = []float64{10 + rng.Float64(), rng.Float64()}
			y[i] = 100 + rng.Float64()*1000 // category 1 (< 2500)
		}
	}
	return x, y
}

func TestFitTrainsOneRegressorPerOccupiedCategory(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 1))
	x, y := twoClusterData(rng, 200)

	m := New(50, 50, 1.0)
	require.NoError(t, m.Fit(x, y, nil))
	assert.Equal(t, 2, m.NumCategories())
	assert.NotNil(t, m.regressors[0])
	assert.NotNil(t, m.regressors[1])
}

func TestPredictUsesOnlyRoutedCategory(t *testing.T) {
	rng := rand.New(rand.NewPCG(2, 3))
	x, y := twoClusterData(rng, 200)

	m := New(50, 50, 1.0)
	require.NoError(t, m.Fit(x, y, nil))

	// nil out category 1: predictions routed to category 0 must still work
	m.regressors[1] = nil
	pred, err := m.Predict([][]float64{{0.5, 0.5}})
	require.NoError(t, err)
	assert.Less(t, pred[0], 100.0)

	// a clear category-1 sample now hits the empty bucket
	_, err = m.Predict([][]float64{{10.5, 0.5}})
	assert.ErrorIs(t, err, eval.ErrEmptyCategory)
}

func TestPredictExponentiates(t *testing.T) {
	rng := rand.New(rand.NewPCG(5, 8))
	x, y := twoClusterData(rng, 300)

	m := New(50, 50, 1.0)
	require.NoError(t, m.Fit(x, y, nil))

	pred, err := m.Predict(x[:50])
	require.NoError(t, err)
	for i, p := range pred {
		assert.Greater(t, p, 0.0)
		// prediction should land in the right order of magnitude
		assert.InDelta(t, math.Log(y[i]), math.Log(p), 2.5)
	}
}

func TestPredictUnfitted(t *testing.T) {
	m := New(50, 10, 1.0)
	_, err := m.Predict([][]float64{{1, 2}})
	assert.ErrorIs(t, err, eval.ErrNotFitted)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 4))
	x, y := twoClusterData(rng, 200)

	m := New(50, 30, 1.0)
	require.NoError(t, m.Fit(x, y, nil))

	path := t.TempDir() + "/twopass.json"
	require.NoError(t, m.SaveToFile(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, m.CategoryBase, loaded.CategoryBase)
	assert.Equal(t, m.NumCategories(), loaded.NumCategories())

	want, err := m.Predict(x[:20])
	require.NoError(t, err)
	got, err := loaded.Predict(x[:20])
	require.NoError(t, err)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9)
	}
}
