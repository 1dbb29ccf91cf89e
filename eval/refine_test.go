package eval

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timodonnell/mhcpred/feats"
)

// synthDataset builds samples whose log-affinity is an exact linear
// function of reference coefficients looked up through the index matrix.
func synthDataset(rng *rand.Rand, n, numDims int, ref []float64) (x [][]int, y, w []float64) {
	posWeights := make([]float64, numDims)
	for j := range posWeights {
		posWeights[j] = rng.Float64()*2 - 1
	}
	x = make([][]int, n)
	y = make([]float64, n)
	w = make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]int, numDims)
		sum := 3.0
		for j := 0; j < numDims; j++ {
			row[j] = rng.IntN(feats.NumAminoAcidPairs)
			sum += posWeights[j] * ref[row[j]]
		}
		x[i] = row
		y[i] = math.Exp(sum)
		w[i] = 1
	}
	return x, y, w
}

func refCoeffs(rng *rand.Rand) []float64 {
	ref := make([]float64, feats.NumAminoAcidPairs)
	for i := range ref {
		ref[i] = rng.Float64()*4 - 2
	}
	return ref
}

func TestReestimateZeroWeightsGiveZeroCoefficients(t *testing.T) {
	x := [][]int{{0, 1}, {2, 3}, {4, 5}}
	posWeights := []float64{0, 0}
	targets := []float64{100, 200, 300}

	coeffs, err := ReestimateCoefficients(x, posWeights, targets, 1.0)
	require.NoError(t, err)
	require.Equal(t, feats.NumAminoAcidPairs, len(coeffs))
	for _, c := range coeffs {
		assert.InDelta(t, 0.0, c, 1e-9)
	}
}

func TestReestimateChecksShapes(t *testing.T) {
	_, err := ReestimateCoefficients([][]int{{0, 1}}, []float64{1}, []float64{10}, 1.0)
	assert.ErrorIs(t, err, feats.ErrDimensionMismatch)

	_, err = ReestimateCoefficients([][]int{{0, 400}}, []float64{1, 1}, []float64{10}, 1.0)
	assert.ErrorIs(t, err, feats.ErrIndexOutOfRange)

	_, err = ReestimateCoefficients([][]int{{0, 1}}, []float64{1, 1}, []float64{10, 20}, 1.0)
	assert.ErrorIs(t, err, feats.ErrDimensionMismatch)
}

func TestRefineKeepsErrorWithinTolerance(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	ref := refCoeffs(rng)
	x, y, w := synthDataset(rng, 300, 6, ref)

	model, err := Refine(x, y, w, ref, RefineOptions{Rounds: 5, Alpha: 1.0})
	require.NoError(t, err)
	require.Equal(t, 5, len(model.Rounds))

	// per-round weighted log-space MAE must not degrade over refinement
	roundMAE := make([]float64, len(model.Rounds))
	for r, snap := range model.Rounds {
		snapModel := &RefinedModel{
			Coeffs:          snap.Coeffs,
			PositionWeights: snap.PositionWeights,
			Intercept:       snap.Intercept,
		}
		pred, err := snapModel.Predict(x)
		require.NoError(t, err)
		var mae float64
		for i := range pred {
			mae += math.Abs(math.Log(pred[i]) - math.Log(y[i]))
		}
		roundMAE[r] = mae / float64(len(pred))
	}
	last := roundMAE[len(roundMAE)-1]
	assert.LessOrEqual(t, last, roundMAE[0]*1.05)
}

func TestRefineEarlyStopOnTolerance(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 5))
	ref := refCoeffs(rng)
	x, y, w := synthDataset(rng, 150, 4, ref)

	model, err := Refine(x, y, w, ref, RefineOptions{Rounds: 10, Alpha: 1.0, Tolerance: 1e9})
	require.NoError(t, err)
	assert.True(t, model.Converged)
	assert.Less(t, len(model.Rounds), 10)
}

func TestRefineRejectsBadInitialVector(t *testing.T) {
	_, err := Refine([][]int{{0}}, []float64{10}, []float64{1}, []float64{1, 2, 3}, RefineOptions{})
	assert.ErrorIs(t, err, feats.ErrDimensionMismatch)
}

func TestRefinedModelSaveLoadRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewPCG(13, 17))
	ref := refCoeffs(rng)
	x, y, w := synthDataset(rng, 100, 4, ref)

	model, err := Refine(x, y, w, ref, RefineOptions{Rounds: 2, Alpha: 1.0})
	require.NoError(t, err)

	path := t.TempDir() + "/model.json"
	require.NoError(t, model.SaveToFile(path))
	loaded, err := LoadRefinedModelFromFile(path)
	require.NoError(t, err)

	predWant, err := model.Predict(x[:10])
	require.NoError(t, err)
	predGot, err := loaded.Predict(x[:10])
	require.NoError(t, err)
	for i := range predWant {
		assert.InDelta(t, predWant[i], predGot[i], 1e-9)
	}
}

func TestCrossValidateSyntheticLinear(t *testing.T) {
	rng := rand.New(rand.NewPCG(23, 29))
	ref := refCoeffs(rng)
	x, y, w := synthDataset(rng, 400, 5, ref)
	ds := &feats.Dataset{X: x, Y: y, W: w}

	result, err := CrossValidate(ds, ref, CrossValOptions{
		NumFolds:        4,
		BinderThreshold: DefaultBinderThreshold,
		Refine:          RefineOptions{Rounds: 5, Alpha: 1.0},
	})
	require.NoError(t, err)
	require.Equal(t, 4, len(result.Folds))
	for _, f := range result.Folds {
		assert.Equal(t, 300, f.TrainSize)
		assert.Equal(t, 100, f.TestSize)
		assert.False(t, math.IsNaN(f.Metrics.MAE))
	}
	// targets are an exact function of the reference encoding, so the
	// binder/non-binder call should be much better than chance
	assert.Greater(t, result.Mean.Accuracy, 0.7)
}

func TestCrossValidateAbortsOnTooFewSamples(t *testing.T) {
	ds := &feats.Dataset{
		X: [][]int{{0}, {1}},
		Y: []float64{10, 20},
		W: []float64{1, 1},
	}
	_, err := CrossValidate(ds, make([]float64, feats.NumAminoAcidPairs), CrossValOptions{NumFolds: 10})
	assert.ErrorIs(t, err, feats.ErrDimensionMismatch)
}
