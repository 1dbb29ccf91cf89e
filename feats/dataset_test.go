package feats

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeTestDataset() *Dataset {
	ds := &Dataset{}
	ds.Add([]int{0, 1, 2}, 50.0, 1.0)
	ds.Add([]int{3, 4, 5}, 5000.0, 0.5)
	ds.Add([]int{6, 7, 8}, 120.0, 0.5)
	ds.Add([]int{9, 10, 11}, 30000.0, 1.0)
	return ds
}

func TestDatasetValidate(t *testing.T) {
	ds := makeTestDataset()
	assert.NoError(t, ds.Validate())

	bad := makeTestDataset()
	bad.Y = bad.Y[:3]
	assert.ErrorIs(t, bad.Validate(), ErrDimensionMismatch)

	bad = makeTestDataset()
	bad.X[1] = []int{1, 2}
	assert.ErrorIs(t, bad.Validate(), ErrDimensionMismatch)

	bad = makeTestDataset()
	bad.X[0][0] = NumAminoAcidPairs
	assert.ErrorIs(t, bad.Validate(), ErrIndexOutOfRange)

	bad = makeTestDataset()
	bad.Y[2] = 0
	assert.Error(t, bad.Validate())

	bad = makeTestDataset()
	bad.W[0] = -0.1
	assert.Error(t, bad.Validate())
}

func TestDatasetSplitFold(t *testing.T) {
	ds := makeTestDataset()
	train, test := ds.SplitFold(1, 3)
	assert.Equal(t, 2, train.Len())
	assert.Equal(t, 2, test.Len())
	assert.Equal(t, []float64{50.0, 30000.0}, train.Y)
	assert.Equal(t, []float64{5000.0, 120.0}, test.Y)
	assert.Equal(t, [][]int{{3, 4, 5}, {6, 7, 8}}, test.X)
}

func TestDatasetSaveLoadRoundTrip(t *testing.T) {
	ds := makeTestDataset()
	path := filepath.Join(t.TempDir(), "dataset.msgpack")
	require.NoError(t, ds.SaveToFile(path))

	loaded, err := LoadDatasetFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, ds.X, loaded.X)
	assert.Equal(t, ds.Y, loaded.Y)
	assert.Equal(t, ds.W, loaded.W)
}

func TestDatasetShuffleKeepsAlignment(t *testing.T) {
	ds := &Dataset{}
	for i := 1; i <= 50; i++ {
		ds.Add([]int{i}, float64(i), float64(i)*2)
	}
	ds.Shuffle()
	require.Equal(t, 50, ds.Len())
	for i := 0; i < ds.Len(); i++ {
		assert.Equal(t, float64(ds.X[i][0]), ds.Y[i])
		assert.Equal(t, ds.Y[i]*2, ds.W[i])
	}
}
