package feats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeWindowLayout(t *testing.T) {
	a := NewAlphabet()
	enc, err := NewEncoder(a, 2)
	assert.NoError(t, err)

	vec, err := enc.EncodeWindow("ACDEFGHIK", "CA")
	assert.NoError(t, err)
	assert.Equal(t, 9*2, len(vec))

	// MHC positions iterate as the inner loop
	idxAC, _ := a.PairIndex('A', 'C')
	idxAA, _ := a.PairIndex('A', 'A')
	idxCC, _ := a.PairIndex('C', 'C')
	idxCA, _ := a.PairIndex('C', 'A')
	assert.Equal(t, []int{idxAC, idxAA, idxCC, idxCA}, vec[:4])
}

func TestEncodeWindowBadLengths(t *testing.T) {
	a := NewAlphabet()
	enc, err := NewEncoder(a, 3)
	assert.NoError(t, err)

	_, err = enc.EncodeWindow("ACDEFGHI", "ACD")
	assert.ErrorIs(t, err, ErrDimensionMismatch)

	_, err = enc.EncodeWindow("ACDEFGHIK", "AC")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestEncodeWindowUnknownSymbol(t *testing.T) {
	a := NewAlphabet()
	enc, err := NewEncoder(a, 2)
	assert.NoError(t, err)
	_, err = enc.EncodeWindow("ACDEFGHIX", "AC")
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestEncodePeptideSlidingWindows(t *testing.T) {
	a := NewAlphabet()
	enc, err := NewEncoder(a, 4)
	assert.NoError(t, err)

	// length 9 - exactly one window, weight 1
	vecs, w, err := enc.EncodePeptide("ACDEFGHIK", "ACDE")
	assert.NoError(t, err)
	assert.Equal(t, 1, len(vecs))
	assert.Equal(t, 1.0, w)
	assert.Equal(t, enc.VectorLen(), len(vecs[0]))

	// length 12 - four windows, each weighted 0.25
	vecs, w, err = enc.EncodePeptide("ACDEFGHIKLMN", "ACDE")
	assert.NoError(t, err)
	assert.Equal(t, 4, len(vecs))
	assert.Equal(t, 0.25, w)

	first, err := enc.EncodeWindow("ACDEFGHIK", "ACDE")
	assert.NoError(t, err)
	last, err := enc.EncodeWindow("EFGHIKLMN", "ACDE")
	assert.NoError(t, err)
	assert.Equal(t, first, vecs[0])
	assert.Equal(t, last, vecs[3])
}

func TestEncodePeptideTooShort(t *testing.T) {
	a := NewAlphabet()
	enc, err := NewEncoder(a, 2)
	assert.NoError(t, err)
	_, _, err = enc.EncodePeptide("ACDEFGHI", "AC")
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
