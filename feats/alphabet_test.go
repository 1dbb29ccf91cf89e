package feats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPairIndexRoundTrip(t *testing.T) {
	a := NewAlphabet()
	seen := make(map[int]bool)
	for i := 0; i < NumAminoAcids; i++ {
		for j := 0; j < NumAminoAcids; j++ {
			pep := AminoAcidLetters[i]
			mhc := AminoAcidLetters[j]
			idx, err := a.PairIndex(pep, mhc)
			assert.NoError(t, err)
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, NumAminoAcidPairs)
			assert.False(t, seen[idx], "pair index %d assigned twice", idx)
			seen[idx] = true

			p2, m2, err := a.IndexToPair(idx)
			assert.NoError(t, err)
			assert.Equal(t, pep, p2)
			assert.Equal(t, mhc, m2)
		}
	}
	assert.Equal(t, NumAminoAcidPairs, len(seen))
}

func TestPairIndexFirstPair(t *testing.T) {
	a := NewAlphabet()
	idx, err := a.PairIndex('A', 'A')
	assert.NoError(t, err)
	assert.Equal(t, 0, idx)
}

func TestPairIndexUnknownSymbol(t *testing.T) {
	a := NewAlphabet()
	_, err := a.PairIndex('B', 'A')
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = a.PairIndex('A', 'Z')
	assert.ErrorIs(t, err, ErrUnknownSymbol)
	_, err = a.Rank('*')
	assert.ErrorIs(t, err, ErrUnknownSymbol)
}

func TestPairKey(t *testing.T) {
	a := NewAlphabet()
	idx, err := a.PairIndex('C', 'W')
	assert.NoError(t, err)
	key, err := a.PairKey(idx)
	assert.NoError(t, err)
	assert.Equal(t, "CW", key)
}
