package knowledge

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosine_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for n := 0; n < 500; n++ {
		dim := 1 + rng.Intn(16)
		a := make([]float32, dim)
		b := make([]float32, dim)
		for i := range a {
			a[i] = float32(rng.NormFloat64() * 10)
			b[i] = float32(rng.NormFloat64() * 10)
		}
		s, err := Cosine(a, b)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, s, -1-1e-6)
		assert.LessOrEqual(t, s, 1+1e-6)
	}
}

func TestCosine_KnownValues(t *testing.T) {
	s, err := Cosine([]float32{1, 0}, []float32{1, 0})
	require.NoError(t, err)
	assert.InDelta(t, 1.0, s, 1e-6)

	s, err = Cosine([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, s, 1e-6)

	s, err = Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, s, 1e-6)
}

func TestCosine_ZeroVector(t *testing.T) {
	s, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, s)
	assert.False(t, math.IsNaN(s))
}

func TestCosine_LengthMismatch(t *testing.T) {
	_, err := Cosine([]float32{1}, []float32{1, 2})
	assert.ErrorIs(t, err, ErrVectorLengthMismatch)
}

func TestRank_OrderAndDeterminism(t *testing.T) {
	corpus, err := NewCorpusFromRows("m", testChunks("a", "b", "c", "d", "e"), [][]float32{
		{0, 1},
		{1, 0},
		{1, 1},
		{1, 0},
		{-1, 0},
	})
	require.NoError(t, err)

	first, err := Rank([]float32{1, 0}, corpus)
	require.NoError(t, err)
	require.Len(t, first, 5)

	order := make([]int, len(first))
	for i, r := range first {
		order[i] = r.Index
	}
	// 1和3分数相同，按原始下标升序
	assert.Equal(t, []int{1, 3, 2, 0, 4}, order)

	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}

	for n := 0; n < 20; n++ {
		again, err := Rank([]float32{1, 0}, corpus)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRank_AllTies(t *testing.T) {
	rows := make([][]float32, 8)
	for i := range rows {
		rows[i] = []float32{2, 2}
	}
	corpus, err := NewCorpusFromRows("m", testChunks("a", "b", "c", "d", "e", "f", "g", "h"), rows)
	require.NoError(t, err)

	ranked, err := Rank([]float32{1, 1}, corpus)
	require.NoError(t, err)
	for i, r := range ranked {
		assert.Equal(t, i, r.Index)
	}
}

func TestRank_EmptyCorpus(t *testing.T) {
	corpus, err := NewCorpus("m", 0, nil, nil)
	require.NoError(t, err)

	ranked, err := Rank([]float32{1, 2, 3}, corpus)
	require.NoError(t, err)
	assert.NotNil(t, ranked)
	assert.Empty(t, ranked)

	ranked, err = Rank([]float32{1}, nil)
	require.NoError(t, err)
	assert.Empty(t, ranked)
}

func TestRank_QueryDimensionMismatch(t *testing.T) {
	corpus, err := NewCorpusFromRows("m", testChunks("a"), [][]float32{{1, 0}})
	require.NoError(t, err)

	_, err = Rank([]float32{1, 0, 0}, corpus)
	assert.ErrorIs(t, err, ErrVectorLengthMismatch)
}
