package knowledge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

func testChunks(urls ...string) []Chunk {
	chunks := make([]Chunk, len(urls))
	for i, u := range urls {
		chunks[i] = Chunk{Text: "text from " + u, SourceURL: u, SequenceIndex: i}
	}
	return chunks
}

func TestNewCorpus_CardinalityMismatch(t *testing.T) {
	_, err := NewCorpus("m", 2, testChunks("a", "b"), []float32{1, 0, 0})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))

	_, err = NewCorpusFromRows("m", testChunks("a", "b"), [][]float32{{1, 0}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestNewCorpusFromRows_RaggedRows(t *testing.T) {
	_, err := NewCorpusFromRows("m", testChunks("a", "b"), [][]float32{{1, 0}, {1, 0, 0}})
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}

func TestCorpus_AlignmentNeverShifts(t *testing.T) {
	chunks := testChunks("https://a", "https://b", "https://c", "https://d")
	rows := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
		{1, 1, 0},
	}
	corpus, err := NewCorpusFromRows("m", chunks, rows)
	require.NoError(t, err)

	for i := range rows {
		assert.Equal(t, rows[i], corpus.Vector(i))
		assert.Equal(t, chunks[i], corpus.Chunk(i))
	}

	// 每个查询都取该行向量本身，排名第一的必须是同一分块
	for i := range rows {
		ranked, err := Rank(rows[i], corpus)
		require.NoError(t, err)
		top := ranked[0]
		assert.Equal(t, chunks[i].SourceURL, corpus.Chunk(top.Index).SourceURL)
		assert.Equal(t, corpus.Vector(top.Index), rows[i])
	}
}

func TestCorpus_Empty(t *testing.T) {
	corpus, err := NewCorpus("m", 0, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, corpus.Len())
	assert.NoError(t, corpus.CheckEmbedder("other", 1536))
}

func TestCorpus_CheckEmbedder(t *testing.T) {
	corpus, err := NewCorpusFromRows("text-embedding-3-small", testChunks("a"), [][]float32{{1, 2, 3}})
	require.NoError(t, err)

	assert.NoError(t, corpus.CheckEmbedder("text-embedding-3-small", 3))
	assert.NoError(t, corpus.CheckEmbedder("text-embedding-3-small", 0))

	err = corpus.CheckEmbedder("text-embedding-3-large", 3)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))

	err = corpus.CheckEmbedder("text-embedding-3-small", 1536)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}
