package knowledge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func words(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(parts, " ")
}

func TestChunker_Overlap(t *testing.T) {
	c := NewChunker(10, 3)
	chunks := c.Split("https://example.com/page", words(24))

	require.Len(t, chunks, 3)
	assert.Equal(t, "w0 w1 w2 w3 w4 w5 w6 w7 w8 w9", chunks[0].Text)
	assert.True(t, strings.HasPrefix(chunks[1].Text, "w7 w8 w9 w10"))
	assert.True(t, strings.HasSuffix(chunks[2].Text, "w23"))

	for i, ch := range chunks {
		assert.Equal(t, i, ch.SequenceIndex)
		assert.Equal(t, "https://example.com/page", ch.SourceURL)
		assert.Equal(t, TextHash(ch.Text), ch.TextHash)
	}
}

func TestChunker_ShortText(t *testing.T) {
	chunks := NewChunker(500, 50).Split("u", "  Ripley   Court\n\tSchool ")
	require.Len(t, chunks, 1)
	assert.Equal(t, "Ripley Court School", chunks[0].Text)
}

func TestChunker_Empty(t *testing.T) {
	assert.Nil(t, NewChunker(500, 50).Split("u", " \n\t "))
}

func TestNewChunker_InvalidOverlap(t *testing.T) {
	c := NewChunker(10, 10)
	assert.Equal(t, 1, c.chunkOverlap)

	c = NewChunker(0, -1)
	assert.Equal(t, 500, c.chunkSize)
	assert.Equal(t, 0, c.chunkOverlap)
}

func TestChunkPages(t *testing.T) {
	pages := []Page{
		{URL: "https://a", Text: words(15)},
		{URL: "https://b", Text: words(5)},
	}
	chunks := ChunkPages(pages, NewChunker(10, 0))

	require.Len(t, chunks, 3)
	assert.Equal(t, "https://a", chunks[0].SourceURL)
	assert.Equal(t, 1, chunks[1].SequenceIndex)
	assert.Equal(t, "https://b", chunks[2].SourceURL)
	assert.Equal(t, 0, chunks[2].SequenceIndex)
}
