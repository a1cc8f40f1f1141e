package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aihub/school-assistant/internal/knowledge"
)

func fiveChunkCorpus(t *testing.T) *knowledge.Corpus {
	t.Helper()
	chunks := make([]knowledge.Chunk, 5)
	rows := make([][]float32, 5)
	for i := range chunks {
		chunks[i] = knowledge.Chunk{
			Text:          fmt.Sprintf("passage %d", i),
			SourceURL:     fmt.Sprintf("https://example.org/%d", i),
			SequenceIndex: i,
		}
		rows[i] = []float32{float32(i + 1), 1}
	}
	corpus, err := knowledge.NewCorpusFromRows("test-model", chunks, rows)
	require.NoError(t, err)
	return corpus
}

func TestContextAssembler_UsesAllWhenFewerThanK(t *testing.T) {
	corpus := fiveChunkCorpus(t)
	ranked, err := knowledge.Rank([]float32{1, 0}, corpus)
	require.NoError(t, err)

	a := NewContextAssembler(20)
	passages := a.Select(ranked, corpus)

	assert.Len(t, passages, 5)
}

func TestContextAssembler_NeverExceedsK(t *testing.T) {
	corpus := fiveChunkCorpus(t)
	ranked, err := knowledge.Rank([]float32{1, 0}, corpus)
	require.NoError(t, err)

	a := NewContextAssembler(2)
	passages := a.Select(ranked, corpus)

	require.Len(t, passages, 2)
	assert.Equal(t, corpus.Chunk(ranked[0].Index).Text, passages[0])
	assert.Equal(t, corpus.Chunk(ranked[1].Index).Text, passages[1])
}

func TestContextAssembler_DefaultTopK(t *testing.T) {
	assert.Equal(t, DefaultTopK, NewContextAssembler(0).TopK())
	assert.Equal(t, DefaultTopK, NewContextAssembler(-3).TopK())
	assert.Equal(t, 7, NewContextAssembler(7).TopK())
}

func TestContextAssembler_PromptShape(t *testing.T) {
	corpus := fiveChunkCorpus(t)
	ranked := []knowledge.RankedChunk{{Index: 3, Score: 0.9}, {Index: 1, Score: 0.5}}

	got := NewContextAssembler(20).Assemble("When is sports day?", ranked, corpus)

	assert.Equal(t, []string{"passage 3", "passage 1"}, got.Passages)
	assert.Equal(t,
		"Use these passages:\n\npassage 3\n---\npassage 1\n\nQuestion: When is sports day?\nAnswer:",
		got.Prompt)
}

func TestContextAssembler_EmptyRanking(t *testing.T) {
	corpus := fiveChunkCorpus(t)

	got := NewContextAssembler(20).Assemble("Anything?", nil, corpus)

	assert.Empty(t, got.Passages)
	assert.Equal(t, "Use these passages:\n\n\n\nQuestion: Anything?\nAnswer:", got.Prompt)
}

func TestPromptBuilder_SystemInstruction(t *testing.T) {
	now := func() time.Time { return time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC) }
	p := NewPromptBuilder("Ripley Court School", testGreeting, testFooter, testUnknown, now)

	got := p.SystemInstruction()

	assert.Contains(t, got, "assistant for Ripley Court School.")
	assert.Contains(t, got, "Today's date is 2024-03-05.")
	assert.Contains(t, got, "Begin with '"+testGreeting+"' and end with '"+testFooter+"'.")
	assert.Contains(t, got, "If you do not know the answer, say '"+testUnknown+"'")
	assert.Contains(t, got, "British spelling")
}

func TestPromptBuilder_DateIsPerCall(t *testing.T) {
	day := time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)
	p := NewPromptBuilder("School", testGreeting, testFooter, testUnknown, func() time.Time { return day })

	assert.Contains(t, p.SystemInstruction(), "2024-12-31")
	day = day.Add(2 * time.Hour)
	assert.Contains(t, p.SystemInstruction(), "2025-01-01")
}
