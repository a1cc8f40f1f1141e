package knowledge

import (
	"strings"
)

// Chunker 按词元窗口切分页面文本，相邻窗口重叠
type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

// NewChunker 创建分块器
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &Chunker{
		chunkSize:    chunkSize,
		chunkOverlap: overlap,
	}
}

// Split 将一页文本切分为分块，SequenceIndex为页内序号
func (c *Chunker) Split(sourceURL, text string) []Chunk {
	tokens := strings.Fields(text)
	if len(tokens) == 0 {
		return nil
	}

	step := c.chunkSize - c.chunkOverlap
	var chunks []Chunk
	for start := 0; start < len(tokens); start += step {
		end := start + c.chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		body := strings.Join(tokens[start:end], " ")
		chunks = append(chunks, Chunk{
			Text:          body,
			SourceURL:     sourceURL,
			SequenceIndex: len(chunks),
			TextHash:      TextHash(body),
		})
		if end == len(tokens) {
			break
		}
	}
	return chunks
}
