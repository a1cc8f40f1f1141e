package knowledge

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

// Chunk 语料分块，生成后不可变
type Chunk struct {
	Text          string `json:"text"`
	SourceURL     string `json:"source_url"`
	SequenceIndex int    `json:"sequence_index"`
	TextHash      string `json:"text_hash,omitempty"`
}

// Corpus 分块存储与嵌入索引，第i行向量对应第i个分块
//
// Corpus在进程启动时加载一次，之后只读，可被并发请求共享。
type Corpus struct {
	modelID string
	dim     int
	chunks  []Chunk
	vectors []float32
	norms   []float64
}

// NewCorpus 以行优先的扁平向量构建语料，基数或维度不一致时返回配置错误
func NewCorpus(modelID string, dim int, chunks []Chunk, vectors []float32) (*Corpus, error) {
	if len(chunks) > 0 && dim <= 0 {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf("invalid embedding dimension %d for %d chunks", dim, len(chunks)))
	}
	if len(vectors) != len(chunks)*dim {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf(
			"embedding index and chunk store disagree: %d floats for %d chunks of dim %d", len(vectors), len(chunks), dim))
	}

	c := &Corpus{
		modelID: modelID,
		dim:     dim,
		chunks:  chunks,
		vectors: vectors,
		norms:   make([]float64, len(chunks)),
	}
	for i := range chunks {
		c.norms[i] = vectorNorm(c.Vector(i))
	}
	return c, nil
}

// NewCorpusFromRows 以逐行向量构建语料
func NewCorpusFromRows(modelID string, chunks []Chunk, rows [][]float32) (*Corpus, error) {
	if len(rows) != len(chunks) {
		return nil, apperrors.NewConfigurationError(fmt.Sprintf(
			"embedding index and chunk store disagree: %d vectors for %d chunks", len(rows), len(chunks)))
	}
	dim := 0
	if len(rows) > 0 {
		dim = len(rows[0])
	}
	flat := make([]float32, 0, len(rows)*dim)
	for i, row := range rows {
		if len(row) != dim {
			return nil, apperrors.NewConfigurationError(fmt.Sprintf(
				"embedding %d has dimension %d, expected %d", i, len(row), dim))
		}
		flat = append(flat, row...)
	}
	return NewCorpus(modelID, dim, chunks, flat)
}

// Len 分块数量
func (c *Corpus) Len() int {
	return len(c.chunks)
}

// Dim 向量维度，空语料为0
func (c *Corpus) Dim() int {
	return c.dim
}

// ModelID 构建索引时使用的嵌入模型
func (c *Corpus) ModelID() string {
	return c.modelID
}

// Chunk 返回第i个分块
func (c *Corpus) Chunk(i int) Chunk {
	return c.chunks[i]
}

// Chunks 返回全部分块的副本
func (c *Corpus) Chunks() []Chunk {
	out := make([]Chunk, len(c.chunks))
	copy(out, c.chunks)
	return out
}

// Vector 返回第i个向量，调用方不得修改
func (c *Corpus) Vector(i int) []float32 {
	return c.vectors[i*c.dim : (i+1)*c.dim]
}

// Vectors 返回扁平向量，调用方不得修改
func (c *Corpus) Vectors() []float32 {
	return c.vectors
}

// CheckEmbedder 校验运行时嵌入模型与索引一致
func (c *Corpus) CheckEmbedder(modelID string, dims int) error {
	if c.Len() == 0 {
		return nil
	}
	if c.modelID != "" && modelID != "" && c.modelID != modelID {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"index was built with model %q but embedder uses %q", c.modelID, modelID))
	}
	if dims > 0 && dims != c.dim {
		return apperrors.NewConfigurationError(fmt.Sprintf(
			"index dimension %d does not match embedder dimension %d", c.dim, dims))
	}
	return nil
}

// TextHash 分块文本哈希，用于增量重建时复用向量
func TextHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

func vectorNorm(vec []float32) float64 {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum)
}
