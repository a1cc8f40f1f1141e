package knowledge

import (
	"errors"
	"fmt"
	"sort"
)

// cosineEpsilon 防止零向量时除零
const cosineEpsilon = 1e-8

// ErrVectorLengthMismatch 向量长度不一致
var ErrVectorLengthMismatch = errors.New("vector length mismatch")

// RankedChunk 排序结果
type RankedChunk struct {
	Index int
	Score float64
}

// Cosine 计算余弦相似度 dot(a,b) / (|a|*|b| + ε)
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d vs %d", ErrVectorLengthMismatch, len(a), len(b))
	}
	return cosineWithNorms(a, b, vectorNorm(a), vectorNorm(b)), nil
}

func cosineWithNorms(a, b []float32, normA, normB float64) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA*normB + cosineEpsilon)
}

// Rank 对语料全部分块按与查询向量的余弦相似度降序排序，分数相同按原始下标升序
func Rank(query []float32, corpus *Corpus) ([]RankedChunk, error) {
	if corpus == nil || corpus.Len() == 0 {
		return []RankedChunk{}, nil
	}
	if len(query) != corpus.Dim() {
		return nil, fmt.Errorf("%w: query %d vs index %d", ErrVectorLengthMismatch, len(query), corpus.Dim())
	}

	queryNorm := vectorNorm(query)
	ranked := make([]RankedChunk, corpus.Len())
	for i := range ranked {
		ranked[i] = RankedChunk{
			Index: i,
			Score: cosineWithNorms(corpus.Vector(i), query, corpus.norms[i], queryNorm),
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked, nil
}
