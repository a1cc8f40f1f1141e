package services

import (
	"strings"

	"github.com/aihub/school-assistant/internal/knowledge"
)

const (
	// DefaultTopK 默认上下文分块数
	DefaultTopK = 20

	contextPreamble  = "Use these passages:\n\n"
	contextDelimiter = "\n---\n"
)

// AssembledContext 单次请求的上下文
type AssembledContext struct {
	Passages []string
	Prompt   string
}

// ContextAssembler 取排名前K的分块拼接成提示词
type ContextAssembler struct {
	topK int
}

// NewContextAssembler 创建上下文拼接器
func NewContextAssembler(topK int) *ContextAssembler {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &ContextAssembler{topK: topK}
}

// TopK 上下文分块上限
func (a *ContextAssembler) TopK() int {
	return a.topK
}

// Select 按排名取至多K个分块正文
func (a *ContextAssembler) Select(ranked []knowledge.RankedChunk, corpus *knowledge.Corpus) []string {
	n := len(ranked)
	if n > a.topK {
		n = a.topK
	}
	passages := make([]string, 0, n)
	for _, r := range ranked[:n] {
		passages = append(passages, corpus.Chunk(r.Index).Text)
	}
	return passages
}

// Assemble 前导语 + 分隔的分块 + 问题与 "Answer:" 提示
func (a *ContextAssembler) Assemble(question string, ranked []knowledge.RankedChunk, corpus *knowledge.Corpus) AssembledContext {
	passages := a.Select(ranked, corpus)

	var b strings.Builder
	b.WriteString(contextPreamble)
	b.WriteString(strings.Join(passages, contextDelimiter))
	b.WriteString("\n\nQuestion: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")

	return AssembledContext{Passages: passages, Prompt: b.String()}
}
