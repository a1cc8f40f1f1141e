package knowledge

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/aihub/school-assistant/internal/errors"
	"github.com/aihub/school-assistant/internal/logger"
)

// Page 外部抓取步骤产出的页面正文
type Page struct {
	URL  string `json:"url"`
	Text string `json:"text"`
}

// ReadPages 读取JSONL页面文件
func ReadPages(path string) ([]Page, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open pages file %s: %w", path, err)
	}
	defer f.Close()

	var pages []Page
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := scanner.Bytes()
		if len(strings.TrimSpace(string(raw))) == 0 {
			continue
		}
		var p Page
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("invalid page at line %d: %w", line, err)
		}
		if p.URL == "" {
			return nil, fmt.Errorf("page at line %d has no url", line)
		}
		pages = append(pages, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("cannot read pages file %s: %w", path, err)
	}
	return pages, nil
}

// ChunkPages 按页面顺序切分全部页面
func ChunkPages(pages []Page, chunker *Chunker) []Chunk {
	var chunks []Chunk
	for _, p := range pages {
		chunks = append(chunks, chunker.Split(p.URL, p.Text)...)
	}
	return chunks
}

// BuildOptions 索引构建参数
type BuildOptions struct {
	MaxRetries      int
	InitialInterval time.Duration
	// Previous 已有索引，文本哈希相同且模型一致时复用向量
	Previous *Corpus
	Progress func(done, total int)
}

// BuildStats 构建统计
type BuildStats struct {
	Embedded int
	Reused   int
}

// Builder 逐块生成嵌入向量并组装语料
type Builder struct {
	embedder Embedder
	opts     BuildOptions
}

// NewBuilder 创建索引构建器
func NewBuilder(embedder Embedder, opts BuildOptions) *Builder {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	return &Builder{embedder: embedder, opts: opts}
}

// Build 嵌入全部分块，任一分块重试耗尽即整体失败
func (b *Builder) Build(ctx context.Context, chunks []Chunk) (*Corpus, BuildStats, error) {
	var stats BuildStats
	reuse := b.reusableVectors()

	dim := 0
	vectors := make([]float32, 0, len(chunks)*b.embedder.Dimensions())
	out := make([]Chunk, len(chunks))
	for i, c := range chunks {
		if c.TextHash == "" {
			c.TextHash = TextHash(c.Text)
		}
		out[i] = c

		vec, ok := reuse[c.TextHash]
		if ok {
			stats.Reused++
		} else {
			var err error
			vec, err = b.embedWithRetry(ctx, i, c.Text)
			if err != nil {
				return nil, stats, err
			}
			stats.Embedded++
		}

		if dim == 0 {
			dim = len(vec)
		}
		if len(vec) != dim {
			return nil, stats, apperrors.NewConfigurationError(fmt.Sprintf(
				"chunk %d embedded with dimension %d, expected %d", i, len(vec), dim))
		}
		vectors = append(vectors, vec...)

		if b.opts.Progress != nil {
			b.opts.Progress(i+1, len(chunks))
		}
	}

	corpus, err := NewCorpus(b.embedder.ModelID(), dim, out, vectors)
	return corpus, stats, err
}

func (b *Builder) reusableVectors() map[string][]float32 {
	prev := b.opts.Previous
	if prev == nil || prev.ModelID() != b.embedder.ModelID() {
		return nil
	}
	reuse := make(map[string][]float32, prev.Len())
	for i := 0; i < prev.Len(); i++ {
		if h := prev.Chunk(i).TextHash; h != "" {
			reuse[h] = prev.Vector(i)
		}
	}
	return reuse
}

func (b *Builder) embedWithRetry(ctx context.Context, index int, text string) ([]float32, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = b.opts.InitialInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(b.opts.MaxRetries)), ctx)

	var vec []float32
	operation := func() error {
		v, err := b.embedder.Embed(ctx, text)
		if err != nil {
			if errors.Is(err, ErrEmbedderNotConfigured) {
				return backoff.Permanent(err)
			}
			return err
		}
		vec = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Embedding chunk failed, retrying",
			zap.Int("chunk", index),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		return nil, apperrors.NewCollaboratorError("embedding", fmt.Errorf("chunk %d: %w", index, err))
	}
	return vec, nil
}
