package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/aihub/school-assistant/internal/catalog"
	apperrors "github.com/aihub/school-assistant/internal/errors"
	"github.com/aihub/school-assistant/internal/knowledge"
	"github.com/aihub/school-assistant/internal/logger"
)

// 流水线阶段
const (
	StageShortcut   = "shortcut"
	StageEmbedding  = "embedding"
	StageRanking    = "ranking"
	StageGeneration = "generation"
)

// Answer 对外返回的回答，url与link_label可为空
type Answer struct {
	Body      string  `json:"answer"`
	URL       *string `json:"url"`
	LinkLabel *string `json:"link_label"`
}

func newAnswer(body, url, label string) *Answer {
	a := &Answer{Body: body}
	if url != "" {
		a.URL = &url
	}
	if label != "" {
		a.LinkLabel = &label
	}
	return a
}

// AssistantOptions 问答服务参数
type AssistantOptions struct {
	TopK             int
	RequestTimeout   time.Duration
	SchoolName       string
	Greeting         string
	Footer           string
	UnknownAnswer    string
	MinKeywordLength int
	FuzzyThreshold   int
	WelcomeTrigger   string
	GuardPrefixes    []string
	// MaxQuestionLength 问题最大字符数，0表示不限制
	MaxQuestionLength int
	Now               func() time.Time
}

// AssistantService 问答流水线：快捷查找 → 向量检索 → 生成 → 格式化 → 选链接
type AssistantService struct {
	corpus    *knowledge.Corpus
	embedder  knowledge.Embedder
	generator knowledge.Generator

	shortcuts *ShortcutService
	links     *LinkResolver
	assembler *ContextAssembler
	formatter *AnswerFormatter
	prompt    *PromptBuilder
	metrics   *AssistantMetrics

	unknownAnswer string
	timeout       time.Duration
	maxQuestion   int
}

// NewAssistantService 创建问答服务，语料与嵌入模型不一致时返回ConfigurationError
func NewAssistantService(
	corpus *knowledge.Corpus,
	cat *catalog.Catalog,
	embedder knowledge.Embedder,
	generator knowledge.Generator,
	metrics *AssistantMetrics,
	opts AssistantOptions,
) (*AssistantService, error) {
	if corpus == nil {
		return nil, apperrors.NewConfigurationError("corpus is not loaded")
	}
	if cat == nil {
		return nil, apperrors.NewConfigurationError("catalog is not loaded")
	}
	if err := corpus.CheckEmbedder(embedder.ModelID(), embedder.Dimensions()); err != nil {
		return nil, err
	}

	formatter := NewAnswerFormatter(opts.Greeting, opts.Footer)
	return &AssistantService{
		corpus:    corpus,
		embedder:  embedder,
		generator: generator,
		shortcuts: NewShortcutService(cat, formatter, ShortcutOptions{
			FuzzyThreshold: opts.FuzzyThreshold,
			WelcomeTrigger: opts.WelcomeTrigger,
			GuardPrefixes:  opts.GuardPrefixes,
			UnknownAnswer:  opts.UnknownAnswer,
		}),
		links:         NewLinkResolver(cat, opts.MinKeywordLength),
		assembler:     NewContextAssembler(opts.TopK),
		formatter:     formatter,
		prompt:        NewPromptBuilder(opts.SchoolName, opts.Greeting, opts.Footer, opts.UnknownAnswer, opts.Now),
		metrics:       metrics,
		unknownAnswer: opts.UnknownAnswer,
		timeout:       opts.RequestTimeout,
		maxQuestion:   opts.MaxQuestionLength,
	}, nil
}

// Ready 生成与嵌入协作方均已配置
func (s *AssistantService) Ready() bool {
	return s.embedder.Ready() && s.generator.Ready()
}

// breakerStats 带熔断保护的协作方
type breakerStats interface {
	Stats() map[string]interface{}
}

// Breakers 按熔断器名返回协作方熔断状态，未包装熔断的协作方不出现
func (s *AssistantService) Breakers() map[string]interface{} {
	out := map[string]interface{}{}
	for _, c := range []interface{}{s.embedder, s.generator} {
		if b, ok := c.(breakerStats); ok {
			stats := b.Stats()
			out[fmt.Sprint(stats["name"])] = stats
		}
	}
	return out
}

// CorpusSize 语料分块数
func (s *AssistantService) CorpusSize() int {
	return s.corpus.Len()
}

// Ask 回答一个问题，协作方失败不重试，整体失败
func (s *AssistantService) Ask(ctx context.Context, question string) (*Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, apperrors.NewValidationError("No question provided")
	}
	if s.maxQuestion > 0 && utf8.RuneCountInString(question) > s.maxQuestion {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("Question is too long (maximum %d characters)", s.maxQuestion))
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	requestID := RequestIDFromContext(ctx)
	key := NormalizeKey(question)

	if answer, route, ok := s.shortcuts.Lookup(ctx, question, key); ok {
		s.finish(route, requestID, started)
		return answer, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, s.fail(requestID, collaboratorFailure(ctx, StageShortcut, err))
	}

	if s.corpus.Len() == 0 {
		logger.Warn("Corpus is empty, answering without retrieval",
			zap.String("request_id", requestID))
		s.metrics.RecordEmptyCorpus()
		url, _ := s.links.KeywordLink(key)
		answer := newAnswer(s.formatter.Format(s.unknownAnswer), url, s.links.Label(url))
		s.finish(RouteEmptyCorpus, requestID, started)
		return answer, nil
	}

	answer, err := s.retrieveAndGenerate(ctx, question, key)
	if err != nil {
		return nil, s.fail(requestID, err)
	}
	s.finish(RouteRAG, requestID, started)
	return answer, nil
}

// fail 记录失败指标与日志，返回AppError
func (s *AssistantService) fail(requestID string, err error) *apperrors.AppError {
	appErr := apperrors.GetAppError(err)
	s.metrics.RecordFailure(string(appErr.Code))
	logger.Error("Failed to answer question",
		zap.String("request_id", requestID),
		zap.String("code", string(appErr.Code)),
		zap.Error(err))
	return appErr
}

func (s *AssistantService) retrieveAndGenerate(ctx context.Context, question, key string) (*Answer, error) {
	stageStart := time.Now()
	queryVec, err := s.embedder.Embed(ctx, question)
	s.metrics.ObserveStage(StageEmbedding, stageStart)
	if err != nil {
		return nil, collaboratorFailure(ctx, StageEmbedding, err)
	}

	stageStart = time.Now()
	ranked, err := knowledge.Rank(queryVec, s.corpus)
	s.metrics.ObserveStage(StageRanking, stageStart)
	if err != nil {
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("query embedding has %d dimensions, index has %d", len(queryVec), s.corpus.Dim()),
		).WithCause(err)
	}

	assembled := s.assembler.Assemble(question, ranked, s.corpus)
	messages := []knowledge.Message{
		{Role: knowledge.RoleSystem, Content: s.prompt.SystemInstruction()},
		{Role: knowledge.RoleUser, Content: assembled.Prompt},
	}

	stageStart = time.Now()
	raw, err := s.generator.Generate(ctx, messages)
	s.metrics.ObserveStage(StageGeneration, stageStart)
	if err != nil {
		return nil, collaboratorFailure(ctx, StageGeneration, err)
	}

	url, ok := s.links.KeywordLink(key)
	if !ok && len(ranked) > 0 {
		url = s.corpus.Chunk(ranked[0].Index).SourceURL
	}
	return newAnswer(s.formatter.Format(raw), url, s.links.Label(url)), nil
}

func (s *AssistantService) finish(route, requestID string, started time.Time) {
	s.metrics.RecordAnswer(route)
	logger.Info("Question answered",
		zap.String("route", route),
		zap.String("request_id", requestID),
		zap.Duration("latency", time.Since(started)))
}

// collaboratorFailure 超时优先归为TimeoutError，其余为CollaboratorError
func collaboratorFailure(ctx context.Context, stage string, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(stage, err)
	}
	return apperrors.NewCollaboratorError(stage, err)
}

type requestIDKey struct{}

// WithRequestID 把请求ID放入上下文
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext 取请求ID，没有时为空
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
