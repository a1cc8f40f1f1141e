package di

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/internal/catalog"
	"github.com/aihub/school-assistant/internal/config"
	"github.com/aihub/school-assistant/internal/knowledge"
	"github.com/aihub/school-assistant/internal/logger"
	"github.com/aihub/school-assistant/internal/services"
)

// RegisterProviders 注册所有依赖提供者
func RegisterProviders(container *dig.Container, cfg *config.Config, reg prometheus.Registerer) error {
	if cfg == nil {
		return fmt.Errorf("config not loaded")
	}

	// 注册配置
	if err := container.Provide(func() *config.Config { return cfg }); err != nil {
		return err
	}

	if err := container.Provide(func() prometheus.Registerer { return reg }); err != nil {
		return err
	}

	// 注册页面目录与固定问答
	if err := container.Provide(func(cfg *config.Config) (*catalog.Catalog, error) {
		return catalog.Load(cfg.Assistant.CatalogFile, cfg.Assistant.HeadmasterName)
	}); err != nil {
		return err
	}

	// 注册语料
	if err := container.Provide(func(cfg *config.Config) (*knowledge.Corpus, error) {
		return LoadCorpus(context.Background(), cfg)
	}); err != nil {
		return err
	}

	// 注册OpenAI客户端，未配置Key时为nil
	if err := container.Provide(func(cfg *config.Config) *openai.Client {
		return knowledge.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Timeout)
	}); err != nil {
		return err
	}

	// 注册协作方
	if err := container.Provide(NewEmbedder); err != nil {
		return err
	}

	if err := container.Provide(NewGenerator); err != nil {
		return err
	}

	// 注册服务
	if err := container.Provide(services.NewAssistantMetrics); err != nil {
		return err
	}

	if err := container.Provide(func(
		cfg *config.Config,
		corpus *knowledge.Corpus,
		cat *catalog.Catalog,
		embedder knowledge.Embedder,
		generator knowledge.Generator,
		metrics *services.AssistantMetrics,
	) (*services.AssistantService, error) {
		return services.NewAssistantService(corpus, cat, embedder, generator, metrics, AssistantOptions(cfg))
	}); err != nil {
		return err
	}

	return nil
}

// LoadCorpus 按配置从索引目录或postgres加载语料
func LoadCorpus(ctx context.Context, cfg *config.Config) (*knowledge.Corpus, error) {
	if cfg.Knowledge.Source == "postgres" {
		db, err := knowledge.OpenPostgres(cfg.Knowledge.DatabaseURL)
		if err != nil {
			return nil, err
		}
		source := knowledge.NewDBCorpusSource(db)
		defer closeSource(source)
		corpus, err := source.Load(ctx)
		if err != nil {
			return nil, err
		}
		logger.Info("Corpus loaded from postgres", zap.Int("chunks", corpus.Len()), zap.Int("dim", corpus.Dim()))
		return corpus, nil
	}

	corpus, err := knowledge.LoadIndex(cfg.Knowledge.IndexDir)
	if err != nil {
		return nil, err
	}
	logger.Info("Corpus loaded",
		zap.String("index_dir", cfg.Knowledge.IndexDir),
		zap.Int("chunks", corpus.Len()),
		zap.Int("dim", corpus.Dim()),
		zap.String("model", corpus.ModelID()))
	return corpus, nil
}

func closeSource(source *knowledge.DBCorpusSource) {
	if err := source.Close(); err != nil {
		logger.Warn("Failed to close corpus database", zap.Error(err))
	}
}

// NewEmbedder 熔断保护的嵌入协作方
func NewEmbedder(cfg *config.Config, client *openai.Client) knowledge.Embedder {
	var inner knowledge.Embedder = &knowledge.NoopEmbedder{Model: cfg.AI.EmbeddingModel}
	if client != nil {
		inner = knowledge.NewOpenAIEmbedder(client, cfg.AI.EmbeddingModel)
	} else {
		logger.Warn("OPENAI_API_KEY not set, retrieval answers are disabled")
	}
	breaker := services.NewCircuitBreaker("embedding", cfg.Breaker.MaxFailures, 1, cfg.Breaker.ResetTimeout)
	return services.NewBreakerEmbedder(inner, breaker)
}

// NewGenerator 熔断保护的生成协作方
func NewGenerator(cfg *config.Config, client *openai.Client) knowledge.Generator {
	var inner knowledge.Generator = knowledge.NoopGenerator{}
	if client != nil {
		inner = knowledge.NewOpenAIGenerator(client, cfg.AI.ChatModel, cfg.AI.Temperature, cfg.AI.MaxTokens)
	}
	breaker := services.NewCircuitBreaker("generation", cfg.Breaker.MaxFailures, 1, cfg.Breaker.ResetTimeout)
	return services.NewBreakerGenerator(inner, breaker)
}

// AssistantOptions 配置到问答服务参数
func AssistantOptions(cfg *config.Config) services.AssistantOptions {
	return services.AssistantOptions{
		TopK:              cfg.Knowledge.TopK,
		RequestTimeout:    cfg.Server.RequestTimeout,
		SchoolName:        cfg.Assistant.SchoolName,
		Greeting:          cfg.Assistant.Greeting,
		Footer:            cfg.Assistant.Footer,
		UnknownAnswer:     cfg.Assistant.UnknownAnswer,
		MinKeywordLength:  cfg.Assistant.MinKeywordLength,
		FuzzyThreshold:    cfg.Assistant.FuzzyThreshold,
		WelcomeTrigger:    cfg.Assistant.WelcomeTrigger,
		GuardPrefixes:     cfg.Assistant.GuardPrefixes,
		MaxQuestionLength: cfg.Assistant.MaxQuestionLength,
	}
}
