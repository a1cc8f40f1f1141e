package bootstrap

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/app/controllers"
	"github.com/aihub/school-assistant/app/middleware"
	"github.com/aihub/school-assistant/app/router"
	"github.com/aihub/school-assistant/internal/config"
	"github.com/aihub/school-assistant/internal/di"
	"github.com/aihub/school-assistant/internal/logger"
	"github.com/aihub/school-assistant/internal/services"
)

// rateLimitWindow 限流窗口，server.rate_limit 为每窗口请求数
const rateLimitWindow = time.Minute

// App encapsulates lifecycle resources that need to be cleaned up on shutdown.
type App struct {
	Config    *config.Config
	Container *dig.Container
	Registry  *prometheus.Registry
	Assistant *services.AssistantService
	Limiter   middleware.Limiter
	Proxies   *middleware.TrustedProxies

	cleanupTasks []func() error
}

// Init loads .env and configuration, initialises the logger, metrics registry,
// optional Redis, and the dependency container. The corpus is loaded here so a
// misaligned or mismatched index fails startup.
func Init() (*App, error) {
	// Load environment variables from .env if present (non-fatal if missing).
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	if err := config.LoadConfig(); err != nil {
		return nil, err
	}
	cfg := config.AppConfig

	if err := logger.InitLogger(cfg.Server.Mode, cfg.Server.LogLevel); err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	app := &App{Config: cfg, Registry: registry}

	container, err := di.BuildContainer(cfg, registry)
	if err != nil {
		return nil, err
	}
	app.Container = container

	if err := container.Invoke(func(a *services.AssistantService) {
		app.Assistant = a
	}); err != nil {
		return nil, fmt.Errorf("failed to initialise assistant: %w", dig.RootCause(err))
	}

	if cfg.Server.RateLimit > 0 {
		app.Limiter = app.newLimiter(cfg)
	}
	if app.Proxies, err = middleware.NewTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}

	logger.Info("Assistant initialised",
		zap.Int("corpus_chunks", app.Assistant.CorpusSize()),
		zap.Bool("collaborators_ready", app.Assistant.Ready()),
		zap.String("embedding_model", cfg.AI.EmbeddingModel),
		zap.String("chat_model", cfg.AI.ChatModel))
	return app, nil
}

// newLimiter Redis可用时使用共享计数，否则退回内存限流
func (a *App) newLimiter(cfg *config.Config) middleware.Limiter {
	if cfg.Redis.Enabled {
		client, err := connectRedis(cfg.Redis.URL)
		if err != nil {
			// Redis is optional. Failure shouldn't block the app.
			logger.Warn("Failed to initialize Redis, using in-memory rate limiting", zap.Error(err))
		} else {
			a.cleanupTasks = append(a.cleanupTasks, client.Close)
			logger.Info("Redis rate limiting enabled", zap.Int("requests_per_minute", cfg.Server.RateLimit))
			return middleware.NewRedisRateLimiter(client, cfg.Server.RateLimit, rateLimitWindow)
		}
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit, rateLimitWindow)
	a.cleanupTasks = append(a.cleanupTasks, limiter.Close)
	return limiter
}

func connectRedis(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// RegisterRoutes 用容器中的服务构建控制器并注册路由
func (a *App) RegisterRoutes() error {
	factory := controllers.NewControllerFactory(a.Container)

	ask, err := factory.CreateAskController()
	if err != nil {
		return err
	}
	health, err := factory.CreateHealthController()
	if err != nil {
		return err
	}
	metrics, err := factory.CreateMetricsController()
	if err != nil {
		return err
	}

	return router.Init(router.Dependencies{
		Ask:            ask,
		Health:         health,
		Metrics:        metrics,
		AllowedOrigins: a.Config.Server.AllowedOrigins,
		Limiter:        a.Limiter,
		TrustedProxies: a.Proxies,
	})
}

// Shutdown flushes/logs and closes resources gracefully.
func (a *App) Shutdown() {
	// Execute cleanup tasks in reverse order (best effort).
	for i := len(a.cleanupTasks) - 1; i >= 0; i-- {
		if err := a.cleanupTasks[i](); err != nil {
			log.Printf("Cleanup error: %v\n", err)
		}
	}

	// Flush logger buffers.
	logger.Sync()
}
