package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 助手服务配置
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	AI        AIConfig        `mapstructure:"ai" validate:"required"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" validate:"required"`
	Assistant AssistantConfig `mapstructure:"assistant" validate:"required"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port           string        `mapstructure:"port" validate:"required"`
	Mode           string        `mapstructure:"mode" validate:"required,oneof=dev prod"`
	LogLevel       string        `mapstructure:"log_level" validate:"omitempty,oneof=debug info warn error"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RateLimit      int           `mapstructure:"rate_limit" validate:"gte=0"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	StaticDir      string        `mapstructure:"static_dir"`
}

// AIConfig 嵌入与生成协作方配置
type AIConfig struct {
	APIKey         string        `mapstructure:"api_key"`
	BaseURL        string        `mapstructure:"base_url"`
	EmbeddingModel string        `mapstructure:"embedding_model" validate:"required"`
	ChatModel      string        `mapstructure:"chat_model" validate:"required"`
	Temperature    float32       `mapstructure:"temperature" validate:"gte=0,lte=2"`
	MaxTokens      int           `mapstructure:"max_tokens" validate:"gte=0"`
	Timeout        time.Duration `mapstructure:"timeout" validate:"gt=0"`
}

// KnowledgeConfig 语料与索引配置
type KnowledgeConfig struct {
	Source       string `mapstructure:"source" validate:"required,oneof=file postgres"`
	IndexDir     string `mapstructure:"index_dir" validate:"required"`
	TopK         int    `mapstructure:"top_k" validate:"gt=0"`
	ChunkSize    int    `mapstructure:"chunk_size" validate:"gt=0"`
	ChunkOverlap int    `mapstructure:"chunk_overlap" validate:"gte=0,ltfield=ChunkSize"`
	EmbedRetries int    `mapstructure:"embed_retries" validate:"gte=0"`
	DatabaseURL  string `mapstructure:"database_url" validate:"required_if=Source postgres"`
}

// AssistantConfig 回答外观与快捷查找配置
type AssistantConfig struct {
	SchoolName       string   `mapstructure:"school_name" validate:"required"`
	Greeting         string   `mapstructure:"greeting" validate:"required"`
	Footer           string   `mapstructure:"footer" validate:"required"`
	UnknownAnswer    string   `mapstructure:"unknown_answer" validate:"required"`
	HeadmasterName   string   `mapstructure:"headmaster_name" validate:"required"`
	CatalogFile      string   `mapstructure:"catalog_file"`
	MinKeywordLength int      `mapstructure:"min_keyword_length" validate:"gte=0"`
	FuzzyThreshold   int      `mapstructure:"fuzzy_threshold" validate:"gte=0,lte=100"`
	WelcomeTrigger   string   `mapstructure:"welcome_trigger"`
	GuardPrefixes    []string `mapstructure:"guard_prefixes"`
	// MaxQuestionLength 问题最大字符数，限制模糊匹配开销
	MaxQuestionLength int `mapstructure:"max_question_length" validate:"gte=0"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url" validate:"required_if=Enabled true"`
}

// BreakerConfig 熔断器配置
type BreakerConfig struct {
	MaxFailures  int           `mapstructure:"max_failures" validate:"gte=0"`
	ResetTimeout time.Duration `mapstructure:"reset_timeout"`
}

// AppConfig 全局配置
var AppConfig *Config

// LoadConfig 加载全局配置
func LoadConfig() error {
	cfg, err := NewConfigLoader().Load()
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// ConfigLoader 配置加载器
type ConfigLoader struct {
	viper     *viper.Viper
	validator *validator.Validate
}

// NewConfigLoader 创建配置加载器
func NewConfigLoader() *ConfigLoader {
	v := viper.New()
	v.SetEnvPrefix("ASSISTANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return &ConfigLoader{
		viper:     v,
		validator: validator.New(),
	}
}

// Load 依次从默认值、配置文件、环境变量加载配置
func (cl *ConfigLoader) Load() (*Config, error) {
	cl.setDefaults()

	if configFile := os.Getenv("CONFIG_FILE"); configFile != "" {
		cl.viper.SetConfigFile(configFile)
		if err := cl.viper.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	} else {
		cl.viper.SetConfigName("config")
		cl.viper.SetConfigType("yaml")
		cl.viper.AddConfigPath("./configs")
		cl.viper.AddConfigPath(".")
		if err := cl.viper.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cl.loadFromEnv()

	var cfg Config
	if err := cl.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cl.validateConfig(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Set 覆盖单个配置项，命令行参数使用
func (cl *ConfigLoader) Set(key string, value interface{}) {
	cl.viper.Set(key, value)
}

// validateConfig 验证配置
func (cl *ConfigLoader) validateConfig(cfg *Config) error {
	if err := cl.validator.Struct(cfg); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	return nil
}

// setDefaults 设置默认值
func (cl *ConfigLoader) setDefaults() {
	cl.viper.SetDefault("server.port", "5000")
	cl.viper.SetDefault("server.mode", "prod")
	cl.viper.SetDefault("server.log_level", "info")
	cl.viper.SetDefault("server.request_timeout", "60s")
	cl.viper.SetDefault("server.allowed_origins", []string{"*"})
	cl.viper.SetDefault("server.rate_limit", 0)
	cl.viper.SetDefault("server.trusted_proxies", []string{})
	cl.viper.SetDefault("server.static_dir", "static")

	cl.viper.SetDefault("ai.api_key", "")
	cl.viper.SetDefault("ai.base_url", "")
	cl.viper.SetDefault("ai.embedding_model", "text-embedding-3-small")
	cl.viper.SetDefault("ai.chat_model", "gpt-3.5-turbo")
	cl.viper.SetDefault("ai.temperature", 0.7)
	cl.viper.SetDefault("ai.max_tokens", 0)
	cl.viper.SetDefault("ai.timeout", "30s")

	cl.viper.SetDefault("knowledge.source", "file")
	cl.viper.SetDefault("knowledge.index_dir", "data/index")
	cl.viper.SetDefault("knowledge.top_k", 20)
	cl.viper.SetDefault("knowledge.chunk_size", 500)
	cl.viper.SetDefault("knowledge.chunk_overlap", 50)
	cl.viper.SetDefault("knowledge.embed_retries", 3)
	cl.viper.SetDefault("knowledge.database_url", "")

	cl.viper.SetDefault("assistant.school_name", "Ripley Court School")
	cl.viper.SetDefault("assistant.greeting", "Thank you for your question!")
	cl.viper.SetDefault("assistant.footer", "Anything else I can help you with today?")
	cl.viper.SetDefault("assistant.unknown_answer", "I'm sorry, I don't have that information.")
	cl.viper.SetDefault("assistant.headmaster_name", "Mr Gavin Ryan")
	cl.viper.SetDefault("assistant.catalog_file", "configs/catalog.yaml")
	cl.viper.SetDefault("assistant.min_keyword_length", 6)
	cl.viper.SetDefault("assistant.fuzzy_threshold", 80)
	cl.viper.SetDefault("assistant.welcome_trigger", "__welcome__")
	cl.viper.SetDefault("assistant.guard_prefixes", []string{"how many"})
	cl.viper.SetDefault("assistant.max_question_length", 1000)

	cl.viper.SetDefault("redis.enabled", false)
	cl.viper.SetDefault("redis.url", "")

	cl.viper.SetDefault("breaker.max_failures", 5)
	cl.viper.SetDefault("breaker.reset_timeout", "30s")
}

// loadFromEnv 兼容部署环境中不带前缀的变量
func (cl *ConfigLoader) loadFromEnv() {
	cl.setFromEnv("server.port", "PORT")
	cl.setFromEnv("ai.api_key", "OPENAI_API_KEY")
	cl.setFromEnv("ai.base_url", "OPENAI_BASE_URL")
	cl.setFromEnv("assistant.headmaster_name", "HEADMASTER_NAME")
	cl.setFromEnv("knowledge.database_url", "DATABASE_URL")
	if url := os.Getenv("REDIS_URL"); url != "" {
		cl.viper.Set("redis.url", url)
		cl.viper.Set("redis.enabled", true)
	}
}

// setFromEnv 从环境变量设置配置
func (cl *ConfigLoader) setFromEnv(configKey, envKey string) {
	if value := os.Getenv(envKey); value != "" {
		cl.viper.Set(configKey, value)
	}
}
