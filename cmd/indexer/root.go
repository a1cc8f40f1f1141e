package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/aihub/school-assistant/internal/config"
	"github.com/aihub/school-assistant/internal/knowledge"
	"github.com/aihub/school-assistant/internal/logger"
)

// cli 子命令共享的配置与可替换的协作方工厂
type cli struct {
	configFile string
	indexDir   string
	logLevel   string

	cfg *config.Config

	// newEmbedder 构建嵌入协作方，测试中替换
	newEmbedder func(cfg *config.Config) (knowledge.Embedder, error)
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&cli{newEmbedder: openAIEmbedder})
}

func newRootCmdFor(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:          "indexer",
		Short:        "Offline index pipeline for the school assistant",
		SilenceUsage: true,
		Long: `indexer turns scraped page text into the chunk store and embedding
index served by the assistant. Run "chunk" on the scraper output, then "embed"
to build or refresh the index in place.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.load()
		},
	}

	root.PersistentFlags().StringVar(&c.configFile, "config", "", "Config file (default ./configs/config.yaml)")
	root.PersistentFlags().StringVar(&c.indexDir, "index-dir", "", "Index directory (overrides knowledge.index_dir)")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	root.AddCommand(
		newChunkCmd(c),
		newEmbedCmd(c),
		newVerifyCmd(c),
		newAskCmd(c),
	)
	return root
}

// load 读取.env与配置并初始化控制台日志
func (c *cli) load() error {
	_ = godotenv.Load()

	if c.configFile != "" {
		if err := os.Setenv("CONFIG_FILE", c.configFile); err != nil {
			return err
		}
	}

	loader := config.NewConfigLoader()
	if c.indexDir != "" {
		loader.Set("knowledge.index_dir", c.indexDir)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("cannot load config: %w", err)
	}
	c.cfg = cfg

	return logger.InitLogger("dev", c.logLevel)
}

func openAIEmbedder(cfg *config.Config) (knowledge.Embedder, error) {
	client := knowledge.NewOpenAIClient(cfg.AI.APIKey, cfg.AI.BaseURL, cfg.AI.Timeout)
	if client == nil {
		return nil, fmt.Errorf("OPENAI_API_KEY is required to embed chunks")
	}
	return knowledge.NewOpenAIEmbedder(client, cfg.AI.EmbeddingModel), nil
}
