package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/internal/knowledge"
	"github.com/aihub/school-assistant/internal/logger"
)

const lockTimeout = 30 * time.Second

func newEmbedCmd(c *cli) *cobra.Command {
	var (
		chunksPath string
		full       bool
		publish    bool
	)

	cmd := &cobra.Command{
		Use:   "embed",
		Short: "Embed the chunk store and atomically replace the index",
		Long: `embed embeds every chunk with per-chunk retry and writes the manifest,
chunk store and vector file to a staging directory, which then replaces the
index directory. Vectors of chunks whose text is unchanged are reused from the
current index unless --full is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return c.embed(ctx, cmd, chunksPath, full, publish)
		},
	}

	cmd.Flags().StringVar(&chunksPath, "chunks", "chunks.jsonl", "Chunk store produced by the chunk command")
	cmd.Flags().BoolVar(&full, "full", false, "Re-embed every chunk instead of reusing unchanged vectors")
	cmd.Flags().BoolVar(&publish, "publish", false, "Also publish the index to postgres (knowledge.database_url)")
	return cmd
}

func (c *cli) embed(ctx context.Context, cmd *cobra.Command, chunksPath string, full, publish bool) error {
	indexDir := filepath.Clean(c.cfg.Knowledge.IndexDir)

	chunks, err := knowledge.ReadChunks(chunksPath)
	if err != nil {
		return err
	}

	embedder, err := c.newEmbedder(c.cfg)
	if err != nil {
		return err
	}

	unlock, err := knowledge.LockIndex(indexDir, lockTimeout)
	if err != nil {
		return err
	}
	defer unlock()

	var previous *knowledge.Corpus
	if !full {
		if prev, err := knowledge.LoadIndex(indexDir); err == nil {
			previous = prev
		} else if !errors.Is(err, os.ErrNotExist) {
			logger.Warn("Current index unreadable, embedding every chunk", zap.Error(err))
		}
	}

	builder := knowledge.NewBuilder(embedder, knowledge.BuildOptions{
		MaxRetries: c.cfg.Knowledge.EmbedRetries,
		Previous:   previous,
		Progress: func(done, total int) {
			if done%50 == 0 || done == total {
				logger.Info("Embedding progress", zap.Int("done", done), zap.Int("total", total))
			}
		},
	})
	corpus, stats, err := builder.Build(ctx, chunks)
	if err != nil {
		return err
	}

	staging := fmt.Sprintf("%s.staging-%d", indexDir, time.Now().UnixNano())
	if _, err := knowledge.WriteIndex(staging, corpus); err != nil {
		_ = os.RemoveAll(staging)
		return err
	}
	if err := knowledge.AtomicSwap(staging, indexDir); err != nil {
		_ = os.RemoveAll(staging)
		return fmt.Errorf("cannot replace index %s: %w", indexDir, err)
	}

	logger.Info("Index written",
		zap.String("index_dir", indexDir),
		zap.Int("rows", corpus.Len()),
		zap.Int("dim", corpus.Dim()),
		zap.Int("embedded", stats.Embedded),
		zap.Int("reused", stats.Reused))

	if publish || c.cfg.Knowledge.Source == "postgres" {
		if err := c.publish(ctx, corpus); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%d chunks indexed in %s (%d embedded, %d reused, dim %d)\n",
		corpus.Len(), indexDir, stats.Embedded, stats.Reused, corpus.Dim())
	return nil
}

// publish 将语料整体写入postgres
func (c *cli) publish(ctx context.Context, corpus *knowledge.Corpus) error {
	if c.cfg.Knowledge.DatabaseURL == "" {
		return fmt.Errorf("knowledge.database_url is required to publish")
	}
	db, err := knowledge.OpenPostgres(c.cfg.Knowledge.DatabaseURL)
	if err != nil {
		return err
	}
	source := knowledge.NewDBCorpusSource(db)
	defer func() {
		if err := source.Close(); err != nil {
			logger.Warn("Failed to close corpus database", zap.Error(err))
		}
	}()
	if err := source.AutoMigrate(); err != nil {
		return fmt.Errorf("cannot migrate corpus tables: %w", err)
	}
	if err := source.Publish(ctx, corpus); err != nil {
		return err
	}
	logger.Info("Index published to postgres", zap.Int("rows", corpus.Len()))
	return nil
}
