package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/internal/knowledge"
	"github.com/aihub/school-assistant/internal/logger"
)

func newChunkCmd(c *cli) *cobra.Command {
	var (
		pagesPath string
		outPath   string
		size      int
		overlap   int
	)

	cmd := &cobra.Command{
		Use:   "chunk",
		Short: "Split scraped pages into overlapping chunks",
		Long: `chunk reads the scraper output (one {"url","text"} JSON object per line)
and writes the chunk store as JSONL, one chunk per line in page order.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if size <= 0 {
				size = c.cfg.Knowledge.ChunkSize
			}
			if overlap < 0 {
				overlap = c.cfg.Knowledge.ChunkOverlap
			}

			pages, err := knowledge.ReadPages(pagesPath)
			if err != nil {
				return err
			}
			chunks := knowledge.ChunkPages(pages, knowledge.NewChunker(size, overlap))
			if err := knowledge.WriteChunks(outPath, chunks); err != nil {
				return err
			}

			logger.Info("Pages chunked",
				zap.Int("pages", len(pages)),
				zap.Int("chunks", len(chunks)),
				zap.Int("chunk_size", size),
				zap.Int("chunk_overlap", overlap))
			fmt.Fprintf(cmd.OutOrStdout(), "%d pages -> %d chunks written to %s\n", len(pages), len(chunks), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&pagesPath, "pages", "pages.jsonl", "Scraped pages JSONL")
	cmd.Flags().StringVar(&outPath, "out", "chunks.jsonl", "Output chunk store")
	cmd.Flags().IntVar(&size, "size", 0, "Tokens per chunk (default knowledge.chunk_size)")
	cmd.Flags().IntVar(&overlap, "overlap", -1, "Tokens shared by adjacent chunks (default knowledge.chunk_overlap)")
	return cmd
}
