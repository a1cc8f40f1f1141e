package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	apperrors "github.com/aihub/school-assistant/internal/errors"
	"github.com/aihub/school-assistant/internal/knowledge"
)

func newVerifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check that the index loads and matches the configured embedding model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			corpus, err := knowledge.LoadIndex(c.cfg.Knowledge.IndexDir)
			if err != nil {
				return err
			}
			if err := corpus.CheckEmbedder(c.cfg.AI.EmbeddingModel, 0); err != nil {
				return err
			}

			pages := make(map[string]int)
			for i := 0; i < corpus.Len(); i++ {
				ch := corpus.Chunk(i)
				if _, err := url.ParseRequestURI(ch.SourceURL); err != nil {
					return apperrors.NewConfigurationError(fmt.Sprintf("chunk %d has invalid source url %q", i, ch.SourceURL))
				}
				if ch.TextHash != "" && ch.TextHash != knowledge.TextHash(ch.Text) {
					return apperrors.NewConfigurationError(fmt.Sprintf("chunk %d text does not match its hash", i))
				}
				pages[ch.SourceURL]++
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "index:  %s\n", c.cfg.Knowledge.IndexDir)
			fmt.Fprintf(out, "model:  %s\n", corpus.ModelID())
			fmt.Fprintf(out, "dim:    %d\n", corpus.Dim())
			fmt.Fprintf(out, "chunks: %d\n", corpus.Len())
			fmt.Fprintf(out, "pages:  %d\n", len(pages))
			fmt.Fprintln(out, "ok")
			return nil
		},
	}
}
