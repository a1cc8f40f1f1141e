package main

import (
	"encoding/json"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/dig"

	"github.com/aihub/school-assistant/internal/di"
	"github.com/aihub/school-assistant/internal/services"
)

func newAskCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer one question through the full pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := di.BuildContainer(c.cfg, prometheus.NewRegistry())
			if err != nil {
				return err
			}

			var assistant *services.AssistantService
			if err := container.Invoke(func(a *services.AssistantService) {
				assistant = a
			}); err != nil {
				return dig.RootCause(err)
			}

			answer, err := assistant.Ask(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(answer)
		},
	}
}
