package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/pipeline"
	anthropicpkg "github.com/matextract/thermo-cli/pkg/anthropic"
)

var runDir string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Extract a single document folder",
	Long:  "Runs the full extraction pipeline on one article folder without touching the batch checkpoint logs. Prints the thermoelectric result to stdout.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		anthropicClient := anthropicpkg.NewClient(cfg.Anthropic.Key)
		p := pipeline.New(cfg, anthropicClient)

		state, err := p.Run(ctx, runDir)
		if err != nil {
			return eris.Wrap(err, "pipeline run")
		}

		if state.Skip {
			zap.L().Info("document skipped, nothing extracted", zap.String("unit", state.ID))
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state.Thermo)
	},
}

func init() {
	runCmd.Flags().StringVar(&runDir, "dir", "", "document folder (required)")
	_ = runCmd.MarkFlagRequired("dir")
	rootCmd.AddCommand(runCmd)
}
