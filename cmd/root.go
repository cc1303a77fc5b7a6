package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/matextract/thermo-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "thermo-cli",
	Short: "Thermoelectric literature extraction pipeline",
	Long:  "Walks pre-processed article folders, extracts thermoelectric and structural material records via staged Claude calls, and writes JSON artifacts next to each article.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
