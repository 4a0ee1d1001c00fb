package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/northharbor/sage/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "sage",
	Short: "Conversational retirement plan intake engine",
	Long:  "Collects a complete retirement plan schema through a guided interview, with deterministic validation, model-backed extraction, and cross-field consistency checks.",
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
