package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "placescan",
	Short: "Venue data completeness auditor",
	Long:  "Scans map-editor venue exports for missing contact fields, classifies each venue by severity, and scrapes venue websites to recover missing phone, website, and address data for manual review.",
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
