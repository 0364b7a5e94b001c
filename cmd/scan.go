package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/model"
)

var scanInputPath string

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a venue export and record severities",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("scan"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		collector, sess, err := runScan(ctx, st, scanInputPath)
		if err != nil {
			return err
		}

		zap.L().Info("scan session recorded",
			zap.String("session_id", sess.ID),
			zap.Int("scanned", sess.Scanned),
			zap.Int("skipped", sess.Skipped),
		)

		stats := collector.Stats()
		fmt.Printf("Session %s — %s, %s\n", sess.ID, sess.Location.City, sess.Location.StateAbbr)
		fmt.Printf("Scanned %d venues (%d skipped)\n", sess.Scanned, sess.Skipped)
		for _, sev := range model.AllSeverities() {
			fmt.Printf("  %-10s %d\n", sev, stats.BySeverity[sev])
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().StringVar(&scanInputPath, "input", "", "path to venue export (.json or .csv, required)")
	_ = scanCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(scanCmd)
}
