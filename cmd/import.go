package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/placescan/placescan/internal/scan"
	"github.com/placescan/placescan/internal/source"
)

var importInputPath string

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Validate and inspect a venue export file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		exp, err := source.Load(importInputPath)
		if err != nil {
			return err
		}

		// Dry-run scan: no session recorded, just the counts.
		collector := scan.NewCollector()
		scanned, skipped := collector.Scan(exp.Venues, exp.Location)

		fmt.Printf("%s: %d venues (%d eligible, %d skipped)\n",
			importInputPath, len(exp.Venues), scanned, skipped)
		if exp.Location.City != "" {
			fmt.Printf("Location: %s, %s\n", exp.Location.City, exp.Location.StateAbbr)
		} else {
			fmt.Println("Location: none — search queries will omit the location segment")
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importInputPath, "input", "", "path to venue export (.json or .csv, required)")
	_ = importCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(importCmd)
}
