package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/model"
)

var (
	extractSessionID   string
	extractVenueID     string
	extractAll         bool
	extractConcurrency int
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "Look up venue websites and extract missing contact fields",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		if extractVenueID == "" && !extractAll {
			return eris.New("either --venue or --all is required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := resolveSession(ctx, st, extractSessionID)
		if err != nil {
			return err
		}
		collector, err := restoreCollector(ctx, st, sess)
		if err != nil {
			return err
		}

		orch := newOrchestrator(collector, st, sess.ID)

		if extractVenueID != "" {
			if err := orch.ExtractForVenue(ctx, extractVenueID); err != nil {
				return err
			}
			entry, _ := collector.Get(extractVenueID)
			printOutcome(entry.Venue.Name, entry.Extraction)
			return nil
		}

		concurrency := extractConcurrency
		if concurrency == 0 {
			concurrency = cfg.Extract.Concurrency
		}
		if err := orch.ExtractAll(ctx, concurrency); err != nil {
			return err
		}

		var attempted, found int
		for _, e := range collector.Entries() {
			if e.Extraction == nil {
				continue
			}
			attempted++
			if !e.Extraction.Failed() {
				found++
			}
			printOutcome(e.Venue.Name, e.Extraction)
		}
		zap.L().Info("batch extraction complete",
			zap.String("session_id", sess.ID),
			zap.Int("attempted", attempted),
			zap.Int("succeeded", found),
		)
		return nil
	},
}

func printOutcome(name string, res *model.ExtractionResult) {
	if res == nil {
		return
	}
	if res.Failed() {
		fmt.Printf("%-30s FAILED: %s\n", name, res.Err)
		return
	}
	fmt.Printf("%-30s %s", name, res.Method)
	if res.Phone != "" {
		fmt.Printf("  phone=%s", res.Phone)
	}
	if res.Website != "" {
		fmt.Printf("  website=%s", res.Website)
	}
	if res.Address != "" {
		fmt.Printf("  address=%q", res.Address)
	}
	fmt.Println()
}

func init() {
	extractCmd.Flags().StringVar(&extractSessionID, "session", "", "session id (default: latest)")
	extractCmd.Flags().StringVar(&extractVenueID, "venue", "", "extract a single venue by id")
	extractCmd.Flags().BoolVar(&extractAll, "all", false, "extract every incomplete venue, worst first")
	extractCmd.Flags().IntVar(&extractConcurrency, "concurrency", 0, "parallel extractions (default from config)")
	rootCmd.AddCommand(extractCmd)
}
