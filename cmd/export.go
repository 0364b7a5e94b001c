package main

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/placescan/placescan/internal/model"
	"github.com/placescan/placescan/internal/report"
	"github.com/placescan/placescan/internal/store"
)

var (
	exportSessionID string
	exportFormat    string
	exportOutPath   string
	exportSeverity  string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a session's entries as JSON, YAML, or XLSX",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}
		format, err := report.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		severity, err := parseSeverityFlag(exportSeverity)
		if err != nil {
			return err
		}
		if format == report.FormatXLSX && exportOutPath == "" {
			return eris.New("--out is required for xlsx export")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		sess, err := resolveSession(ctx, st, exportSessionID)
		if err != nil {
			return err
		}
		entries, err := st.ListEntries(ctx, sess.ID, store.EntryFilter{
			Severity: severity,
		})
		if err != nil {
			return err
		}

		out := os.Stdout
		if exportOutPath != "" {
			f, err := os.Create(exportOutPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", exportOutPath)
			}
			defer f.Close()
			out = f
		}

		if err := report.Write(out, format, sess, entries); err != nil {
			return err
		}

		zap.L().Info("export complete",
			zap.String("session_id", sess.ID),
			zap.String("format", string(format)),
			zap.Int("entries", len(entries)),
		)
		return nil
	},
}

// parseSeverityFlag validates a user-supplied severity name; a typo would
// otherwise filter every entry out and produce a silently empty export.
// The empty string means no filter.
func parseSeverityFlag(s string) (model.Severity, error) {
	if s == "" {
		return "", nil
	}
	for _, sev := range model.AllSeverities() {
		if string(sev) == strings.ToLower(s) {
			return sev, nil
		}
	}
	return "", eris.Errorf("unknown severity %q (want complete, minor, major, or critical)", s)
}

func init() {
	exportCmd.Flags().StringVar(&exportSessionID, "session", "", "session id (default: latest)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "json", "output format: json, yaml, or xlsx")
	exportCmd.Flags().StringVar(&exportOutPath, "out", "", "output file (default: stdout)")
	exportCmd.Flags().StringVar(&exportSeverity, "severity", "", "filter by severity")
	rootCmd.AddCommand(exportCmd)
}
