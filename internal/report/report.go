// Package report writes a session's scan entries for operator review.
// Entries are ordered worst severity first, then by venue name, in every
// format.
package report

import (
	"encoding/json"
	"io"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"gopkg.in/yaml.v3"

	"github.com/placescan/placescan/internal/model"
)

// Format selects the output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatXLSX Format = "xlsx"
)

// ParseFormat validates a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatJSON:
		return FormatJSON, nil
	case FormatYAML, "yml":
		return FormatYAML, nil
	case FormatXLSX:
		return FormatXLSX, nil
	}
	return "", eris.Errorf("report: unknown format %q (want json, yaml, or xlsx)", s)
}

// Document is the exported shape for JSON and YAML output.
type Document struct {
	Session *model.Session    `json:"session" yaml:"session"`
	Entries []model.ScanEntry `json:"entries" yaml:"entries"`
}

// Write renders the session and its entries in the given format.
func Write(w io.Writer, format Format, sess *model.Session, entries []model.ScanEntry) error {
	sorted := make([]model.ScanEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Analysis.Severity != sorted[j].Analysis.Severity {
			return sorted[i].Analysis.Severity.WorseThan(sorted[j].Analysis.Severity)
		}
		return sorted[i].Venue.Name < sorted[j].Venue.Name
	})

	doc := Document{Session: sess, Entries: sorted}

	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return eris.Wrap(enc.Encode(doc), "report: encode json")
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return eris.Wrap(enc.Encode(doc), "report: encode yaml")
	case FormatXLSX:
		return writeXLSX(w, doc)
	}
	return eris.Errorf("report: unknown format %q", format)
}

var xlsxHeader = []string{
	"Venue ID", "Name", "Severity", "Missing Fields",
	"Phone", "Website", "Street",
	"Extraction Method", "Found Phone", "Found Website", "Found Address",
	"Source URL", "Search Query", "Error",
}

func writeXLSX(w io.Writer, doc Document) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Entries")
	if err != nil {
		return eris.Wrap(err, "report: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range xlsxHeader {
		header.AddCell().SetString(h)
	}

	for _, e := range doc.Entries {
		row := sheet.AddRow()
		cells := []string{
			e.Venue.ID,
			e.Venue.Name,
			string(e.Analysis.Severity),
			strings.Join(e.Analysis.Missing, ", "),
			e.Venue.Phone,
			e.Venue.URL,
			e.Venue.Street,
		}
		if ex := e.Extraction; ex != nil {
			cells = append(cells,
				string(ex.Method), ex.Phone, ex.Website, ex.Address,
				ex.SourceURL, ex.SearchQuery, ex.Err,
			)
		} else {
			cells = append(cells, "", "", "", "", "", "", "")
		}
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}

	return eris.Wrap(f.Write(w), "report: write xlsx")
}
