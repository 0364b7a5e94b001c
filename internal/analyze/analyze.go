// Package analyze scores venue records for data completeness.
package analyze

import (
	"strings"

	"github.com/placescan/placescan/internal/model"
)

// Checked field labels, in the fixed order they are reported.
const (
	LabelName    = "Name"
	LabelPhone   = "Phone"
	LabelWebsite = "Website"
)

// Analyze classifies a venue by data completeness. It is a total function:
// every venue maps to exactly one severity, computed only from the name,
// phone, and website fields. The free-text description is deliberately not
// scored.
func Analyze(v model.Venue) model.AnalysisResult {
	var missing []string
	if empty(v.Name) {
		missing = append(missing, LabelName)
	}
	if empty(v.Phone) {
		missing = append(missing, LabelPhone)
	}
	if empty(v.URL) {
		missing = append(missing, LabelWebsite)
	}

	hasContact := !empty(v.Phone) || !empty(v.URL)

	// Decision table, first match wins.
	var sev model.Severity
	switch {
	case len(missing) == 0:
		sev = model.SeverityComplete
	case !hasContact:
		sev = model.SeverityCritical
	case len(missing) >= 2:
		sev = model.SeverityMajor
	default:
		sev = model.SeverityMinor
	}

	return model.AnalysisResult{
		Severity:       sev,
		Missing:        missing,
		HasContactInfo: hasContact,
	}
}

// empty reports whether a field is absent or whitespace-only.
func empty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Stats aggregates entry counts per severity for a scan summary.
type Stats struct {
	Total      int
	BySeverity map[model.Severity]int
}

// Summarize tallies severities across a set of analysis results.
func Summarize(results []model.AnalysisResult) Stats {
	s := Stats{BySeverity: make(map[model.Severity]int)}
	for _, r := range results {
		s.Total++
		s.BySeverity[r.Severity]++
	}
	return s
}
