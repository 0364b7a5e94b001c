// Package model defines the venue, analysis, and extraction types shared
// across the audit pipeline.
package model

import "time"

// Severity classifies a venue's data completeness. The order matters:
// complete < minor < major < critical.
type Severity string

const (
	SeverityComplete Severity = "complete"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// severityRank maps each severity to its position in the ordering.
var severityRank = map[Severity]int{
	SeverityComplete: 0,
	SeverityMinor:    1,
	SeverityMajor:    2,
	SeverityCritical: 3,
}

// Rank returns the severity's position in the ordering (complete=0,
// critical=3). Unknown values rank below complete.
func (s Severity) Rank() int {
	return severityRank[s]
}

// WorseThan reports whether s is more severe than other.
func (s Severity) WorseThan(other Severity) bool {
	return s.Rank() > other.Rank()
}

// AllSeverities returns the severities in ascending order.
func AllSeverities() []Severity {
	return []Severity{SeverityComplete, SeverityMinor, SeverityMajor, SeverityCritical}
}

// Venue is a read-only snapshot of an editor venue record. Attributes
// outside this shape are out of scope for the audit.
type Venue struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Phone       string   `json:"phone,omitempty"`
	URL         string   `json:"url,omitempty"`
	Street      string   `json:"street,omitempty"`
	Categories  []string `json:"categories,omitempty"`
	Residential bool     `json:"residential,omitempty"`
}

// LocationContext is the best-effort city/state triple derived from the
// editor viewport. Fields are empty when unavailable.
type LocationContext struct {
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	StateAbbr string `json:"state_abbr,omitempty"`
}

// AnalysisResult is the deterministic completeness classification of a
// venue. It is recomputed on every scan, never patched.
type AnalysisResult struct {
	Severity       Severity `json:"severity"`
	Missing        []string `json:"missing,omitempty"`
	HasContactInfo bool     `json:"has_contact_info"`
}

// ExtractionMethod tags which strategy produced an extraction result.
type ExtractionMethod string

const (
	MethodStructuredData   ExtractionMethod = "structured-data"
	MethodEmbeddedMetadata ExtractionMethod = "embedded-metadata"
	MethodPatternMatch     ExtractionMethod = "pattern-match"
	MethodNone             ExtractionMethod = "none"
)

// ExtractionResult is the outcome of one website lookup attempt for a
// venue. A retry replaces the whole record; partial data is never merged
// across attempts.
type ExtractionResult struct {
	Method      ExtractionMethod `json:"method,omitempty"`
	SourceURL   string           `json:"source_url,omitempty"`
	Phone       string           `json:"phone,omitempty"`
	Website     string           `json:"website,omitempty"`
	Address     string           `json:"address,omitempty"`
	Name        string           `json:"name,omitempty"`
	SearchQuery string           `json:"search_query,omitempty"`
	Err         string           `json:"error,omitempty"`
}

// Failed reports whether the attempt ended in an error rather than a
// (possibly empty) extraction.
func (r *ExtractionResult) Failed() bool {
	return r != nil && r.Err != ""
}

// ScanEntry is the stored per-venue unit of classification plus optional
// extraction outcome. Entries are owned by the scan result set and
// replaced wholesale on each scan.
type ScanEntry struct {
	Venue      Venue             `json:"venue"`
	Analysis   AnalysisResult    `json:"analysis"`
	Location   LocationContext   `json:"location"`
	Extraction *ExtractionResult `json:"extraction,omitempty"`
}

// Session records one scan over a venue export.
type Session struct {
	ID        string          `json:"id"`
	Location  LocationContext `json:"location"`
	Scanned   int             `json:"scanned"`
	Skipped   int             `json:"skipped"`
	CreatedAt time.Time       `json:"created_at"`
}
