// Package store persists scan sessions and their entries so results can
// be reviewed and exported after the process exits.
package store

import (
	"context"

	"github.com/placescan/placescan/internal/model"
)

// EntryFilter specifies criteria for listing a session's entries.
type EntryFilter struct {
	Severity model.Severity `json:"severity,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// Store defines persistence for scan sessions. Each scan creates a new
// session; an extraction update touches only its own venue's entry.
type Store interface {
	// Sessions
	CreateSession(ctx context.Context, loc model.LocationContext, scanned, skipped int) (*model.Session, error)
	GetSession(ctx context.Context, sessionID string) (*model.Session, error)
	LatestSession(ctx context.Context) (*model.Session, error)

	// Entries
	SaveEntries(ctx context.Context, sessionID string, entries []model.ScanEntry) error
	ListEntries(ctx context.Context, sessionID string, filter EntryFilter) ([]model.ScanEntry, error)
	UpdateExtraction(ctx context.Context, sessionID, venueID string, res *model.ExtractionResult) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
