package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/placescan/placescan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	location   TEXT NOT NULL,
	scanned    INTEGER NOT NULL DEFAULT 0,
	skipped    INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	venue_id   TEXT NOT NULL,
	severity   TEXT NOT NULL,
	entry      TEXT NOT NULL,
	extraction TEXT,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now')),
	UNIQUE(session_id, venue_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_session_id ON entries(session_id);
CREATE INDEX IF NOT EXISTS idx_entries_severity ON entries(session_id, severity);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, loc model.LocationContext, scanned, skipped int) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	locJSON, err := json.Marshal(loc)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal location")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, location, scanned, skipped, created_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(locJSON), scanned, skipped, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert session")
	}

	return &model.Session{
		ID:        id,
		Location:  loc,
		Scanned:   scanned,
		Skipped:   skipped,
		CreatedAt: now,
	}, nil
}

func (s *SQLiteStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, location, scanned, skipped, created_at FROM sessions WHERE id = ?`,
		sessionID,
	)
	return scanSession(row)
}

func (s *SQLiteStore) LatestSession(ctx context.Context) (*model.Session, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, location, scanned, skipped, created_at FROM sessions ORDER BY created_at DESC LIMIT 1`,
	)
	sess, err := scanSession(row)
	if err != nil && eris.Is(err, errSessionNotFound) {
		return nil, nil
	}
	return sess, err
}

func (s *SQLiteStore) SaveEntries(ctx context.Context, sessionID string, entries []model.ScanEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	now := time.Now().UTC()
	for _, e := range entries {
		entryJSON, err := json.Marshal(e)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal entry")
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO entries (id, session_id, venue_id, severity, entry, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(session_id, venue_id) DO UPDATE SET
			   severity = excluded.severity, entry = excluded.entry,
			   extraction = NULL, updated_at = excluded.updated_at`,
			uuid.New().String(), sessionID, e.Venue.ID, string(e.Analysis.Severity), string(entryJSON), now,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert entry for venue %s", e.Venue.ID)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit entries")
}

func (s *SQLiteStore) ListEntries(ctx context.Context, sessionID string, filter EntryFilter) ([]model.ScanEntry, error) {
	query := `SELECT entry, extraction FROM entries WHERE session_id = ?`
	args := []any{sessionID}

	if filter.Severity != "" {
		query += ` AND severity = ?`
		args = append(args, string(filter.Severity))
	}
	query += ` ORDER BY updated_at`

	// A non-positive limit means the whole session; callers that restore or
	// export a session rely on getting every entry back.
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	} else if filter.Offset > 0 {
		// SQLite requires a LIMIT clause before OFFSET; -1 is unbounded.
		query += ` LIMIT -1`
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entries")
	}
	defer rows.Close()

	var entries []model.ScanEntry
	for rows.Next() {
		var entryJSON string
		var extractionJSON sql.NullString
		if err := rows.Scan(&entryJSON, &extractionJSON); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entry")
		}

		var e model.ScanEntry
		if err := json.Unmarshal([]byte(entryJSON), &e); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal entry")
		}
		if extractionJSON.Valid {
			e.Extraction = &model.ExtractionResult{}
			if err := json.Unmarshal([]byte(extractionJSON.String), e.Extraction); err != nil {
				return nil, eris.Wrap(err, "sqlite: unmarshal extraction")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: list entries iterate")
}

func (s *SQLiteStore) UpdateExtraction(ctx context.Context, sessionID, venueID string, res *model.ExtractionResult) error {
	resJSON, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal extraction")
	}

	out, err := s.db.ExecContext(ctx,
		`UPDATE entries SET extraction = ?, updated_at = ? WHERE session_id = ? AND venue_id = ?`,
		string(resJSON), time.Now().UTC(), sessionID, venueID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update extraction for venue %s", venueID)
	}
	return checkRowsAffected(out, "entry", venueID)
}

// helpers

var errSessionNotFound = eris.New("session not found")

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*model.Session, error) {
	var sess model.Session
	var locJSON string

	err := row.Scan(&sess.ID, &locJSON, &sess.Scanned, &sess.Skipped, &sess.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errSessionNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan session")
	}

	if err := json.Unmarshal([]byte(locJSON), &sess.Location); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal location")
	}
	return &sess, nil
}
