package store

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/placescan/placescan/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs; pgxmock satisfies
// it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 10
	pgxCfg.MinConns = 2
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	location   JSONB NOT NULL,
	scanned    INTEGER NOT NULL DEFAULT 0,
	skipped    INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS entries (
	id         TEXT PRIMARY KEY,
	session_id TEXT NOT NULL REFERENCES sessions(id),
	venue_id   TEXT NOT NULL,
	severity   TEXT NOT NULL,
	entry      JSONB NOT NULL,
	extraction JSONB,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	UNIQUE(session_id, venue_id)
);

CREATE INDEX IF NOT EXISTS idx_entries_session_id ON entries(session_id);
CREATE INDEX IF NOT EXISTS idx_entries_severity ON entries(session_id, severity);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateSession(ctx context.Context, loc model.LocationContext, scanned, skipped int) (*model.Session, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	locJSON, err := json.Marshal(loc)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal location")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO sessions (id, location, scanned, skipped, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(locJSON), scanned, skipped, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert session")
	}

	return &model.Session{
		ID:        id,
		Location:  loc,
		Scanned:   scanned,
		Skipped:   skipped,
		CreatedAt: now,
	}, nil
}

func (s *PostgresStore) GetSession(ctx context.Context, sessionID string) (*model.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, location, scanned, skipped, created_at FROM sessions WHERE id = $1`,
		sessionID,
	)
	sess, err := scanPgSession(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get session %s", sessionID)
	}
	return sess, nil
}

func (s *PostgresStore) LatestSession(ctx context.Context) (*model.Session, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, location, scanned, skipped, created_at FROM sessions ORDER BY created_at DESC LIMIT 1`,
	)
	sess, err := scanPgSession(row)
	if eris.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: latest session")
	}
	return sess, nil
}

func (s *PostgresStore) SaveEntries(ctx context.Context, sessionID string, entries []model.ScanEntry) error {
	for _, e := range entries {
		entryJSON, err := json.Marshal(e)
		if err != nil {
			return eris.Wrap(err, "postgres: marshal entry")
		}
		_, err = s.pool.Exec(ctx,
			`INSERT INTO entries (id, session_id, venue_id, severity, entry, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (session_id, venue_id) DO UPDATE SET
			   severity = EXCLUDED.severity, entry = EXCLUDED.entry,
			   extraction = NULL, updated_at = EXCLUDED.updated_at`,
			uuid.New().String(), sessionID, e.Venue.ID, string(e.Analysis.Severity), string(entryJSON), time.Now().UTC(),
		)
		if err != nil {
			return eris.Wrapf(err, "postgres: insert entry for venue %s", e.Venue.ID)
		}
	}
	return nil
}

func (s *PostgresStore) ListEntries(ctx context.Context, sessionID string, filter EntryFilter) ([]model.ScanEntry, error) {
	query := `SELECT entry, extraction FROM entries WHERE session_id = $1`
	args := []any{sessionID}

	if filter.Severity != "" {
		args = append(args, string(filter.Severity))
		query += ` AND severity = $2`
	}
	query += ` ORDER BY updated_at`

	// A non-positive limit means the whole session; callers that restore or
	// export a session rely on getting every entry back.
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += ` LIMIT $` + strconv.Itoa(len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entries")
	}
	defer rows.Close()

	var entries []model.ScanEntry
	for rows.Next() {
		var entryJSON []byte
		var extractionJSON []byte
		if err := rows.Scan(&entryJSON, &extractionJSON); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entry")
		}

		var e model.ScanEntry
		if err := json.Unmarshal(entryJSON, &e); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal entry")
		}
		if len(extractionJSON) > 0 {
			e.Extraction = &model.ExtractionResult{}
			if err := json.Unmarshal(extractionJSON, e.Extraction); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal extraction")
			}
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "postgres: list entries iterate")
}

func (s *PostgresStore) UpdateExtraction(ctx context.Context, sessionID, venueID string, res *model.ExtractionResult) error {
	resJSON, err := json.Marshal(res)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal extraction")
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE entries SET extraction = $1, updated_at = $2 WHERE session_id = $3 AND venue_id = $4`,
		string(resJSON), time.Now().UTC(), sessionID, venueID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update extraction for venue %s", venueID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("entry not found: %s", venueID)
	}
	return nil
}

// helpers

func scanPgSession(row pgx.Row) (*model.Session, error) {
	var sess model.Session
	var locJSON []byte

	if err := row.Scan(&sess.ID, &locJSON, &sess.Scanned, &sess.Skipped, &sess.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(locJSON, &sess.Location); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal location")
	}
	return &sess, nil
}
