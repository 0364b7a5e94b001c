package store

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/placescan/placescan/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO sessions`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), 5, 2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	sess, err := s.CreateSession(context.Background(), testLoc, 5, 2)
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, 5, sess.Scanned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, location, scanned, skipped, created_at FROM sessions WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSession(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "get session")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_LatestSession_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, location, scanned, skipped, created_at FROM sessions ORDER BY created_at DESC`).
		WillReturnError(pgx.ErrNoRows)

	sess, err := s.LatestSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, sess)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSession(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"id", "location", "scanned", "skipped", "created_at"}).
		AddRow("sess-1", []byte(`{"city":"Denver","state_abbr":"CO"}`), 7, 1, time.Now().UTC())
	mock.ExpectQuery(`SELECT id, location, scanned, skipped, created_at FROM sessions WHERE id = \$1`).
		WithArgs("sess-1").
		WillReturnRows(rows)

	sess, err := s.GetSession(context.Background(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "Denver", sess.Location.City)
	assert.Equal(t, 7, sess.Scanned)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateExtraction_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE entries SET extraction`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "sess-1", "v-missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateExtraction(context.Background(), "sess-1", "v-missing", &model.ExtractionResult{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEntries_SeverityFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	entryJSON := `{"venue":{"id":"v1","name":"Joe's Cafe"},"analysis":{"severity":"critical","missing":["Phone","Website"],"has_contact_info":false},"location":{}}`

	rows := pgxmock.NewRows([]string{"entry", "extraction"}).
		AddRow([]byte(entryJSON), []byte(nil))
	// No LIMIT clause: an empty-limit filter must read the whole session.
	mock.ExpectQuery(`SELECT entry, extraction FROM entries WHERE session_id = \$1 AND severity = \$2 ORDER BY updated_at$`).
		WithArgs("sess-1", "critical").
		WillReturnRows(rows)

	got, err := s.ListEntries(context.Background(), "sess-1", EntryFilter{Severity: model.SeverityCritical})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Joe's Cafe", got[0].Venue.Name)
	assert.Nil(t, got[0].Extraction)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListEntries_ExplicitLimitAndOffset(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"entry", "extraction"})
	mock.ExpectQuery(`SELECT entry, extraction FROM entries WHERE session_id = \$1 ORDER BY updated_at LIMIT \$2 OFFSET \$3`).
		WithArgs("sess-1", 50, 100).
		WillReturnRows(rows)

	_, err := s.ListEntries(context.Background(), "sess-1", EntryFilter{Limit: 50, Offset: 100})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
