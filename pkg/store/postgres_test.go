package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgres_Placeholders(t *testing.T) {
	s, _ := newMockStore(t)
	assert.Equal(t, "SELECT a FROM t WHERE x = $1 AND y = $2", s.q("SELECT a FROM t WHERE x = ? AND y = ?"))
}

func TestPostgres_Migrate(t *testing.T) {
	s, mock := newMockStore(t)
	for range postgresSchema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}
	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetClaim(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	query := regexp.QuoteMeta("SELECT id, claim_number, incident_date, created_at FROM claims WHERE id = $1")

	mock.ExpectQuery(query).WithArgs("c1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "claim_number", "incident_date", "created_at"}).
			AddRow("c1", "CLM-1", "2024-03-10", "2024-03-11T08:00:00.000000000Z"))
	c, err := s.GetClaim(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "CLM-1", c.ClaimNumber)
	assert.Equal(t, 2024, c.CreatedAt.Year())

	mock.ExpectQuery(query).WithArgs("c2").WillReturnError(sql.ErrNoRows)
	_, err = s.GetClaim(ctx, "c2")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_AdvanceWatermark(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectQuery(regexp.QuoteMeta("RETURNING processed_until")).
		WithArgs(15.0, 15.0, sqlmock.AnyArg(), "a1").
		WillReturnRows(sqlmock.NewRows([]string{"processed_until"}).AddRow(20.0))

	wm, err := s.AdvanceWatermark(context.Background(), "a1", 15)
	require.NoError(t, err)
	assert.InDelta(t, 20, wm, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_BeginProcessing(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()
	update := regexp.QuoteMeta("UPDATE assets SET status = $1, updated_at = $2 WHERE id = $3 AND status <> $4")

	mock.ExpectExec(update).
		WithArgs("PROCESSING", sqlmock.AnyArg(), "a1", "PROCESSING").
		WillReturnResult(sqlmock.NewResult(0, 1))
	started, err := s.BeginProcessing(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, started)

	mock.ExpectExec(update).
		WithArgs("PROCESSING", sqlmock.AnyArg(), "a1", "PROCESSING").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("FROM assets WHERE id = $1")).
		WithArgs("a1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "claim_id", "session_id", "object_key", "duration_s", "status", "processed_until", "created_at", "updated_at"}).
			AddRow("a1", "c1", "", "k", 10.0, "PROCESSING", 5.0, "2024-03-11T08:00:00Z", "2024-03-11T08:00:00Z"))
	started, err = s.BeginProcessing(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, started)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_SaveReportWrapsErrors(t *testing.T) {
	s, mock := newMockStore(t)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trinity_reports")).
		WillReturnError(sql.ErrConnDone)

	err := s.SaveReport(context.Background(), newTestReport())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.NoError(t, mock.ExpectationsWereMet())
}
