package store

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var recordColumnNames = []string{
	"id", "subject", "sender", "sender_domain", "received_at", "category", "matched_rule",
	"matched_phrase", "company_name", "job_title", "noise", "snippet", "body_preview", "is_read",
	"classified_at", "created_at",
}

func newMockMySQLStore(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS emails")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	s, err := NewMySQLStoreFromDB(db, zap.NewNop(), 0, 0)
	require.NoError(t, err)
	return s, mock
}

func TestMySQLStore_SchemaFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("access denied"))

	_, err = NewMySQLStoreFromDB(db, zap.NewNop(), 0, 0)
	assert.ErrorContains(t, err, "failed to create table")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Upsert(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	r := newRecord("m1", core.CategoryInterview, "Interview with Initech", "Initech", baseTime)
	r.Rule = core.RuleInterviewInvite

	mock.ExpectExec(regexp.QuoteMeta("ON DUPLICATE KEY UPDATE")).
		WithArgs("m1", "Interview with Initech", r.Sender, "acme.com", baseTime,
			"interview", "interview_tier1", "", "Initech", "", false,
			r.Snippet, r.BodyPreview, baseTime, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, s.Upsert(context.Background(), r))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_UpsertError(t *testing.T) {
	s, mock := newMockMySQLStore(t)

	mock.ExpectExec("INSERT INTO emails").WillReturnError(errors.New("connection reset"))

	err := s.Upsert(context.Background(), newRecord("m1", core.CategoryOther, "s", "", baseTime))
	assert.ErrorContains(t, err, "failed to upsert email record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Get(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		err     error
		wantErr error
	}{
		{
			name: "found",
			rows: sqlmock.NewRows(recordColumnNames).AddRow(
				"m1", "Offer", "hr@acme.com", "acme.com", baseTime, "offer", "offer",
				"pleased to offer you", "Acme", "Engineer", false, "snip", "body", true,
				baseTime, baseTime),
		},
		{
			name:    "not found",
			rows:    sqlmock.NewRows(recordColumnNames),
			wantErr: ErrNotFound,
		},
		{
			name:    "query error",
			err:     sql.ErrConnDone,
			wantErr: sql.ErrConnDone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock := newMockMySQLStore(t)

			q := mock.ExpectQuery(regexp.QuoteMeta("FROM emails WHERE id = ?")).WithArgs("m1")
			if tt.err != nil {
				q.WillReturnError(tt.err)
			} else {
				q.WillReturnRows(tt.rows)
			}

			got, err := s.Get(context.Background(), "m1")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, core.CategoryOffer, got.Category)
				assert.Equal(t, core.RuleOffer, got.Rule)
				assert.Equal(t, "Engineer", got.JobTitle)
				assert.True(t, got.IsRead)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestMySQLStore_ListWithFilters(t *testing.T) {
	s, mock := newMockMySQLStore(t)

	pattern := `%50\% off%`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM emails WHERE category = ? AND (subject LIKE ? OR company_name LIKE ? OR sender LIKE ? OR snippet LIKE ?)")).
		WithArgs("applied", pattern, pattern, pattern, pattern).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY received_at DESC, id ASC LIMIT ? OFFSET ?")).
		WithArgs("applied", pattern, pattern, pattern, pattern, 5, 5).
		WillReturnRows(sqlmock.NewRows(recordColumnNames).AddRow(
			"m6", "s", "x@acme.com", "acme.com", baseTime, "applied", "applied",
			"", "", "", false, "", "", false, baseTime, baseTime))

	page, err := s.List(context.Background(), core.Query{
		Category: core.CategoryApplied,
		Search:   "50% off",
		Page:     2,
		PerPage:  5,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)
	require.Len(t, page.Emails, 1)
	assert.Equal(t, "m6", page.Emails[0].MessageID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Stats(t *testing.T) {
	s, mock := newMockMySQLStore(t)
	since := baseTime.Add(-7 * 24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM emails")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY category")).
		WillReturnRows(sqlmock.NewRows([]string{"category", "count"}).
			AddRow("applied", 3).
			AddRow("rejection", 2))
	mock.ExpectQuery(regexp.QuoteMeta("WHERE received_at >= ?")).
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	stats, err := s.Stats(context.Background(), since)
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 4, stats.Recent)
	assert.Equal(t, map[core.Category]int{core.CategoryApplied: 3, core.CategoryRejection: 2}, stats.Categories)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_MarkRead(t *testing.T) {
	s, mock := newMockMySQLStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE emails SET is_read = ? WHERE id = ?")).
		WithArgs(true, "m1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE emails SET is_read = ? WHERE id = ?")).
		WithArgs(true, "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, s.MarkRead(context.Background(), "m1"))
	assert.ErrorIs(t, s.MarkRead(context.Background(), "missing"), ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_Cleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewMySQLStoreFromDB(db, zap.NewNop(), 30*24*time.Hour, 0)
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM emails WHERE received_at < ?")).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 12))

	require.NoError(t, s.Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMySQLStore_CleanupDisabled(t *testing.T) {
	s, mock := newMockMySQLStore(t)

	require.NoError(t, s.Cleanup(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
