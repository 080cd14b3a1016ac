package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mikey/job-mail-tracker/internal/core"
	"go.uber.org/zap"
)

const recordColumns = `id, subject, sender, sender_domain, received_at, category, matched_rule,
	matched_phrase, company_name, job_title, noise, snippet, body_preview, is_read,
	classified_at, created_at`

// dialect holds the statements that differ between SQL backends
type dialect struct {
	name   string
	upsert string
	// likeEscape follows each LIKE placeholder
	likeEscape string
}

// sqlStore implements core.ResultRepository over database/sql
type sqlStore struct {
	db          *sql.DB
	dialect     dialect
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

func newSQLStore(db *sql.DB, d dialect, logger *zap.Logger, retention, cleanupFreq time.Duration) *sqlStore {
	s := &sqlStore{
		db:          db,
		dialect:     d,
		logger:      logger,
		retention:   retention,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	if retention > 0 && cleanupFreq > 0 {
		go runCleanup(s, logger, cleanupFreq, s.stopCh)
	}

	return s
}

// Upsert inserts a record; on conflict only classification fields change
func (s *sqlStore) Upsert(ctx context.Context, r *core.EmailRecord) error {
	createdAt := r.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, s.dialect.upsert,
		r.MessageID, r.Subject, r.Sender, r.SenderDomain, r.ReceivedAt.UTC(),
		string(r.Category), string(r.Rule), r.MatchedPhrase, r.CompanyName, r.JobTitle,
		r.Noise, r.Snippet, r.BodyPreview, r.ClassifiedAt.UTC(), createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert email record: %w", err)
	}

	return nil
}

// Get retrieves a record by message ID
func (s *sqlStore) Get(ctx context.Context, messageID string) (*core.EmailRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM emails WHERE id = ?`, messageID)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to query email record: %w", err)
	}

	return record, nil
}

// List returns a page of records, newest first
func (s *sqlStore) List(ctx context.Context, q core.Query) (*core.Page, error) {
	q = q.Normalize()
	where, args := s.filter(q)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count email records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM emails`+where+` ORDER BY received_at DESC, id ASC LIMIT ? OFFSET ?`,
		append(args, q.PerPage, q.Offset())...)
	if err != nil {
		return nil, fmt.Errorf("failed to list email records: %w", err)
	}
	defer rows.Close()

	emails := make([]core.EmailRecord, 0, q.PerPage)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan email record: %w", err)
		}
		emails = append(emails, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate email records: %w", err)
	}

	return core.NewPage(emails, total, q), nil
}

// Stats counts records per category and those received since the given time
func (s *sqlStore) Stats(ctx context.Context, since time.Time) (*core.Stats, error) {
	stats := &core.Stats{Categories: make(map[core.Category]int)}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM emails`).Scan(&stats.Total); err != nil {
		return nil, fmt.Errorf("failed to count email records: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM emails GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count categories: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		stats.Categories[core.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate category counts: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM emails WHERE received_at >= ?`, since.UTC()).Scan(&stats.Recent); err != nil {
		return nil, fmt.Errorf("failed to count recent email records: %w", err)
	}

	return stats, nil
}

// MarkRead flags a record as read
func (s *sqlStore) MarkRead(ctx context.Context, messageID string) error {
	result, err := s.db.ExecContext(ctx, `UPDATE emails SET is_read = ? WHERE id = ?`, true, messageID)
	if err != nil {
		return fmt.Errorf("failed to mark email record read: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to mark email record read: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Cleanup removes records received before the retention window
func (s *sqlStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM emails WHERE received_at < ?`, time.Now().Add(-s.retention).UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up expired records: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired records", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// Stop stops the background cleanup task and closes the database connection
func (s *sqlStore) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if err := s.db.Close(); err != nil {
			s.logger.Error("Failed to close database", zap.String("driver", s.dialect.name), zap.Error(err))
		}
	})
}

func (s *sqlStore) filter(q core.Query) (string, []any) {
	var clauses []string
	var args []any

	if q.Category != "" {
		clauses = append(clauses, "category = ?")
		args = append(args, string(q.Category))
	}

	if search := strings.TrimSpace(q.Search); search != "" {
		like := "LIKE ?" + s.dialect.likeEscape
		clauses = append(clauses, fmt.Sprintf("(subject %[1]s OR company_name %[1]s OR sender %[1]s OR snippet %[1]s)", like))
		pattern := "%" + escapeLike(search) + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.EmailRecord, error) {
	var r core.EmailRecord
	var category, rule string

	err := row.Scan(
		&r.MessageID, &r.Subject, &r.Sender, &r.SenderDomain, &r.ReceivedAt,
		&category, &rule, &r.MatchedPhrase, &r.CompanyName, &r.JobTitle,
		&r.Noise, &r.Snippet, &r.BodyPreview, &r.IsRead,
		&r.ClassifiedAt, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Category = core.Category(category)
	r.Rule = core.RuleKey(rule)
	r.ReceivedAt = r.ReceivedAt.UTC()
	r.ClassifiedAt = r.ClassifiedAt.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
