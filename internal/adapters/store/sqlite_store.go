package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

var sqliteDialect = dialect{
	name: "sqlite3",
	upsert: `
		INSERT INTO emails (id, subject, sender, sender_domain, received_at, category, matched_rule,
			matched_phrase, company_name, job_title, noise, snippet, body_preview, classified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sender_domain = excluded.sender_domain,
			category = excluded.category,
			matched_rule = excluded.matched_rule,
			matched_phrase = excluded.matched_phrase,
			company_name = excluded.company_name,
			job_title = excluded.job_title,
			noise = excluded.noise,
			classified_at = excluded.classified_at
	`,
	likeEscape: ` ESCAPE '\'`,
}

// SQLiteStore is a SQLite implementation of core.ResultRepository
type SQLiteStore struct {
	*sqlStore
}

// NewSQLiteStore opens (creating if needed) the database at dbPath
func NewSQLiteStore(dbPath string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite allows one writer; serialize through a single connection
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS emails (
			id TEXT PRIMARY KEY,
			subject TEXT NOT NULL DEFAULT '',
			sender TEXT NOT NULL DEFAULT '',
			sender_domain TEXT NOT NULL DEFAULT '',
			received_at TIMESTAMP NOT NULL,
			category TEXT NOT NULL,
			matched_rule TEXT NOT NULL DEFAULT '',
			matched_phrase TEXT NOT NULL DEFAULT '',
			company_name TEXT NOT NULL DEFAULT '',
			job_title TEXT NOT NULL DEFAULT '',
			noise BOOLEAN NOT NULL DEFAULT 0,
			snippet TEXT NOT NULL DEFAULT '',
			body_preview TEXT NOT NULL DEFAULT '',
			is_read BOOLEAN NOT NULL DEFAULT 0,
			classified_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_emails_received_at ON emails(received_at)`,
		`CREATE INDEX IF NOT EXISTS idx_emails_category ON emails(category)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create index: %w", err)
		}
	}

	logger.Info("Opened SQLite store", zap.String("path", dbPath))

	return &SQLiteStore{sqlStore: newSQLStore(db, sqliteDialect, logger, retention, cleanupFreq)}, nil
}
