package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

var mysqlDialect = dialect{
	name: "mysql",
	upsert: `
		INSERT INTO emails (id, subject, sender, sender_domain, received_at, category, matched_rule,
			matched_phrase, company_name, job_title, noise, snippet, body_preview, classified_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			sender_domain = VALUES(sender_domain),
			category = VALUES(category),
			matched_rule = VALUES(matched_rule),
			matched_phrase = VALUES(matched_phrase),
			company_name = VALUES(company_name),
			job_title = VALUES(job_title),
			noise = VALUES(noise),
			classified_at = VALUES(classified_at)
	`,
	// backslash is MySQL's default LIKE escape
	likeEscape: "",
}

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS emails (
		id VARCHAR(255) PRIMARY KEY,
		subject TEXT NOT NULL,
		sender VARCHAR(512) NOT NULL DEFAULT '',
		sender_domain VARCHAR(255) NOT NULL DEFAULT '',
		received_at DATETIME(6) NOT NULL,
		category VARCHAR(32) NOT NULL,
		matched_rule VARCHAR(32) NOT NULL DEFAULT '',
		matched_phrase VARCHAR(512) NOT NULL DEFAULT '',
		company_name VARCHAR(255) NOT NULL DEFAULT '',
		job_title VARCHAR(255) NOT NULL DEFAULT '',
		noise BOOLEAN NOT NULL DEFAULT FALSE,
		snippet TEXT NOT NULL,
		body_preview TEXT NOT NULL,
		is_read BOOLEAN NOT NULL DEFAULT FALSE,
		classified_at DATETIME(6) NOT NULL,
		created_at DATETIME(6) NOT NULL,
		INDEX idx_emails_received_at (received_at),
		INDEX idx_emails_category (category)
	) CHARACTER SET utf8mb4
`

// MySQLStore is a MySQL implementation of core.ResultRepository
type MySQLStore struct {
	*sqlStore
}

// NewMySQLStore connects to MySQL and ensures the schema exists
func NewMySQLStore(dsn string, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid MySQL DSN: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	// Report matched rows so MarkRead on an already-read record is not a miss
	cfg.ClientFoundRows = true

	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	store, err := NewMySQLStoreFromDB(db, logger, retention, cleanupFreq)
	if err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to MySQL store", zap.String("addr", cfg.Addr), zap.String("db", cfg.DBName))
	return store, nil
}

// NewMySQLStoreFromDB wraps an open connection pool and ensures the schema exists
func NewMySQLStoreFromDB(db *sql.DB, logger *zap.Logger, retention, cleanupFreq time.Duration) (*MySQLStore, error) {
	if _, err := db.Exec(mysqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &MySQLStore{sqlStore: newSQLStore(db, mysqlDialect, logger, retention, cleanupFreq)}, nil
}
