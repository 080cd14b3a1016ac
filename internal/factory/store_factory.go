package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mikey/job-mail-tracker/internal/adapters/store"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/ports"
	"go.uber.org/zap"
)

// StoreFactory creates result stores based on configuration
type StoreFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewStoreFactory creates a new store factory
func NewStoreFactory(cfg *config.Config, logger *zap.Logger) *StoreFactory {
	return &StoreFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateStore creates a result store based on the configuration
func (f *StoreFactory) CreateStore() (ports.Store, error) {
	sc, err := f.cfg.GetStore()
	if err != nil {
		return nil, err
	}

	switch sc.Type {
	case "memory":
		return store.NewMemoryStore(f.logger, sc.Retention, sc.CleanupInterval), nil
	case "sqlite":
		// Ensure directory exists
		if err := os.MkdirAll(filepath.Dir(sc.SQLitePath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return store.NewSQLiteStore(sc.SQLitePath, f.logger, sc.Retention, sc.CleanupInterval)
	case "mysql":
		return store.NewMySQLStore(sc.MySQLDSN, f.logger, sc.Retention, sc.CleanupInterval)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", sc.Type)
	}
}
