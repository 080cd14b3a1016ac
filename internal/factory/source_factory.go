package factory

import (
	"context"
	"fmt"

	"github.com/mikey/job-mail-tracker/internal/adapters/source"
	"github.com/mikey/job-mail-tracker/internal/config"
	"github.com/mikey/job-mail-tracker/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates message sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates the configured message source. It returns nil when no
// source is configured.
func (f *SourceFactory) CreateSource(ctx context.Context) (core.MessageSource, error) {
	sourceType := f.cfg.GetSourceType()

	switch sourceType {
	case "none", "":
		return nil, nil
	case "gmail":
		gc := f.cfg.GetGmail()
		return source.NewGmailSource(ctx, source.GmailConfig{
			CredentialsFile:   gc.CredentialsFile,
			TokenFile:         gc.TokenFile,
			User:              gc.User,
			Query:             gc.Query,
			RequestsPerSecond: gc.RequestsPerSecond,
		}, f.logger)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
