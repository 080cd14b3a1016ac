package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/mikey/job-mail-tracker/internal/core"
	"go.uber.org/zap"
)

// ErrScanInProgress is returned when a scan is requested while one is running
var ErrScanInProgress = errors.New("scan already in progress")

// Scanner runs a scan of a message source
type Scanner interface {
	Scan(ctx context.Context, source core.MessageSource, max int) (*core.ScanReport, error)
}

// Scheduler runs scans of a single source, periodically or on demand.
// At most one scan runs at a time.
type Scheduler struct {
	scanner     Scanner
	source      core.MessageSource
	interval    time.Duration
	maxMessages int
	logger      *zap.Logger

	running sync.Mutex
	mu      sync.Mutex
	last    *core.ScanReport
}

// New creates a new scheduler
func New(scanner Scanner, source core.MessageSource, interval time.Duration, maxMessages int, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scanner:     scanner,
		source:      source,
		interval:    interval,
		maxMessages: maxMessages,
		logger:      logger,
	}
}

// ScanNow runs a scan immediately. max <= 0 uses the configured limit.
func (s *Scheduler) ScanNow(ctx context.Context, max int) (*core.ScanReport, error) {
	if !s.running.TryLock() {
		return nil, ErrScanInProgress
	}
	defer s.running.Unlock()

	if max <= 0 {
		max = s.maxMessages
	}

	report, err := s.scanner.Scan(ctx, s.source, max)
	if report != nil {
		s.mu.Lock()
		s.last = report
		s.mu.Unlock()
	}
	return report, err
}

// LastReport returns the report of the most recent scan, or nil
func (s *Scheduler) LastReport() *core.ScanReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run scans immediately and then every interval until ctx is cancelled.
// Scan failures are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	s.logger.Info("Scan scheduler started", zap.Duration("interval", s.interval))

	s.runOnce(ctx)

	if s.interval <= 0 {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runOnce(ctx)
		case <-ctx.Done():
			s.logger.Info("Scan scheduler stopped")
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	_, err := s.ScanNow(ctx, 0)
	switch {
	case err == nil:
	case errors.Is(err, ErrScanInProgress):
		s.logger.Debug("Skipping scheduled scan, previous scan still running")
	case ctx.Err() != nil:
	default:
		s.logger.Error("Scheduled scan failed", zap.Error(err))
	}
}
