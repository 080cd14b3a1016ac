package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mikey/job-mail-tracker/internal/core"
	"go.uber.org/zap"
)

// ErrNotFound is returned when no record has the requested message ID
var ErrNotFound = errors.New("email record not found")

// MemoryStore is an in-memory implementation of core.ResultRepository
type MemoryStore struct {
	records     map[string]*core.EmailRecord
	mu          sync.RWMutex
	logger      *zap.Logger
	retention   time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
	stopOnce    sync.Once
}

// NewMemoryStore creates a new in-memory store. A zero retention keeps
// records forever and disables the cleanup task.
func NewMemoryStore(logger *zap.Logger, retention, cleanupFreq time.Duration) *MemoryStore {
	s := &MemoryStore{
		records:     make(map[string]*core.EmailRecord),
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

// Upsert inserts a record or replaces the classification of an existing one.
// Message fields, read state and creation time of an existing record are kept.
func (s *MemoryStore) Upsert(ctx context.Context, record *core.EmailRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[record.MessageID]; ok {
		existing.ClassificationResult = record.ClassificationResult
		return nil
	}

	stored := *record
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}
	s.records[record.MessageID] = &stored
	return nil
}

// Get retrieves a record by message ID
func (s *MemoryStore) Get(ctx context.Context, messageID string) (*core.EmailRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[messageID]
	if !ok {
		return nil, ErrNotFound
	}
	out := *record
	return &out, nil
}

// List returns a page of records, newest first
func (s *MemoryStore) List(ctx context.Context, q core.Query) (*core.Page, error) {
	q = q.Normalize()
	search := strings.ToLower(strings.TrimSpace(q.Search))

	s.mu.RLock()
	matched := make([]core.EmailRecord, 0, len(s.records))
	for _, r := range s.records {
		if q.Category != "" && r.Category != q.Category {
			continue
		}
		if search != "" && !recordContains(r, search) {
			continue
		}
		matched = append(matched, *r)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].ReceivedAt.Equal(matched[j].ReceivedAt) {
			return matched[i].ReceivedAt.After(matched[j].ReceivedAt)
		}
		return matched[i].MessageID < matched[j].MessageID
	})

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}

	return core.NewPage(matched[start:end], total, q), nil
}

// Stats counts records per category and those received since the given time
func (s *MemoryStore) Stats(ctx context.Context, since time.Time) (*core.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &core.Stats{Categories: make(map[core.Category]int)}
	for _, r := range s.records {
		stats.Total++
		stats.Categories[r.Category]++
		if !r.ReceivedAt.Before(since) {
			stats.Recent++
		}
	}
	return stats, nil
}

// MarkRead flags a record as read
func (s *MemoryStore) MarkRead(ctx context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[messageID]
	if !ok {
		return ErrNotFound
	}
	record.IsRead = true
	return nil
}

// Cleanup removes records received before the retention window
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	if s.retention <= 0 {
		return nil
	}

	cutoff := time.Now().Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	expiredCount := 0
	for id, r := range s.records {
		if r.ReceivedAt.Before(cutoff) {
			delete(s.records, id)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired records", zap.Int("expired_count", expiredCount))
	return nil
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

func recordContains(r *core.EmailRecord, search string) bool {
	for _, field := range []string{r.Subject, r.CompanyName, r.Sender, r.Snippet} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

type cleaner interface {
	Cleanup(ctx context.Context) error
}

// runCleanup periodically calls Cleanup until stopCh is closed
func runCleanup(c cleaner, logger *zap.Logger, freq time.Duration, stopCh <-chan struct{}) {
	ticker := time.NewTicker(freq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Cleanup(context.Background()); err != nil {
				logger.Error("Failed to clean up expired records", zap.Error(err))
			}
		case <-stopCh:
			return
		}
	}
}

var _ core.ResultRepository = (*MemoryStore)(nil)
