package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// MaxScanMessages bounds a single scan run
const MaxScanMessages = 2000

const (
	snippetLength     = 200
	bodyPreviewLength = 500
)

var errScanLimit = errors.New("scan limit reached")

// ScanOptions controls how a scan fans out work
type ScanOptions struct {
	Workers     int
	MaxMessages int
}

// ClassificationService is the core service that classifies and stores messages
type ClassificationService struct {
	classifier Classifier
	body       BodyProcessor
	repo       ResultRepository
	logger     *zap.Logger
	workers    int
	maxScan    int
}

// NewClassificationService creates a new classification service. A nil body
// processor leaves message bodies untouched.
func NewClassificationService(
	classifier Classifier,
	body BodyProcessor,
	repo ResultRepository,
	logger *zap.Logger,
	opts ScanOptions,
) *ClassificationService {
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.MaxMessages <= 0 || opts.MaxMessages > MaxScanMessages {
		opts.MaxMessages = MaxScanMessages
	}

	return &ClassificationService{
		classifier: classifier,
		body:       body,
		repo:       repo,
		logger:     logger,
		workers:    opts.Workers,
		maxScan:    opts.MaxMessages,
	}
}

// Classify classifies a message without storing it
func (s *ClassificationService) Classify(msg RawMessage) ClassificationResult {
	return s.classifier.Classify(s.prepare(msg))
}

// Process classifies a message and upserts the result
func (s *ClassificationService) Process(ctx context.Context, msg RawMessage) (*EmailRecord, error) {
	msg = s.prepare(msg)
	result := s.classifier.Classify(msg)
	record := NewEmailRecord(msg, result)

	s.logger.Debug("Classified message",
		zap.String("message_id", msg.ID),
		zap.String("category", string(result.Category)),
		zap.String("rule", string(result.Rule)),
		zap.Bool("noise", result.Noise))

	if err := s.repo.Upsert(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to store classification for %s: %w", msg.ID, err)
	}

	return record, nil
}

func (s *ClassificationService) prepare(msg RawMessage) RawMessage {
	if s.body != nil {
		msg.Body = s.body.ProcessText(msg.Body)
	}
	return msg
}

// Scan fetches up to max messages from source and processes them with bounded
// parallelism. A failure to store one message is counted and does not stop the
// scan; a source failure does, and the partial report is returned with it.
func (s *ClassificationService) Scan(ctx context.Context, source MessageSource, max int) (*ScanReport, error) {
	if max <= 0 || max > s.maxScan {
		max = s.maxScan
	}

	report := &ScanReport{
		ScanID:     uuid.NewString(),
		ByCategory: make(map[Category]int),
		StartedAt:  time.Now().UTC(),
	}
	logger := s.logger.With(zap.String("scan_id", report.ScanID))
	logger.Info("Starting scan", zap.Int("max_messages", max), zap.Int("workers", s.workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)

	var mu sync.Mutex
	fetched := 0

	fetchErr := source.Fetch(gctx, max, func(msg RawMessage) error {
		if fetched >= max {
			return errScanLimit
		}
		fetched++

		g.Go(func() error {
			record, err := s.Process(gctx, msg)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				report.Failed++
				logger.Error("Failed to process message", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			report.Stored++
			report.ByCategory[record.Category]++
			return nil
		})

		return gctx.Err()
	})

	_ = g.Wait()

	report.Fetched = fetched
	report.FinishedAt = time.Now().UTC()

	if fetchErr != nil && !errors.Is(fetchErr, errScanLimit) {
		logger.Error("Scan aborted", zap.Int("fetched", fetched), zap.Error(fetchErr))
		return report, fmt.Errorf("scan %s failed: %w", report.ScanID, fetchErr)
	}

	logger.Info("Scan complete",
		zap.Int("fetched", report.Fetched),
		zap.Int("stored", report.Stored),
		zap.Int("failed", report.Failed),
		zap.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	return report, nil
}

// NewEmailRecord combines a message with its classification. A message
// without a receive time is dated at classification.
func NewEmailRecord(msg RawMessage, result ClassificationResult) *EmailRecord {
	snippet := msg.Snippet
	if snippet == "" {
		snippet = truncateRunes(msg.Body, snippetLength)
	}

	received := msg.ReceivedAt
	if received.IsZero() {
		received = result.ClassifiedAt
	}

	return &EmailRecord{
		ClassificationResult: result,
		Subject:              msg.Subject,
		Sender:               msg.Sender,
		Snippet:              snippet,
		BodyPreview:          truncateRunes(msg.Body, bodyPreviewLength),
		ReceivedAt:           received.UTC(),
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
