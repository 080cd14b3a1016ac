package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mikey/job-mail-tracker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var classifiedAt = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

// subjectClassifier files every message under the category named by its subject
type subjectClassifier struct{}

func (subjectClassifier) Classify(msg RawMessage) ClassificationResult {
	category, err := ParseCategory(msg.Subject)
	if err != nil {
		category = CategoryOther
	}
	return ClassificationResult{MessageID: msg.ID, Category: category, ClassifiedAt: classifiedAt}
}

// phraseClassifier reads the body the way the rule engine does
type phraseClassifier struct{}

func (phraseClassifier) Classify(msg RawMessage) ClassificationResult {
	category := CategoryOther
	if strings.Contains(strings.ToLower(msg.Body), "thank you for applying") {
		category = CategoryApplied
	}
	return ClassificationResult{MessageID: msg.ID, Category: category, ClassifiedAt: classifiedAt}
}

type memRepo struct {
	mu      sync.Mutex
	records map[string]*EmailRecord
	failIDs map[string]bool
}

func newMemRepo(failIDs ...string) *memRepo {
	r := &memRepo{records: make(map[string]*EmailRecord), failIDs: make(map[string]bool)}
	for _, id := range failIDs {
		r.failIDs[id] = true
	}
	return r
}

func (r *memRepo) Upsert(_ context.Context, record *EmailRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIDs[record.MessageID] {
		return errors.New("disk full")
	}
	r.records[record.MessageID] = record
	return nil
}

func (r *memRepo) Get(_ context.Context, id string) (*EmailRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func (r *memRepo) List(context.Context, Query) (*Page, error) { return nil, nil }

func (r *memRepo) Stats(context.Context, time.Time) (*Stats, error) { return nil, nil }

func (r *memRepo) MarkRead(context.Context, string) error { return nil }

type listSource struct {
	msgs []RawMessage
	err  error
}

func (s *listSource) Fetch(_ context.Context, _ int, fn func(RawMessage) error) error {
	for _, m := range s.msgs {
		if err := fn(m); err != nil {
			return err
		}
	}
	return s.err
}

func messages(n int, subject string) []RawMessage {
	out := make([]RawMessage, n)
	for i := range out {
		out[i] = RawMessage{ID: fmt.Sprintf("m%d", i), Subject: subject, Body: "body"}
	}
	return out
}

func newTestService(repo ResultRepository, opts ScanOptions) *ClassificationService {
	return NewClassificationService(subjectClassifier{}, nil, repo, zap.NewNop(), opts)
}

func TestProcess(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, ScanOptions{})

	record, err := svc.Process(context.Background(), RawMessage{
		ID:      "a1",
		Sender:  "Acme <jobs@acme.com>",
		Subject: "applied",
		Body:    strings.Repeat("x", 600),
	})
	require.NoError(t, err)

	assert.Equal(t, CategoryApplied, record.Category)
	assert.Len(t, record.Snippet, snippetLength)
	assert.Len(t, record.BodyPreview, bodyPreviewLength)
	assert.True(t, record.ReceivedAt.Equal(classifiedAt))

	stored, err := repo.Get(context.Background(), "a1")
	require.NoError(t, err)
	assert.Same(t, record, stored)
}

func TestProcessStoreFailure(t *testing.T) {
	svc := newTestService(newMemRepo("a1"), ScanOptions{})

	_, err := svc.Process(context.Background(), RawMessage{ID: "a1"})
	assert.ErrorContains(t, err, "failed to store classification for a1")
}

func TestNewEmailRecord(t *testing.T) {
	received := time.Date(2024, 3, 9, 8, 0, 0, 0, time.FixedZone("EST", -5*3600))
	msg := RawMessage{
		ID:         "x",
		Subject:    "Hello",
		Sender:     "a@b.com",
		Body:       "héllo wörld",
		Snippet:    "provided snippet",
		ReceivedAt: received,
	}

	record := NewEmailRecord(msg, ClassificationResult{MessageID: "x", Category: CategoryOther, ClassifiedAt: classifiedAt})

	assert.Equal(t, "provided snippet", record.Snippet)
	assert.Equal(t, "héllo wörld", record.BodyPreview)
	assert.Equal(t, time.UTC, record.ReceivedAt.Location())
	assert.True(t, record.ReceivedAt.Equal(received))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "hé", truncateRunes("héllo", 2))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
}

func TestScan(t *testing.T) {
	repo := newMemRepo("m3")
	svc := newTestService(repo, ScanOptions{Workers: 4})

	source := &listSource{msgs: messages(5, "rejection")}
	report, err := svc.Scan(context.Background(), source, 0)
	require.NoError(t, err)

	assert.NotEmpty(t, report.ScanID)
	assert.Equal(t, 5, report.Fetched)
	assert.Equal(t, 4, report.Stored)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, 4, report.ByCategory[CategoryRejection])
	assert.False(t, report.FinishedAt.Before(report.StartedAt))
}

func TestScanStopsAtLimit(t *testing.T) {
	repo := newMemRepo()
	svc := newTestService(repo, ScanOptions{Workers: 2})

	report, err := svc.Scan(context.Background(), &listSource{msgs: messages(10, "offer")}, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 3, report.Stored)
}

func TestScanLimitIsCapped(t *testing.T) {
	svc := newTestService(newMemRepo(), ScanOptions{MaxMessages: 5000})
	assert.Equal(t, MaxScanMessages, svc.maxScan)

	svc = newTestService(newMemRepo(), ScanOptions{MaxMessages: 2})
	report, err := svc.Scan(context.Background(), &listSource{msgs: messages(4, "applied")}, 100)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Fetched)
}

func TestScanSourceFailureReturnsPartialReport(t *testing.T) {
	svc := newTestService(newMemRepo(), ScanOptions{Workers: 1})

	source := &listSource{msgs: messages(2, "interview"), err: errors.New("quota exceeded")}
	report, err := svc.Scan(context.Background(), source, 0)

	assert.ErrorContains(t, err, "quota exceeded")
	require.NotNil(t, report)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 2, report.Stored)
}

func TestScanCancelled(t *testing.T) {
	svc := newTestService(newMemRepo(), ScanOptions{Workers: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Scan(ctx, &listSource{msgs: messages(3, "offer")}, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestScanPreparesBodies(t *testing.T) {
	repo := newMemRepo()
	tp := utils.NewTextProcessor(zap.NewNop(), 64)
	svc := NewClassificationService(phraseClassifier{}, tp, repo, zap.NewNop(), ScanOptions{Workers: 1})

	reply := RawMessage{
		ID:      "reply",
		Subject: "Re: Your application",
		Body: "Any update on the timeline?\n\n" +
			"On Mon, Mar 4, 2024 at 9:00 AM Acme Jobs <jobs@acme.com> wrote:\n" +
			"> Thank you for applying to Acme.\n",
	}
	long := RawMessage{ID: "long", Subject: "Hello", Body: strings.Repeat("a", 100)}

	report, err := svc.Scan(context.Background(), &listSource{msgs: []RawMessage{reply, long}}, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, report.ByCategory[CategoryOther])
	assert.Zero(t, report.ByCategory[CategoryApplied])

	stored, err := repo.Get(context.Background(), "reply")
	require.NoError(t, err)
	assert.Equal(t, "Any update on the timeline?", stored.BodyPreview)

	stored, err = repo.Get(context.Background(), "long")
	require.NoError(t, err)
	assert.Len(t, stored.BodyPreview, 64)

	assert.Equal(t, CategoryOther, svc.Classify(reply).Category)
}
