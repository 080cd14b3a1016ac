package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mikey/job-mail-tracker/internal/adapters/store"
	"github.com/mikey/job-mail-tracker/internal/classifier"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/scheduler"
	"github.com/mikey/job-mail-tracker/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, 3, 12, 12, 0, 0, 0, time.UTC)

type sliceSource struct {
	msgs []core.RawMessage
	err  error
}

func (s *sliceSource) Fetch(ctx context.Context, max int, fn func(core.RawMessage) error) error {
	for i, m := range s.msgs {
		if i >= max {
			break
		}
		if err := fn(m); err != nil {
			return err
		}
	}
	return s.err
}

var seedMessages = []core.RawMessage{
	{
		ID:         "rej-1",
		Sender:     "Globex Talent <talent@globex.com>",
		Subject:    "Your application to Globex",
		Body:       "Unfortunately, we have decided to move forward with other candidates.",
		ReceivedAt: fixedNow.Add(-2 * time.Hour),
	},
	{
		ID:         "int-1",
		Sender:     "Jane Smith <jane@initech.com>",
		Subject:    "Interview invitation",
		Body:       "We would like to invite you to interview for the Backend Engineer role.",
		ReceivedAt: fixedNow.Add(-time.Hour),
	},
	{
		ID:         "old-1",
		Sender:     "Deals <deals@shop.example.com>",
		Subject:    "50% off this weekend",
		Body:       "Shop our sale.",
		ReceivedAt: fixedNow.Add(-30 * 24 * time.Hour),
	},
}

type testEnv struct {
	server *Server
	repo   *store.MemoryStore
	source *sliceSource
}

func newTestEnv(t *testing.T, withSource bool) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	repo := store.NewMemoryStore(logger, 0, 0)
	t.Cleanup(repo.Stop)

	c := classifier.New(classifier.WithClock(func() time.Time { return fixedNow }))
	svc := core.NewClassificationService(c, utils.NewTextProcessor(logger, 16384), repo, logger, core.ScanOptions{Workers: 2})

	env := &testEnv{repo: repo}
	var scans ScanTrigger
	if withSource {
		env.source = &sliceSource{msgs: seedMessages}
		scans = scheduler.New(svc, env.source, 0, 100, logger)
	}

	env.server = NewServer(repo, svc, scans, logger, "127.0.0.1:0")
	env.server.now = func() time.Time { return fixedNow }

	for _, m := range seedMessages {
		_, err := svc.Process(context.Background(), m)
		require.NoError(t, err)
	}
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, false)
	w := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListEmails(t *testing.T) {
	env := newTestEnv(t, false)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantIDs  []string
	}{
		{name: "all", path: "/api/emails", wantCode: http.StatusOK, wantIDs: []string{"int-1", "rej-1", "old-1"}},
		{name: "all keyword", path: "/api/emails?category=all", wantCode: http.StatusOK, wantIDs: []string{"int-1", "rej-1", "old-1"}},
		{name: "by category", path: "/api/emails?category=rejection", wantCode: http.StatusOK, wantIDs: []string{"rej-1"}},
		{name: "search", path: "/api/emails?search=initech", wantCode: http.StatusOK, wantIDs: []string{"int-1"}},
		{name: "paging", path: "/api/emails?page=2&per_page=2", wantCode: http.StatusOK, wantIDs: []string{"old-1"}},
		{name: "unknown category", path: "/api/emails?category=spam", wantCode: http.StatusBadRequest},
		{name: "bad page", path: "/api/emails?page=two", wantCode: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodGet, tt.path, nil)
			require.Equal(t, tt.wantCode, w.Code, w.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			page := decode[core.Page](t, w)
			got := make([]string, len(page.Emails))
			for i, e := range page.Emails {
				got[i] = e.MessageID
			}
			assert.Equal(t, tt.wantIDs, got)
		})
	}
}

func TestGetEmail(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/emails/int-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	record := decode[core.EmailRecord](t, w)
	assert.Equal(t, core.CategoryInterview, record.Category)
	assert.Equal(t, "Initech", record.CompanyName)

	w = env.do(t, http.MethodGet, "/api/emails/nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/emails/rej-1/read", nil)
	require.Equal(t, http.StatusOK, w.Code)

	record, err := env.repo.Get(context.Background(), "rej-1")
	require.NoError(t, err)
	assert.True(t, record.IsRead)

	w = env.do(t, http.MethodPost, "/api/emails/nope/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStats(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stats := decode[core.Stats](t, w)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 2, stats.Recent)
	assert.Equal(t, 1, stats.Categories[core.CategoryRejection])
	assert.Equal(t, 1, stats.Categories[core.CategoryInterview])
	assert.Equal(t, 1, stats.Categories[core.CategoryOther])
}

func TestCategories(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodGet, "/api/categories", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string][]core.Category](t, w)
	assert.Equal(t, core.Categories(), body["categories"])
}

func TestClassify(t *testing.T) {
	env := newTestEnv(t, false)

	req, _ := json.Marshal(classifyRequest{
		Sender:  "HR <hr@acme.com>",
		Subject: "Offer letter",
		Body:    "We are pleased to offer you the position of Staff Engineer.",
	})
	w := env.do(t, http.MethodPost, "/api/classify", req)
	require.Equal(t, http.StatusOK, w.Code)

	result := decode[core.ClassificationResult](t, w)
	assert.Equal(t, core.CategoryOffer, result.Category)

	w = env.do(t, http.MethodPost, "/api/classify", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyUsesIDAndSnippet(t *testing.T) {
	env := newTestEnv(t, false)

	req, _ := json.Marshal(classifyRequest{
		ID:      "gmail-123",
		Sender:  "Globex Talent <talent@globex.com>",
		Subject: "Your application to Globex",
		Snippet: "Unfortunately, we have decided to move forward with other candidates.",
	})
	w := env.do(t, http.MethodPost, "/api/classify", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	result := decode[core.ClassificationResult](t, w)
	assert.Equal(t, "gmail-123", result.MessageID)
	assert.Equal(t, core.CategoryRejection, result.Category)
	assert.Equal(t, core.RuleRejection, result.Rule)
}

func TestScanWithoutSource(t *testing.T) {
	env := newTestEnv(t, false)

	w := env.do(t, http.MethodPost, "/api/scan", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = env.do(t, http.MethodGet, "/api/scan", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestScan(t *testing.T) {
	env := newTestEnv(t, true)

	w := env.do(t, http.MethodGet, "/api/scan", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPost, "/api/scan", []byte(`{"max_results": 2}`))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	report := decode[core.ScanReport](t, w)
	assert.Equal(t, 2, report.Fetched)
	assert.Equal(t, 2, report.Stored)

	w = env.do(t, http.MethodGet, "/api/scan", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, report.ScanID, decode[core.ScanReport](t, w).ScanID)

	w = env.do(t, http.MethodPost, "/api/scan", []byte(`{"max_results": -1}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScanSourceFailure(t *testing.T) {
	env := newTestEnv(t, true)
	env.source.err = errors.New("token expired")

	w := env.do(t, http.MethodPost, "/api/scan", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "token expired")
}
