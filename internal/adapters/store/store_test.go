package store

import (
	"context"
	"testing"
	"time"

	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func newRecord(id string, category core.Category, subject, company string, received time.Time) *core.EmailRecord {
	return &core.EmailRecord{
		ClassificationResult: core.ClassificationResult{
			MessageID:    id,
			Category:     category,
			CompanyName:  company,
			SenderDomain: "acme.com",
			ClassifiedAt: baseTime,
		},
		Subject:     subject,
		Sender:      "Recruiter <jobs@acme.com>",
		Snippet:     "snippet for " + id,
		BodyPreview: "body for " + id,
		ReceivedAt:  received,
	}
}

type repository interface {
	core.ResultRepository
	Cleanup(ctx context.Context) error
}

// exerciseRepository runs the behaviour shared by every backend
func exerciseRepository(t *testing.T, repo repository) {
	ctx := context.Background()

	records := []*core.EmailRecord{
		newRecord("m1", core.CategoryApplied, "Thanks for applying", "Acme", baseTime.Add(-72*time.Hour)),
		newRecord("m2", core.CategoryRejection, "Update on your application", "Globex", baseTime.Add(-48*time.Hour)),
		newRecord("m3", core.CategoryInterview, "Interview with Initech", "Initech", baseTime.Add(-24*time.Hour)),
		newRecord("m4", core.CategoryApplied, "Application received 100%_done", "Umbrella", baseTime.Add(-10*24*time.Hour)),
	}
	for _, r := range records {
		require.NoError(t, repo.Upsert(ctx, r))
	}

	t.Run("get", func(t *testing.T) {
		got, err := repo.Get(ctx, "m3")
		require.NoError(t, err)
		assert.Equal(t, core.CategoryInterview, got.Category)
		assert.Equal(t, "Interview with Initech", got.Subject)
		assert.Equal(t, "body for m3", got.BodyPreview)
		assert.True(t, got.ReceivedAt.Equal(baseTime.Add(-24*time.Hour)))
		assert.False(t, got.CreatedAt.IsZero())

		_, err = repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("list newest first", func(t *testing.T) {
		page, err := repo.List(ctx, core.Query{})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 1, page.TotalPages)
		require.Len(t, page.Emails, 4)
		assert.Equal(t, []string{"m3", "m2", "m1", "m4"}, ids(page.Emails))
	})

	t.Run("list by category", func(t *testing.T) {
		page, err := repo.List(ctx, core.Query{Category: core.CategoryApplied})
		require.NoError(t, err)
		assert.Equal(t, []string{"m1", "m4"}, ids(page.Emails))
	})

	t.Run("search", func(t *testing.T) {
		page, err := repo.List(ctx, core.Query{Search: "globex"})
		require.NoError(t, err)
		assert.Equal(t, []string{"m2"}, ids(page.Emails))

		page, err = repo.List(ctx, core.Query{Search: "100%_"})
		require.NoError(t, err)
		assert.Equal(t, []string{"m4"}, ids(page.Emails))

		page, err = repo.List(ctx, core.Query{Search: "%"})
		require.NoError(t, err)
		assert.Equal(t, []string{"m4"}, ids(page.Emails))
	})

	t.Run("paging", func(t *testing.T) {
		page, err := repo.List(ctx, core.Query{Page: 2, PerPage: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)
		assert.Equal(t, 2, page.TotalPages)
		assert.Equal(t, []string{"m4"}, ids(page.Emails))

		page, err = repo.List(ctx, core.Query{Page: 5, PerPage: 3})
		require.NoError(t, err)
		assert.Empty(t, page.Emails)
		assert.NotNil(t, page.Emails)
	})

	t.Run("stats", func(t *testing.T) {
		stats, err := repo.Stats(ctx, baseTime.Add(-7*24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Total)
		assert.Equal(t, 3, stats.Recent)
		assert.Equal(t, 2, stats.Categories[core.CategoryApplied])
		assert.Equal(t, 1, stats.Categories[core.CategoryRejection])
		assert.Equal(t, 1, stats.Categories[core.CategoryInterview])
	})

	t.Run("mark read survives reclassification", func(t *testing.T) {
		require.NoError(t, repo.MarkRead(ctx, "m1"))
		require.NoError(t, repo.MarkRead(ctx, "m1"))
		assert.ErrorIs(t, repo.MarkRead(ctx, "missing"), ErrNotFound)

		updated := newRecord("m1", core.CategoryRejection, "changed subject", "Acme Corp", baseTime)
		updated.Rule = core.RuleRejection
		require.NoError(t, repo.Upsert(ctx, updated))

		got, err := repo.Get(ctx, "m1")
		require.NoError(t, err)
		assert.Equal(t, core.CategoryRejection, got.Category)
		assert.Equal(t, core.RuleRejection, got.Rule)
		assert.Equal(t, "Acme Corp", got.CompanyName)
		assert.Equal(t, "Thanks for applying", got.Subject)
		assert.True(t, got.ReceivedAt.Equal(baseTime.Add(-72*time.Hour)))
		assert.True(t, got.IsRead)
	})
}

func ids(records []core.EmailRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.MessageID
	}
	return out
}
