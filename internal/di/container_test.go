package di

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mikey/job-mail-tracker/internal/adapters/cli"
	"github.com/mikey/job-mail-tracker/internal/adapters/httpapi"
	"github.com/mikey/job-mail-tracker/internal/classifier"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/ports"
	"github.com/mikey/job-mail-tracker/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContainerDefaults(t *testing.T) {
	t.Setenv("JOB_TRACKER_LOGGING_LEVEL", "error")

	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(
		store ports.Store,
		service *core.ClassificationService,
		source core.MessageSource,
		sched *scheduler.Scheduler,
		intake ports.MailIntake,
		server *httpapi.Server,
	) {
		defer store.Stop()
		assert.NotNil(t, service)
		assert.Nil(t, source)
		assert.Nil(t, sched)
		assert.Nil(t, intake)
		assert.NotNil(t, server)
	})
	require.NoError(t, err)
}

func TestBuildContainerRejectsBadStoreType(t *testing.T) {
	t.Setenv("JOB_TRACKER_STORE_TYPE", "redis")

	container, err := BuildContainer()
	require.NoError(t, err)

	err = container.Invoke(func(ports.Store) {})
	assert.ErrorContains(t, err, "unsupported store type: redis")
}

func TestBuildCLIContainer(t *testing.T) {
	var out bytes.Buffer
	flags := &CLIFlags{
		Out:                  &out,
		ExtraJobBoardDomains: []string{"jobs.example.org"},
		Precedence: []string{
			"offer", "rejection", "interview_tier1", "applied_subject",
			"interview_tier2", "applied", "follow_up", "direct",
		},
	}

	container, err := BuildCLIContainer(flags)
	require.NoError(t, err)

	err = container.Invoke(func(c *classifier.Classifier, r *cli.Reporter) {
		result, err := r.Report("stdin", strings.NewReader(
			"From: Board <alerts@jobs.example.org>\r\nSubject: Roles picked for you\r\n\r\nThree new roles match your search.\r\n"))
		require.NoError(t, err)
		assert.Equal(t, core.CategoryOther, result.Category)
		assert.Contains(t, out.String(), "Category: other")
	})
	require.NoError(t, err)
}

func TestBuildCLIContainerRejectsBadPrecedence(t *testing.T) {
	container, err := BuildCLIContainer(&CLIFlags{Out: &bytes.Buffer{}, Precedence: []string{"offer"}})
	require.NoError(t, err)

	err = container.Invoke(func(*classifier.Classifier) {})
	assert.ErrorContains(t, err, "invalid classifier.precedence")
}
