package ports

import (
	"context"

	"github.com/mikey/job-mail-tracker/internal/core"
)

// Store is a result repository with a lifecycle
type Store interface {
	core.ResultRepository

	// Cleanup removes records older than the retention period
	Cleanup(ctx context.Context) error

	// Stop releases resources held by the store
	Stop()
}
