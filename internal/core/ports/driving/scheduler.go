package driving

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// Scheduler runs the background ingestion-resubmit and history-prune tasks.
type Scheduler interface {
	// Start blocks until ctx is cancelled or the loop fails to initialise.
	Start(ctx context.Context) error

	Stop() error

	// LastRun reports the most recent run of a task, or nil if it has
	// never run.
	LastRun(ctx context.Context, taskID string) (*domain.TaskResult, error)
}
