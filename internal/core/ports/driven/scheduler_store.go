package driven

import (
	"context"

	"github.com/custodia-labs/ragline/internal/core/domain"
)

// SchedulerStore keeps the resubmit and prune tasks' schedule across
// restarts, along with a bounded log of their runs.
type SchedulerStore interface {
	// GetTask returns nil and no error for an unknown task.
	GetTask(ctx context.Context, taskID string) (*domain.ScheduledTask, error)

	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// SaveTask upserts by task ID.
	SaveTask(ctx context.Context, task *domain.ScheduledTask) error

	RecordResult(ctx context.Context, result *domain.TaskResult) error

	// RecentResults returns up to limit runs of a task, newest first.
	RecentResults(ctx context.Context, taskID string, limit int) ([]domain.TaskResult, error)

	// PruneHistory keeps only the newest keep results of each task.
	PruneHistory(ctx context.Context, keep int) error
}
