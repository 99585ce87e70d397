package domain

import "time"

// Built-in background tasks.
const (
	// TaskIDIngestionResubmit re-dispatches documents stuck in the created
	// state, covering dispatches lost to a crash or an unreachable queue.
	TaskIDIngestionResubmit = "ingestion-resubmit"

	// TaskIDHistoryPrune trims the task run log.
	TaskIDHistoryPrune = "history-prune"
)

// ScheduledTask is the persisted schedule of one background task.
type ScheduledTask struct {
	ID       string
	Name     string
	Interval time.Duration
	Enabled  bool

	LastRun     time.Time
	NextRun     time.Time
	LastSuccess time.Time

	// LastError is empty after a successful run.
	LastError string
}

// Due reports whether the task should run at now. A zero NextRun is
// always due.
func (t *ScheduledTask) Due(now time.Time) bool {
	return t.Enabled && t.Interval > 0 && !now.Before(t.NextRun)
}

// TaskResult is one entry in the task run log.
type TaskResult struct {
	TaskID    string
	StartedAt time.Time
	EndedAt   time.Time
	Success   bool
	Error     string

	// ItemsProcessed counts documents resubmitted, or history rows kept
	// for the prune task.
	ItemsProcessed int
}

// Duration is how long the run took.
func (r TaskResult) Duration() time.Duration {
	if r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// SchedulerConfig is the scheduler section of the settings.
type SchedulerConfig struct {
	// Enabled gates the whole loop; tasks also have their own switch.
	Enabled bool

	TaskConfigs map[string]TaskConfig
}

// TaskConfig configures one task.
type TaskConfig struct {
	Enabled  bool
	Interval time.Duration
}

// GetTaskConfig returns a zero TaskConfig for unknown tasks.
func (c *SchedulerConfig) GetTaskConfig(taskID string) TaskConfig {
	if c.TaskConfigs == nil {
		return TaskConfig{}
	}
	return c.TaskConfigs[taskID]
}

// DefaultSchedulerConfig leaves resubmission off so dispatch stays
// at-most-once unless the operator opts in.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled: true,
		TaskConfigs: map[string]TaskConfig{
			TaskIDIngestionResubmit: {Enabled: false, Interval: 10 * time.Minute},
			TaskIDHistoryPrune:      {Enabled: true, Interval: 24 * time.Hour},
		},
	}
}
