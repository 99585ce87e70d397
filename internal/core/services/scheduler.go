package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// HistoryRetention is how many results are kept per task.
const HistoryRetention = 100

// Resubmitter re-dispatches documents stuck before ingestion.
type Resubmitter interface {
	ResubmitStale(ctx context.Context, olderThan time.Duration) (int, error)
}

// Scheduler runs background maintenance tasks on a ticker.
type Scheduler struct {
	config      domain.SchedulerConfig
	store       driven.SchedulerStore
	resubmitter Resubmitter
	tick        time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	resubmitter Resubmitter,
) *Scheduler {
	return &Scheduler{
		config:      config,
		store:       store,
		resubmitter: resubmitter,
		tick:        time.Minute,
	}
}

// SetTick changes how often due tasks are checked.
func (s *Scheduler) SetTick(d time.Duration) {
	if d > 0 {
		s.tick = d
	}
}

// Start begins the scheduler loop. It blocks until Stop is called or ctx ends.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		logger.Debug("Scheduler disabled")
		return nil
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop shuts the loop down and waits for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// LastRun returns the newest recorded run of a task, or nil if none.
func (s *Scheduler) LastRun(ctx context.Context, taskID string) (*domain.TaskResult, error) {
	results, err := s.store.RecentResults(ctx, taskID, 1)
	if err != nil {
		return nil, fmt.Errorf("task %s history: %w", taskID, err)
	}
	if len(results) == 0 {
		return nil, nil
	}
	return &results[0], nil
}

func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	names := map[string]string{
		domain.TaskIDIngestionResubmit: "Ingestion Resubmit",
		domain.TaskIDHistoryPrune:      "History Prune",
	}
	for id, name := range names {
		if err := s.ensureTask(ctx, id, name, s.config.GetTaskConfig(id)); err != nil {
			return err
		}
	}
	return nil
}

// ensureTask creates or updates a task so the store mirrors configuration.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Enabled:  cfg.Enabled,
			NextRun:  time.Now().Add(cfg.Interval),
		}
	} else {
		if task.Interval != cfg.Interval {
			task.Interval = cfg.Interval
			task.NextRun = time.Now().Add(cfg.Interval)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

func (s *Scheduler) run(ctx context.Context) error {
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.wg.Wait()
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := tasks[i]
		if task.Due(now) {
			s.runTask(ctx, &task)
		}
	}
}

func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		result := &domain.TaskResult{
			TaskID:    task.ID,
			StartedAt: time.Now(),
		}

		var err error
		switch task.ID {
		case domain.TaskIDIngestionResubmit:
			result.ItemsProcessed, err = s.runResubmit(ctx, task.Interval)
		case domain.TaskIDHistoryPrune:
			err = s.store.PruneHistory(ctx, HistoryRetention)
		default:
			logger.Warn("scheduler: unknown task ID: %s", task.ID)
			return
		}

		result.EndedAt = time.Now()
		if err != nil {
			result.Error = err.Error()
			task.LastError = err.Error()
			logger.Warn("scheduler: %s failed: %v", task.ID, err)
		} else {
			result.Success = true
			task.LastError = ""
			task.LastSuccess = result.EndedAt
		}

		task.LastRun = result.StartedAt
		task.NextRun = result.EndedAt.Add(task.Interval)

		if saveErr := s.store.SaveTask(ctx, task); saveErr != nil {
			logger.Warn("scheduler: save task %s: %v", task.ID, saveErr)
		}
		if recordErr := s.store.RecordResult(ctx, result); recordErr != nil {
			logger.Warn("scheduler: record result for %s: %v", task.ID, recordErr)
		}
	}()
}

// runResubmit re-dispatches documents that stayed in created for at least
// one task interval.
func (s *Scheduler) runResubmit(ctx context.Context, interval time.Duration) (int, error) {
	if s.resubmitter == nil {
		return 0, nil
	}
	return s.resubmitter.ResubmitStale(ctx, interval)
}
