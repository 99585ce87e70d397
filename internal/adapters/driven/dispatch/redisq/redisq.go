// Package redisq dispatches ingestion through a Redis list. Submit pushes a
// JSON job with RPUSH; workers, typically in a separate `ragline worker`
// process, pop jobs with BLPOP and run ingestion.
package redisq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// popTimeout bounds each BLPOP so workers notice cancellation.
const popTimeout = 2 * time.Second

// Job is the queued unit of work.
type Job struct {
	DocumentID  string    `json:"document_id"`
	Attempt     int       `json:"attempt"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// queue is the list operations the dispatcher and worker need.
type queue interface {
	push(ctx context.Context, payload string) error
	pop(ctx context.Context, timeout time.Duration) (string, bool, error)
}

type redisList struct {
	client *redis.Client
	key    string
}

func (l *redisList) push(ctx context.Context, payload string) error {
	return l.client.RPush(ctx, l.key, payload).Err()
}

func (l *redisList) pop(ctx context.Context, timeout time.Duration) (string, bool, error) {
	res, err := l.client.BLPop(ctx, timeout, l.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return res[1], true, nil
}

// Connect opens a client and checks the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

var _ driven.Dispatcher = (*Dispatcher)(nil)

// Dispatcher enqueues ingestion jobs.
type Dispatcher struct {
	client *redis.Client
	q      queue
	now    func() time.Time
}

// NewDispatcher creates a dispatcher pushing onto the named list.
func NewDispatcher(client *redis.Client, key string) *Dispatcher {
	return &Dispatcher{client: client, q: &redisList{client: client, key: key}, now: time.Now}
}

// Submit pushes a first-attempt job.
func (d *Dispatcher) Submit(ctx context.Context, documentID string) error {
	return enqueue(ctx, d.q, Job{DocumentID: documentID, Attempt: 1, SubmittedAt: d.now()})
}

// Close closes the Redis client.
func (d *Dispatcher) Close() error {
	if d.client == nil {
		return nil
	}
	return d.client.Close()
}

func enqueue(ctx context.Context, q queue, job Job) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job: %w", err)
	}
	if err := q.push(ctx, string(payload)); err != nil {
		return fmt.Errorf("enqueue %s: %w", job.DocumentID, err)
	}
	return nil
}

// Worker consumes jobs and runs ingestion.
type Worker struct {
	q           queue
	run         driven.IngestFunc
	retry       driven.IngestFunc
	maxAttempts int
}

// NewWorker creates a worker. First attempts call run and redeliveries
// call retry. A failed job whose error is retryable is pushed back until
// it has run maxAttempts times; one means at-most-once.
func NewWorker(client *redis.Client, key string, run, retry driven.IngestFunc, maxAttempts int) *Worker {
	return newWorker(&redisList{client: client, key: key}, run, retry, maxAttempts)
}

func newWorker(q queue, run, retry driven.IngestFunc, maxAttempts int) *Worker {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if retry == nil {
		retry = run
	}
	return &Worker{q: q, run: run, retry: retry, maxAttempts: maxAttempts}
}

// Run pops and processes jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	logger.Info("redis worker started (max attempts %d)", w.maxAttempts)
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		if _, err := w.processOne(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("redis worker: %v", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(popTimeout):
			}
		}
	}
}

// processOne handles at most one job. It reports whether a job was popped.
func (w *Worker) processOne(ctx context.Context) (bool, error) {
	payload, ok, err := w.q.pop(ctx, popTimeout)
	if err != nil || !ok {
		return false, err
	}

	var job Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		logger.Warn("redis worker: dropping malformed job %q: %v", payload, err)
		return true, nil
	}

	run := w.run
	if job.Attempt > 1 {
		run = w.retry
	}
	runErr := run(ctx, job.DocumentID)
	if runErr == nil {
		return true, nil
	}
	if !domain.IsRetryable(runErr) || job.Attempt >= w.maxAttempts {
		logger.Warn("redis worker: ingestion of %s failed after %d attempt(s): %v", job.DocumentID, job.Attempt, runErr)
		return true, nil
	}

	job.Attempt++
	logger.Info("redis worker: requeueing %s (attempt %d/%d)", job.DocumentID, job.Attempt, w.maxAttempts)
	return true, enqueue(context.WithoutCancel(ctx), w.q, job)
}
