// Package local provides an in-process ingestion dispatcher: a bounded
// queue drained by a fixed pool of goroutines.
package local

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("dispatcher closed")

// DefaultQueueSize bounds pending submissions.
const DefaultQueueSize = 256

var _ driven.Dispatcher = (*Dispatcher)(nil)

// Dispatcher runs ingestion on a worker pool inside the process.
// Each submission runs once; failures are left in the ingestion status.
type Dispatcher struct {
	run   driven.IngestFunc
	queue chan string

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
}

// New starts workers goroutines that call run for each submitted document.
func New(run driven.IngestFunc, workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		run:    run,
		queue:  make(chan string, queueSize),
		ctx:    ctx,
		cancel: cancel,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	return d
}

// Submit enqueues the document. It blocks while the queue is full, until
// ctx is done.
func (d *Dispatcher) Submit(ctx context.Context, documentID string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrClosed
	}
	select {
	case d.queue <- documentID:
		logger.Debug("local dispatch: queued %s", documentID)
		return nil
	case <-ctx.Done():
		return fmt.Errorf("queue ingestion of %s: %w", documentID, ctx.Err())
	}
}

func (d *Dispatcher) worker(n int) {
	defer d.wg.Done()
	for id := range d.queue {
		if err := d.run(d.ctx, id); err != nil {
			logger.Warn("local dispatch worker %d: ingestion of %s failed: %v", n, id, err)
		}
	}
}

// Close stops accepting work and waits for queued and in-flight
// ingestions to finish.
func (d *Dispatcher) Close() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.cancel()
	return nil
}

// Abort cancels in-flight ingestions and then closes.
func (d *Dispatcher) Abort() error {
	d.cancel()
	return d.Close()
}
