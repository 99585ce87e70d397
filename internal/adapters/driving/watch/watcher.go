// Package watch ingests files dropped into a directory. It drives the
// ingestion service from filesystem events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driving"
	"github.com/custodia-labs/ragline/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before it is ingested.
// Editors and copies emit several writes per file.
const DefaultDebounce = 500 * time.Millisecond

// DefaultMaxFileBytes skips files larger than this.
const DefaultMaxFileBytes = 32 << 20

// ErrNotDirectory is returned when the watched path is not a directory.
var ErrNotDirectory = errors.New("watch: not a directory")

// Watcher ingests new and modified files in a directory. Subdirectories
// and hidden files are ignored. Removals are logged only; documents are
// not keyed by path.
type Watcher struct {
	dir       string
	ingestion driving.IngestionService
	debounce  time.Duration
	maxBytes  int64

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string

	// OnIngested is called after each file is submitted. Optional.
	OnIngested func(path string, report *driving.IngestReport)
}

// New creates a watcher for dir.
func New(dir string, ingestion driving.IngestionService) *Watcher {
	return &Watcher{
		dir:       dir,
		ingestion: ingestion,
		debounce:  DefaultDebounce,
		maxBytes:  DefaultMaxFileBytes,
		pending:   make(map[string]*time.Timer),
		ready:     make(chan string, 64),
	}
}

// SetDebounce overrides the quiet period.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetMaxFileBytes overrides the size limit.
func (w *Watcher) SetMaxFileBytes(n int64) {
	w.maxBytes = n
}

// IngestExisting submits every regular file already in the directory.
func (w *Watcher) IngestExisting(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", w.dir, err)
	}
	for _, e := range entries {
		if e.IsDir() || isHidden(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		w.ingestFile(ctx, filepath.Join(w.dir, e.Name()))
	}
	return nil
}

// Run watches the directory until ctx is cancelled. Ingestion failures
// are logged and do not stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s", ErrNotDirectory, w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("Watching %s for new documents", w.dir)

	defer w.stopPending()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		case path := <-w.ready:
			w.ingestFile(ctx, path)
		}
	}
}

// handleEvent schedules an ingest for files worth ingesting. It returns
// true when the event was scheduled.
func (w *Watcher) handleEvent(event fsnotify.Event) bool {
	if isHidden(filepath.Base(event.Name)) {
		return false
	}
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		logger.Debug("watch: %s removed; its document is kept", event.Name)
		w.cancel(event.Name)
		return false
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return false
	}
	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return false
	}
	w.schedule(event.Name)
	return true
}

// schedule restarts the quiet-period timer for path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
	}
	w.pending[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.ready <- path
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Pending returns the number of files waiting out their quiet period.
func (w *Watcher) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	info, err := os.Stat(path)
	if err != nil {
		logger.Warn("watch: %s: %v", path, err)
		return
	}
	if info.Size() > w.maxBytes {
		logger.Warn("watch: skipping %s: %d bytes exceeds limit of %d", path, info.Size(), w.maxBytes)
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("watch: reading %s: %v", path, err)
		return
	}

	report, err := w.ingestion.Ingest(ctx, []domain.Upload{{
		FileName: filepath.Base(path),
		Data:     data,
	}})
	if err != nil {
		logger.Warn("watch: ingesting %s: %v", path, err)
		return
	}
	for _, fe := range report.Errors {
		logger.Warn("watch: %v", fe)
	}
	for _, doc := range report.Documents {
		logger.Info("Ingesting %s as %s", filepath.Base(path), doc.ID)
	}
	if w.OnIngested != nil {
		w.OnIngested(path, report)
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~")
}
