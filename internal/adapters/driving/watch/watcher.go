// Package watch ingests documents dropped into a folder.
//
// The watcher listens for create and write events with fsnotify, waits for
// the folder to settle, then uploads every changed file through the ingest
// port. A file that is rewritten keeps its document id, so its chunks are
// replaced rather than duplicated.
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

	"github.com/custodia-labs/finrag/internal/core/domain"
	"github.com/custodia-labs/finrag/internal/core/ports/driving"
	"github.com/custodia-labs/finrag/internal/logger"
)

// DefaultDebounce is how long the folder must be quiet before ingesting.
const DefaultDebounce = 500 * time.Millisecond

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("watcher closed")

// Result reports the outcome of ingesting one file.
type Result struct {
	Path   string
	Ingest *domain.IngestResult
	Err    error
}

// Watcher uploads supported files that appear or change in a folder.
type Watcher struct {
	root     string
	ingest   driving.IngestService
	debounce time.Duration
	userID   string
	scan     bool
	onResult func(Result)

	mu     sync.Mutex
	closed bool
	ids    map[string]string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before changed files are ingested.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithUser attributes ingested documents to a user.
func WithUser(id string) Option {
	return func(w *Watcher) { w.userID = id }
}

// WithInitialScan ingests files already in the folder when Run starts.
func WithInitialScan(enabled bool) Option {
	return func(w *Watcher) { w.scan = enabled }
}

// WithResultHandler is called after every ingestion attempt.
func WithResultHandler(fn func(Result)) Option {
	return func(w *Watcher) { w.onResult = fn }
}

// New creates a watcher for root.
func New(root string, ingest driving.IngestService, opts ...Option) *Watcher {
	w := &Watcher{
		root:     root,
		ingest:   ingest,
		debounce: DefaultDebounce,
		ids:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Root returns the watched folder.
func (w *Watcher) Root() string {
	return w.root
}

// DocumentID returns the id assigned to a previously ingested file.
func (w *Watcher) DocumentID(path string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.ids[path]
	return id, ok
}

// Close stops future runs. A running Run returns when its context ends.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

// Run blocks until ctx is cancelled, ingesting files as they change.
func (w *Watcher) Run(ctx context.Context) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}

	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root path error: %s is not a directory", w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := fsw.Add(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	logger.Info("watching %s", w.root)

	if w.scan {
		w.scanExisting(ctx)
	}

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			path, relevant := w.handleEvent(event)
			if !relevant {
				continue
			}
			pending[path] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)

		case <-timer.C:
			for path := range pending {
				w.ingestFile(ctx, path)
				delete(pending, path)
			}
		}
	}
}

// handleEvent reports whether an event names a file that should be ingested.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(event.Name) {
		return "", false
	}
	info, err := os.Stat(event.Name)
	if err != nil || info.IsDir() {
		return "", false
	}
	if !w.ingest.ValidateFileType(event.Name) {
		logger.Debug("skipping unsupported file %s", event.Name)
		return "", false
	}
	return event.Name, true
}

func (w *Watcher) scanExisting(ctx context.Context) {
	entries, err := os.ReadDir(w.root)
	if err != nil {
		logger.Warn("scanning %s: %v", w.root, err)
		return
	}
	for _, e := range entries {
		if ctx.Err() != nil {
			return
		}
		path := filepath.Join(w.root, e.Name())
		if e.IsDir() || isHidden(path) || !w.ingest.ValidateFileType(path) {
			continue
		}
		w.ingestFile(ctx, path)
	}
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	content, err := os.ReadFile(path)
	if err != nil {
		w.report(Result{Path: path, Err: fmt.Errorf("reading %s: %w", path, err)})
		return
	}

	docID, _ := w.DocumentID(path)
	res, err := w.ingest.Ingest(ctx, domain.Upload{
		DocumentID: docID,
		Filename:   filepath.Base(path),
		Content:    content,
		UserID:     w.userID,
	})
	if err != nil {
		logger.Warn("ingesting %s: %v", path, err)
		w.report(Result{Path: path, Err: err})
		return
	}

	w.mu.Lock()
	w.ids[path] = res.DocumentID
	w.mu.Unlock()

	logger.Info("ingested %s as %s (%d chunks)", path, res.DocumentID, res.ChunksCreated)
	w.report(Result{Path: path, Ingest: res})
}

func (w *Watcher) report(r Result) {
	if w.onResult != nil {
		w.onResult(r)
	}
}

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
