// Package watcher ingests files as they are created or written in a directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"rag-agent/internal/domain"
)

// DefaultDebounce is how long a path must stay quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// Ingester stores a loaded document.
type Ingester interface {
	Ingest(ctx context.Context, doc domain.Document) (int, error)
}

// Watcher ingests every regular, non-hidden file written under a single directory.
type Watcher struct {
	dir      string
	ingester Ingester
	load     func(path string) (domain.Document, error)
	logger   *zap.Logger
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func New(dir string, ingester Ingester, load func(string) (domain.Document, error), opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		ingester: ingester,
		load:     load,
		logger:   zap.NewNop(),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches the directory until ctx is cancelled. Ingest failures are logged, not returned.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info("watching directory", zap.String("dir", w.dir))

	// Each scheduled ingest carries a sequence number; a delivery whose number is no
	// longer current for its path was superseded by a later event and is dropped.
	ready := make(chan debounced)
	stop := make(chan struct{})
	pending := make(map[string]debounced)
	var seq uint64
	defer func() {
		close(stop)
		for _, d := range pending {
			d.timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			path, ok := w.handleEvent(ev)
			if !ok {
				continue
			}
			if d, ok := pending[path]; ok {
				d.timer.Stop()
			}
			seq++
			fired := debounced{path: path, seq: seq}
			timer := time.AfterFunc(w.debounce, func() {
				select {
				case ready <- fired:
				case <-ctx.Done():
				case <-stop:
				}
			})
			pending[path] = debounced{path: path, seq: seq, timer: timer}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", zap.Error(err))
		case d := <-ready:
			if cur, ok := pending[d.path]; !ok || cur.seq != d.seq {
				continue
			}
			delete(pending, d.path)
			w.ingestFile(ctx, d.path)
		}
	}
}

type debounced struct {
	path  string
	seq   uint64
	timer *time.Timer
}

// handleEvent returns the path to ingest for create and write events on visible regular files.
func (w *Watcher) handleEvent(ev fsnotify.Event) (string, bool) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return "", false
	}
	if isHidden(ev.Name) {
		return "", false
	}
	info, err := os.Stat(ev.Name)
	if err != nil || !info.Mode().IsRegular() {
		return "", false
	}
	return ev.Name, true
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	doc, err := w.load(path)
	if err != nil {
		w.logger.Warn("load failed", zap.String("path", path), zap.Error(err))
		return
	}
	stored, err := w.ingester.Ingest(ctx, doc)
	if err != nil {
		w.logger.Warn("ingest failed", zap.String("path", path), zap.Int("stored", stored), zap.Error(err))
		return
	}
	w.logger.Info("ingested file", zap.String("path", path), zap.Int("points", stored))
}

// isHidden reports whether the file name starts with a dot, as editors' swap files do.
func isHidden(path string) bool {
	base := filepath.Base(path)
	return strings.HasPrefix(base, ".") && base != "." && base != ".."
}
