package letters

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/genogram/internal/logging"
	"github.com/fyrsmithlabs/genogram/internal/patterns"
)

// Watcher serves a catalog loaded from disk and reloads it when the file
// changes. A reload that fails validation keeps the previous catalog.
type Watcher struct {
	path    string
	current atomic.Pointer[Catalog]
	watcher *fsnotify.Watcher
	logger  *logging.Logger

	stop     chan struct{}
	stopOnce sync.Once
	reloads  atomic.Int64
}

// NewWatcher loads path and prepares a filesystem watcher. Call Start to
// begin watching and Stop to release resources.
func NewWatcher(path string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	catalog, err := LoadCatalog(abs)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	w := &Watcher{
		path:    abs,
		watcher: fw,
		logger:  logger.Named("letters"),
		stop:    make(chan struct{}),
	}
	w.current.Store(catalog)
	return w, nil
}

// Start watches the catalog's directory so atomic renames by editors are
// seen as well as in-place writes.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}
	go w.run(ctx)
	return nil
}

// Stop ends watching. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		_ = w.watcher.Close()
	})
}

// Current returns the active catalog.
func (w *Watcher) Current() *Catalog {
	return w.current.Load()
}

// Reloads returns the number of successful reloads.
func (w *Watcher) Reloads() int64 {
	return w.reloads.Load()
}

// Attach implements patterns.Unlocker using the active catalog.
func (w *Watcher) Attach(in []patterns.Pattern) []patterns.Pattern {
	return w.Current().Attach(in)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-w.stop:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				w.reload(ctx)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn(ctx, "catalog watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	catalog, err := LoadCatalog(w.path)
	if err != nil {
		w.logger.Warn(ctx, "catalog reload failed, keeping previous catalog",
			zap.String("path", w.path), zap.Error(err))
		return
	}
	w.current.Store(catalog)
	w.reloads.Add(1)
	w.logger.Info(ctx, "catalog reloaded",
		zap.String("path", w.path), zap.Int("letters", len(catalog.letters)))
}
