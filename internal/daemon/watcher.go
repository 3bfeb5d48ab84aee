package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"meetingintel/internal/logging"
)

const defaultReloadDelay = 250 * time.Millisecond

// definitionWatcher calls reload after the pipeline definition file settles.
// The parent directory is watched so editors that replace the file by rename
// are still seen.
type definitionWatcher struct {
	path   string
	delay  time.Duration
	reload func()
	logger *slog.Logger

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup

	mu      sync.Mutex
	pending *time.Timer
}

func newDefinitionWatcher(path string, delay time.Duration, reload func(), logger *slog.Logger) (*definitionWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	clean := filepath.Clean(path)
	if err := w.Add(filepath.Dir(clean)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(clean), err)
	}
	if delay <= 0 {
		delay = defaultReloadDelay
	}
	return &definitionWatcher{
		path:    clean,
		delay:   delay,
		reload:  reload,
		logger:  logging.NewComponentLogger(logger, "pipeline-watcher"),
		watcher: w,
	}, nil
}

func (w *definitionWatcher) run(ctx context.Context) {
	w.wg.Go(func() {
		for {
			select {
			case event, ok := <-w.watcher.Events:
				if !ok {
					return
				}
				w.handle(event)
			case err, ok := <-w.watcher.Errors:
				if !ok {
					return
				}
				w.logger.Warn("pipeline watcher error",
					logging.String(logging.FieldEventType, "pipeline_watch_error"),
					logging.Error(err),
				)
			case <-ctx.Done():
				return
			}
		}
	})
}

func (w *definitionWatcher) handle(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.logger.Debug("pipeline definition changed",
		logging.String("path", event.Name),
		logging.String("op", event.Op.String()),
	)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.pending = time.AfterFunc(w.delay, w.reload)
}

func (w *definitionWatcher) close() {
	_ = w.watcher.Close()
	w.wg.Wait()
	w.mu.Lock()
	if w.pending != nil {
		w.pending.Stop()
	}
	w.mu.Unlock()
}
