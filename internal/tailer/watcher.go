package tailer

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/framelog/internal/cliconfig"
	"github.com/bft-labs/framelog/pkg/log"
)

// ConfigWatcher monitors the framelog config file via fsnotify and
// applies the reloadable subset (currently the poll interval) to a
// running Tailer. Editors replace files rather than rewriting them in
// place, so the watch is on the directory and events are debounced.
type ConfigWatcher struct {
	path   string
	tailer *Tailer
	logger log.Logger

	mu       sync.Mutex
	debounce *time.Timer
}

// NewConfigWatcher creates a watcher for the config file at path.
func NewConfigWatcher(path string, t *Tailer, logger log.Logger) *ConfigWatcher {
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &ConfigWatcher{path: path, tailer: t, logger: logger}
}

// Run watches until the context is cancelled. Watch setup failures are
// logged, not fatal: a tail without live reload still works.
func (w *ConfigWatcher) Run(ctx context.Context) {
	if w.path == "" {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher unavailable", log.Err(err))
		return
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(w.path)); err != nil {
		w.logger.Warn("config watcher unavailable", log.Err(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.debounceReload(100 * time.Millisecond)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher", log.Err(err))
		}
	}
}

func (w *ConfigWatcher) debounceReload(delay time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(delay, w.reload)
}

func (w *ConfigWatcher) reload() {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("reload config", log.Err(err))
		return
	}
	if fc.PollInterval == "" {
		return
	}
	d, err := time.ParseDuration(fc.PollInterval)
	if err != nil {
		w.logger.Warn("reload config", log.Err(err))
		return
	}
	w.tailer.SetPollInterval(d)
	w.logger.Info("poll interval updated", log.Duration("poll_interval", d))
}
