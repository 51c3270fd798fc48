package mcpconfig

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultReloadDebounce = 300 * time.Millisecond

// Watcher watches the configuration files of every source and invokes
// the reload callback when any of them changes. Bursts of writes are
// debounced into a single reload. The directories are watched rather
// than the files themselves so editors that replace files atomically
// still trigger events.
type Watcher struct {
	sources  []Source
	reload   func(context.Context) error
	debounce time.Duration
	logger   *zap.Logger
}

func NewWatcher(sources []Source, reload func(context.Context) error, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		sources:  sources,
		reload:   reload,
		debounce: defaultReloadDebounce,
		logger:   logger.Named("config-watcher"),
	}
}

// Run blocks watching for changes until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("config watcher failed", zap.Error(err))
		return
	}
	defer watcher.Close()

	watched := make(map[string]struct{})
	for _, source := range w.sources {
		dir := filepath.Dir(source.Path)
		if _, ok := watched[dir]; ok {
			continue
		}
		watched[dir] = struct{}{}
		if err := watcher.Add(dir); err != nil {
			w.logger.Warn("config watcher add failed", zap.String("path", dir), zap.Error(err))
		}
	}

	var timer *time.Timer
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-watcher.Errors:
			if err != nil {
				w.logger.Warn("config watcher error", zap.Error(err))
			}
		case event := <-watcher.Events:
			if !w.shouldReloadFor(event.Name) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				continue
			}
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(w.debounce)
		case <-timerChan(timer):
			timer = nil
			if err := w.reload(ctx); err != nil {
				w.logger.Warn("config reload failed", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) shouldReloadFor(path string) bool {
	if path == "" {
		return false
	}
	for _, source := range w.sources {
		if filepath.Clean(path) == filepath.Clean(source.Path) {
			return true
		}
	}
	return false
}

func timerChan(timer *time.Timer) <-chan time.Time {
	if timer == nil {
		return nil
	}
	return timer.C
}
