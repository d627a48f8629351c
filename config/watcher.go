package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultDebounce is how long the watcher waits after a change before
// reloading, since editors often write a file several times in a burst.
const defaultDebounce = 500 * time.Millisecond

// Watcher reloads a config file when it changes on disk and delivers the
// new configuration to a callback. Invalid edits are logged and skipped;
// the previous configuration stays in effect.
type Watcher struct {
	path     string
	logger   *slog.Logger
	debounce time.Duration
	onReload func(*Config)

	watcher *fsnotify.Watcher

	pendingMu sync.Mutex
	pending   bool
}

// NewWatcher creates a watcher for the given config file path.
func NewWatcher(path string, logger *slog.Logger, onReload func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		path:     path,
		logger:   logger,
		debounce: defaultDebounce,
		onReload: onReload,
		watcher:  fsw,
	}, nil
}

// Start begins watching until ctx is cancelled. The parent directory is
// watched rather than the file itself: atomic-save editors replace the
// file, which would silently drop a file-level watch.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}

	go w.processEvents(ctx)

	w.logger.Info("Config watcher started", "path", w.path)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) processEvents(ctx context.Context) {
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.pendingMu.Lock()
				w.pending = true
				w.pendingMu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Config watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

func (w *Watcher) flushPending() {
	w.pendingMu.Lock()
	pending := w.pending
	w.pending = false
	w.pendingMu.Unlock()

	if !pending {
		return
	}

	config, err := LoadFromFile(w.path)
	if err != nil {
		w.logger.Warn("Config reload failed, keeping previous config",
			"path", w.path, "error", err)
		return
	}
	if err := config.Validate(); err != nil {
		w.logger.Warn("Reloaded config invalid, keeping previous config",
			"path", w.path, "error", err)
		return
	}

	w.logger.Info("Config reloaded", "path", w.path)
	if w.onReload != nil {
		w.onReload(config)
	}
}
