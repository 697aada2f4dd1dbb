// Package reload watches the configuration file for changes and triggers
// a debounced reload callback. In cmd/proxycore that callback re-reads the
// file and re-applies its logging settings; proxies, servers and switching
// rules in the running registry are not changed by a reload.
package reload

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a single configuration file for changes and triggers
// reloads through a debouncer, preventing reload storms from editors that
// write a file in several passes (truncate, write, rename).
type Watcher struct {
	watcher  *fsnotify.Watcher
	logger   *slog.Logger
	config   *Config
	debounce *Debouncer

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// Config contains configuration for the file watcher.
type Config struct {
	// Path is the configuration file to watch.
	Path string

	// DebounceInterval is how long to wait after the last detected write
	// before triggering a reload.
	// Default: 200ms
	DebounceInterval time.Duration
}

// DefaultConfig returns the default watcher configuration for path.
func DefaultConfig(path string) *Config {
	return &Config{
		Path:             path,
		DebounceInterval: 200 * time.Millisecond,
	}
}

// NewWatcher creates a new file watcher for the configuration file named
// in config.Path.
func NewWatcher(config *Config, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		return nil, fmt.Errorf("reload: config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fsw,
		logger:   logger,
		config:   config,
		debounce: NewDebouncer(config.DebounceInterval),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	return w, nil
}

// Watch blocks, watching the configured file and invoking onReload after
// each debounced change, until ctx is cancelled or Stop is called.
//
// fsnotify on most platforms cannot watch a single file across a rename
// (editors that save via rename-into-place break the inode watch), so the
// file's parent directory is watched instead and events are filtered by
// base name.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("reload: watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.doneCh)
	}()

	dir := filepath.Dir(w.config.Path)
	if err := w.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch directory %q: %w", dir, err)
	}

	target := filepath.Base(w.config.Path)
	w.logger.Info("config watcher started", "path", w.config.Path, "debounce_ms", w.config.DebounceInterval.Milliseconds())

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped (context cancelled)")
			return nil

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("reload: watcher events channel closed")
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&fsnotify.Chmod == fsnotify.Chmod {
				continue
			}

			w.logger.Debug("config file event detected", "path", event.Name, "op", event.Op.String())

			w.debounce.Trigger(func() {
				w.logger.Info("triggering configuration reload", "path", w.config.Path)
				if err := onReload(); err != nil {
					w.logger.Error("configuration reload failed", "error", err)
				}
			})

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("reload: watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop stops the watcher and releases the underlying fsnotify handle.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.debounce.Stop()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	return nil
}
