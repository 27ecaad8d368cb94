package shared

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// ConfigHolder provides thread-safe access to the live configuration and hot
// reloading from disk. A failed reload keeps the previous configuration; the
// swap is all-or-nothing.
type ConfigHolder struct {
	mu        sync.RWMutex
	current   *Config
	path      string
	logger    *log.Logger
	listeners []func(*Config)
}

// NewConfigHolder creates a holder around an initial config. The path may be
// empty, in which case Reload and Watch are no-ops.
func NewConfigHolder(initial *Config, path string, logger *log.Logger) *ConfigHolder {
	if logger == nil {
		logger = NewLogger(nil)
	}
	return &ConfigHolder{
		current: initial,
		path:    path,
		logger:  WithLogger(logger, "component", "config"),
	}
}

// Get returns the current configuration.
func (h *ConfigHolder) Get() *Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Subscribe registers a callback invoked with the new config after every
// successful reload. Callbacks run on the watcher goroutine and must not block.
func (h *ConfigHolder) Subscribe(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, fn)
}

// Reload re-reads the config file. Validation failures leave the current
// configuration untouched.
func (h *ConfigHolder) Reload() error {
	if h.path == "" {
		return nil
	}

	cfg, err := LoadConfig(h.path)
	if err != nil {
		h.logger.Warn("config reload failed, keeping previous config", "error", err)
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	h.current = cfg
	listeners := make([]func(*Config), len(h.listeners))
	copy(listeners, h.listeners)
	h.mu.Unlock()

	for _, fn := range listeners {
		fn(cfg)
	}

	h.logger.Info("configuration reloaded", "path", h.path)
	return nil
}

// Watch watches the config file for writes until ctx is cancelled, reloading
// on each change. Editors that replace the file are handled by re-adding the
// path after remove/rename events.
func (h *ConfigHolder) Watch(ctx context.Context) error {
	if h.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	if err := watcher.Add(h.path); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config file: %w", err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					_ = h.Reload()
				}
				if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
					// Atomic-save editors replace the file; give the new one
					// a moment to appear, then watch it again.
					time.Sleep(100 * time.Millisecond)
					if err := watcher.Add(h.path); err == nil {
						_ = h.Reload()
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				h.logger.Warn("config watcher error", "error", err)
			}
		}
	}()

	h.logger.Debug("watching config file", "path", h.path)
	return nil
}
