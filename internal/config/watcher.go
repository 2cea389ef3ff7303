package config

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"faultline/internal/fingerprint"
	"faultline/internal/logger"
)

// debounceDelay coalesces the burst of filesystem events an editor produces
// for a single save into one reload.
const debounceDelay = 250 * time.Millisecond

// Watcher re-reads the config file when it changes and hands the parsed
// result to onUpdate. A file that fails to parse or validate is rejected
// and the previous config stays active. Rewrites with identical content are
// skipped.
type Watcher struct {
	path     string
	logger   logger.Logger
	onUpdate func(*Config)

	mu       sync.Mutex
	timer    *time.Timer
	lastHash string

	reloadMu sync.Mutex
}

func NewWatcher(path string, initial *Config, log logger.Logger, onUpdate func(*Config)) *Watcher {
	if log == nil {
		log = logger.NopLogger()
	}
	w := &Watcher{
		path:     path,
		logger:   log,
		onUpdate: onUpdate,
	}
	if initial != nil {
		w.lastHash = hashConfig(initial)
	}
	return w
}

// Watch blocks until ctx is done. The parent directory is watched rather
// than the file itself so atomic saves (write temp, rename over) keep
// working.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.path)
	file := filepath.Base(w.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching config directory %s: %w", dir, err)
	}

	w.logger.Infow("config watcher started", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), file) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.scheduleReload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			if err != nil {
				w.logger.Warnw("config watch error", "path", w.path, "error", err)
			}
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounceDelay, w.reload)
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}

func (w *Watcher) reload() {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	cfg, err := LoadConfig(w.path)
	if err != nil {
		w.logger.Warnw("config reload rejected", "path", w.path, "error", err)
		return
	}

	hash := hashConfig(cfg)
	w.mu.Lock()
	unchanged := hash == w.lastHash
	if !unchanged {
		w.lastHash = hash
	}
	w.mu.Unlock()

	if unchanged {
		w.logger.Debugw("config unchanged, skipping reload", "path", w.path)
		return
	}

	w.logger.Infow("config reloaded", "path", w.path, "hash", hash)
	w.onUpdate(cfg)
}

func hashConfig(cfg *Config) string {
	return fingerprint.Hash(fmt.Sprintf("%+v", *cfg))
}
