// Package watcher reloads a climb store when its settings file changes on disk.
package watcher

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 200 * time.Millisecond

// Reloader re-reads persisted state. changed is false when the data on
// disk matched what was already loaded.
type Reloader interface {
	Reload() (changed bool, err error)
}

// Watch watches dir for changes to the file called name and calls r.Reload
// once events have been quiet for debounce. It returns when ctx is
// cancelled. Atomic writes replace the file, so the directory is watched.
func Watch(ctx context.Context, dir, name string, r Reloader, logger *slog.Logger, debounce time.Duration) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("dir", dir), slog.String("file", name))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-reloadCh:
			changed, err := r.Reload()
			if err != nil {
				logger.Warn("watcher: reload failed", slog.String("file", name), slog.String("error", err.Error()))
				continue
			}
			if changed {
				logger.Info("watcher: reloaded", slog.String("file", name))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != name {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				logger.Debug("watcher: change", slog.String("file", name), slog.String("op", ev.Op.String()))
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
