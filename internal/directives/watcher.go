package directives

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch reloads the registry whenever its override file changes, until ctx is
// cancelled. The parent directory is watched so editors that replace the file
// via rename are handled. A registry without a file returns immediately.
func Watch(ctx context.Context, r *Registry, logger *slog.Logger) error {
	if r.path == "" {
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	target := filepath.Clean(r.path)
	if err := w.Add(filepath.Dir(target)); err != nil {
		return err
	}
	logger.Info("directives watcher: started", slog.String("path", target))

	var timer *time.Timer
	var timerCh <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(reloadDebounce)
			timerCh = timer.C
		} else {
			timer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.Info("directives watcher: stopped")
			return nil

		case <-timerCh:
			if err := r.Reload(); err != nil {
				logger.Warn("directives watcher: reload failed, keeping previous modes",
					slog.String("error", err.Error()))
				continue
			}
			logger.Info("directives watcher: reloaded", slog.Int("modes", len(r.List())))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("directives watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
