// Package watch re-runs a callback when a scene file changes on disk.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is how long events are collected before the callback runs.
const DefaultDelay = 250 * time.Millisecond

// Scene watches the directory holding path and calls fn once per burst of
// changes to the scene file or to a glTF buffer next to it. Editors often
// save by replacing the file, so the directory is watched rather than the
// file itself. It blocks until ctx is cancelled.
func Scene(ctx context.Context, path string, delay time.Duration, log *zap.Logger, fn func()) error {
	if log == nil {
		log = zap.NewNop()
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir, base := filepath.Split(abs)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	log.Info("watching scene", zap.String("path", abs))

	var timer *time.Timer
	var fire <-chan time.Time
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(delay)
			fire = timer.C
			return
		}
		timer.Reset(delay)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			log.Info("watch stopped")
			return nil

		case <-fire:
			timer, fire = nil, nil
			fn()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if !relevant(filepath.Base(ev.Name), base) {
				continue
			}
			log.Debug("scene changed", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			schedule()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("watch error", zap.Error(err))
		}
	}
}

// relevant reports whether a change to name affects the scene in base.
func relevant(name, base string) bool {
	if name == base {
		return true
	}
	return strings.EqualFold(filepath.Ext(name), ".bin")
}
