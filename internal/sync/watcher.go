package sync

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches filesystem event bursts (editors often write,
// chmod, and rename in quick succession) into a single trigger.
const debounceWindow = 2 * time.Second

// Watcher observes the diary directory and its images subdirectory and
// fires the trigger callback once per debounced burst of changes.
// Triggers fire on a dedicated goroutine; callers pairing the watcher
// with an Engine get coalescing for free from the engine's
// singleflight group.
type Watcher struct {
	fw      *fsnotify.Watcher
	logger  *slog.Logger
	trigger func()
}

// NewWatcher starts watching diaryDir and diaryDir/images. The images
// directory is optional; it is picked up on creation if it appears
// later.
func NewWatcher(diaryDir string, trigger func(), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("sync: creating watcher: %w", err)
	}

	if err := fw.Add(diaryDir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("sync: watching %s: %w", diaryDir, err)
	}

	imagesDir := filepath.Join(diaryDir, "images")
	if err := fw.Add(imagesDir); err != nil {
		// Fine if it does not exist yet.
		logger.Debug("images directory not watched", slog.String("dir", imagesDir), slog.String("error", err.Error()))
	}

	return &Watcher{fw: fw, logger: logger, trigger: trigger}, nil
}

// Run consumes filesystem events until ctx is cancelled. It blocks.
func (w *Watcher) Run(ctx context.Context) {
	var timer *time.Timer

	timerC := func() <-chan time.Time {
		if timer == nil {
			return nil
		}

		return timer.C
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}

			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if !w.relevant(ev) {
				continue
			}

			w.logger.Debug("filesystem change",
				slog.String("path", ev.Name),
				slog.String("op", ev.Op.String()),
			)

			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}

		case <-timerC():
			timer = nil

			w.trigger()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// Close stops the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

// relevant filters events down to the files the engine actually syncs,
// plus directory creation so a new images folder gets watched.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)

	// Ignore hidden files and editor temp files.
	if strings.HasPrefix(name, ".") || strings.HasSuffix(name, "~") {
		return false
	}

	// A newly created images directory should be watched from now on.
	if ev.Op.Has(fsnotify.Create) && name == "images" {
		if err := w.fw.Add(ev.Name); err != nil {
			w.logger.Warn("watching new directory", slog.String("dir", ev.Name), slog.String("error", err.Error()))
		}
	}

	return ev.Op.Has(fsnotify.Create) || ev.Op.Has(fsnotify.Write) || ev.Op.Has(fsnotify.Remove) || ev.Op.Has(fsnotify.Rename)
}
