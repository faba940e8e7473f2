package source

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes into one callback.
const DefaultDebounce = 250 * time.Millisecond

// FollowOptions configure Follow.
type FollowOptions struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// Follow calls fn once immediately and again after each burst of writes to
// path, until ctx is cancelled.
//
// The parent directory is watched rather than the file, so the watch
// survives log rotation (remove + create). Errors from fn are logged and
// do not stop the loop. Follow returns nil when ctx is cancelled.
func Follow(ctx context.Context, path string, opts FollowOptions, fn func(context.Context) error) error {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(abs), err)
	}

	run := func() {
		if err := fn(ctx); err != nil {
			logger.Warn("follow callback failed", "path", path, "error", err)
		}
	}
	run()

	timer := time.NewTimer(opts.Debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			logger.Debug("input changed", "path", path, "op", ev.Op.String())
			timer.Reset(opts.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watching %s: %w", path, err)

		case <-timer.C:
			run()
		}
	}
}
