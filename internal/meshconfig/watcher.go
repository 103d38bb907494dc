package meshconfig

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/fsnotify/fsnotify"
)

// Watcher notifies on every write to the configuration file on disk, so
// an operator-rotated master key is noticed; applying it takes a restart.
// Simplified to the single file this package cares about.
type Watcher struct {
	logger  *slog.Logger
	watcher *fsnotify.Watcher
	path    string
	events  chan struct{}
}

// NewWatcher opens an fsnotify watch on the directory containing path, the
// recommended way to watch a single file reliably across editors/renames.
func NewWatcher(logger *slog.Logger, path string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Annotate(err, "meshconfig: opening watcher: %w")
	}

	dir := filepath.Dir(path)
	if err = fw.Add(dir); err != nil {
		_ = fw.Close()
		return nil, errors.Annotate(err, "meshconfig: watching %q: %w", dir)
	}

	return &Watcher{logger: logger, watcher: fw, path: path, events: make(chan struct{}, 1)}, nil
}

// Events returns the channel notified after every write to the watched
// path. Sends are non-blocking; a pending notification is coalesced with
// any events that arrive before it's drained.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Run drains the underlying fsnotify channels until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	base := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || filepath.Base(ev.Name) != base {
				continue
			}
			select {
			case w.events <- struct{}{}:
			default:
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.ErrorContext(ctx, "watching config file", "error", err)
		}
	}
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}
