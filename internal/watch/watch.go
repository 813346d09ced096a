// Package watch reports changes of a single file.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"
	"github.com/retroenv/retrogolib/log"
)

// DefaultDelay is the time to wait after the last file event before a change
// is reported, editors and build tools tend to write a file in several steps.
const DefaultDelay = 100 * time.Millisecond

// Watcher reports changes of a file. The parent directory is watched so that
// files that are replaced by a rename are still tracked.
type Watcher struct {
	logger  *log.Logger
	path    string
	delay   time.Duration
	watcher *fsnotify.Watcher
}

// New starts watching the given file.
func New(logger *log.Logger, path string, delay time.Duration) (*Watcher, error) {
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := watcher.Watch(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("watching %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		logger:  logger,
		path:    path,
		delay:   delay,
		watcher: watcher,
	}, nil
}

// Changes returns a channel that receives a value after the file changed.
// Changes that happen before the previous one was received are merged.
// The channel is closed when the context is done or the watcher is closed.
func (w *Watcher) Changes(ctx context.Context) <-chan struct{} {
	changes := make(chan struct{}, 1)
	go w.run(ctx, changes)
	return changes
}

// Close stops watching the file.
func (w *Watcher) Close() error {
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("closing file watcher: %w", err)
	}
	return nil
}

func (w *Watcher) run(ctx context.Context, changes chan<- struct{}) {
	defer close(changes)

	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Event:
			if !ok {
				return
			}
			if w.matches(ev) {
				fire = time.After(w.delay)
			}

		case err, ok := <-w.watcher.Error:
			if !ok {
				return
			}
			w.logger.Warn("File watcher error", log.Err(err))

		case <-fire:
			fire = nil
			w.logger.Debug("File changed", log.String("file", w.path))
			select {
			case changes <- struct{}{}:
			default:
			}
		}
	}
}

func (w *Watcher) matches(ev *fsnotify.FileEvent) bool {
	if ev == nil || ev.IsAttrib() {
		return false
	}
	name, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	return name == w.path
}
