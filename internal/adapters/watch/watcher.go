package watch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 150 * time.Millisecond

// File calls OnChange after the file at Path is written, replaced or
// removed. Bursts of events within Debounce collapse into one call.
//
// The parent directory is watched rather than the file itself, since atomic
// writes replace the file and a watch on the old inode would go quiet.
type File struct {
	Path     string
	Debounce time.Duration
	OnChange func(ctx context.Context)
	Logger   *slog.Logger
}

// Run blocks until ctx is done. ready, when non-nil, is closed once the
// watch is registered.
func (f File) Run(ctx context.Context, ready chan<- struct{}) error {
	if f.OnChange == nil {
		return errors.New("watch: change handler is nil")
	}
	debounce := f.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	logger := f.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	target, err := filepath.Abs(f.Path)
	if err != nil {
		return fmt.Errorf("resolve watched file: %w", err)
	}
	dir := filepath.Dir(target)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create watched directory: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	if ready != nil {
		close(ready)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target || !relevant(event) {
				continue
			}
			logger.Debug("watched file changed", "path", target, "op", event.Op.String())
			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				timer.Reset(debounce)
			}
			fire = timer.C
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("file watcher error", "path", target, "error", err)
		case <-fire:
			fire = nil
			f.OnChange(ctx)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Has(fsnotify.Write) ||
		event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Rename) ||
		event.Has(fsnotify.Remove)
}
