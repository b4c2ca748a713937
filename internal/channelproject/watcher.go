package channelproject

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceInterval is the delay after an fsnotify event before reloading, so
// a burst of events from an atomic write settles into a single reload.
const debounceInterval = 100 * time.Millisecond

// Watch reloads the store whenever its mapping file changes on disk. It
// blocks until ctx is cancelled; callers run it in a goroutine. A store with
// no mapping file has nothing to watch and returns immediately.
func (s *Store) Watch(ctx context.Context) error {
	if s.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the parent directory, not the file itself. Editors and config
	// tools replace files via write-then-rename, which changes the inode;
	// watching the directory catches the rename.
	watchDir := filepath.Dir(s.path)
	fileName := filepath.Base(s.path)
	if err := watcher.Add(watchDir); err != nil {
		return err
	}
	slog.Info("watching channel mapping file", "path", s.path)

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceInterval, func() {
				if err := s.Reload(); err != nil {
					slog.Error("failed to reload channel mapping, keeping previous table", "path", s.path, "error", err)
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("channel mapping watcher error", "error", err)

		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
