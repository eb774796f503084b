package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// AwaitFile blocks until name exists inside the scratch directory,
// returning its path. The engine writes its dump artifact into the
// scratch directory at a time of its own choosing, so the session
// watches for creation rather than polling.
func (s *Session) AwaitFile(ctx context.Context, name string) (string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return "", fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(s.Dir); err != nil {
		return "", fmt.Errorf("failed to watch scratch directory: %w", err)
	}

	want := s.Path(name)

	// The file may have been created before the watch was registered.
	if _, err := os.Stat(want); err == nil {
		return want, nil
	}

	for {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return "", fmt.Errorf("watcher closed before %s appeared", name)
			}
			if filepath.Clean(event.Name) == want && event.Op.Has(fsnotify.Create|fsnotify.Write) {
				return want, nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return "", fmt.Errorf("watcher closed before %s appeared", name)
			}
			return "", fmt.Errorf("watch failed: %w", err)
		}
	}
}
