package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reports modifications of the file at path on the returned channel.
// It watches the file's directory rather than the file itself, so editors
// that replace the file on save (rename + create) are still observed.
// Bursts of events within debounce are collapsed into one notification.
//
// The watcher stops and the channel is closed when ctx is cancelled.
func Watch(ctx context.Context, path string, debounce time.Duration) (<-chan struct{}, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", path, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch %q: %w", filepath.Dir(abs), err)
	}

	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		defer watcher.Close()

		var timer *time.Timer
		var fire <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != abs {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
					fire = timer.C
				} else {
					timer.Reset(debounce)
				}

			case <-fire:
				timer = nil
				fire = nil
				select {
				case out <- struct{}{}:
				default:
				}

			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
				// Keep watching; transient errors are not fatal.
			}
		}
	}()

	return out, nil
}
