package registry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
)

// Watch re-syncs the history cache whenever a transcript or task file
// changes, debounced so a burst of appends costs one sync. onSync, if not
// nil, is called after each successful sync. Watch blocks until ctx is done.
func (r *Registry) Watch(ctx context.Context, debounce time.Duration, onSync func(*history.Document)) error {
	dirs := append(append([]string{}, r.transcripts.Dirs()...), r.tasks.Dir())

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	log.Info().Strs("dirs", dirs).Dur("debounce", debounce).Msg("watching sessions")

	debounceTimer := time.NewTimer(0)
	<-debounceTimer.C // drain initial timer
	pending := false

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			pending = true
			debounceTimer.Reset(debounce)

		case <-debounceTimer.C:
			if !pending {
				continue
			}
			pending = false
			doc, err := r.Sync(ctx)
			if err != nil {
				log.Error().Err(err).Msg("sync after change failed")
				continue
			}
			if onSync != nil {
				onSync(doc)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Msg("fsnotify error")

		case <-ctx.Done():
			return nil
		}
	}
}

func relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	return strings.HasSuffix(event.Name, ".jsonl") || strings.HasSuffix(event.Name, ".json")
}
