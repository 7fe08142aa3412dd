package catalog

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the bursts of write events editors produce when
// saving a file.
const watchDebounce = 250 * time.Millisecond

// Watch reloads the registry whenever its backing catalog file changes.
// It blocks until ctx is cancelled. Registries backed by the embedded
// default catalog have nothing to watch and return immediately.
//
// A reload failure keeps the previous snapshot readable; the error is only
// logged, matching the recoverable catalog_error contract.
func (r *Registry) Watch(ctx context.Context) error {
	if r.path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory, not the file: editors replace files by rename,
	// which drops a direct file watch.
	dir := filepath.Dir(r.path)
	if err := watcher.Add(dir); err != nil {
		return err
	}
	log.Printf("[Catalog] Watching %s for changes", r.path)

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(r.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
				timerC = timer.C
			} else {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("[Catalog] Watch error: %v", err)
		case <-timerC:
			timer = nil
			timerC = nil
			if err := r.Reload(); err != nil {
				log.Printf("[Catalog] Reload after change failed, keeping previous catalog: %v", err)
			}
		}
	}
}
