package services

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"site-cms/pkg/logger"
	"site-cms/pkg/utils"
)

// WatchDebounce is how long the content directory must stay quiet before it
// is imported again.
const WatchDebounce = 500 * time.Millisecond

// Watcher re-seeds the content directory whenever a file in it changes.
type Watcher struct {
	dir       string
	seeder    *Seeder
	log       logger.Logger
	watcher   *fsnotify.Watcher
	debouncer *utils.Debouncer
}

func NewWatcher(dir string, seeder *Seeder, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	absDir, err := filepath.Abs(dir)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to resolve content path: %w", err)
	}
	w := &Watcher{
		dir:       absDir,
		seeder:    seeder,
		log:       log.With(logger.String("dir", absDir)),
		watcher:   fw,
		debouncer: utils.NewDebouncer(WatchDebounce),
	}
	if err := w.addTree(absDir); err != nil {
		fw.Close()
		return nil, err
	}
	return w, nil
}

// fsnotify is not recursive, so every directory is watched on its own.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run blocks until ctx is cancelled, reseeding after each burst of changes.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.debouncer.Stop()
	defer w.watcher.Close()

	w.log.Info("watching content directory")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			if event.Op&fsnotify.Create == fsnotify.Create {
				// New subdirectories need their own watch.
				_ = w.addTree(event.Name)
			}
			w.log.Debug("content changed", logger.String("file", event.Name), logger.String("op", event.Op.String()))
			w.debouncer.Trigger(func() { w.reseed(ctx) })
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("content watcher error", logger.Error(err))
		}
	}
}

func (w *Watcher) reseed(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := w.seeder.Seed(ctx, w.dir); err != nil {
		w.log.Error("reseed failed", logger.Error(err))
	}
}
