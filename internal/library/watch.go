package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch reports changes to the library directory tree until ctx is done.
// Bursts of events are coalesced: onChange runs once the tree has been quiet
// for the settle delay. New subdirectories are watched as they appear.
func (l *Library) Watch(ctx context.Context, onChange func()) error {
	if !l.Enabled() {
		<-ctx.Done()
		return nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer w.Close()

	if err := l.addTree(w, l.root); err != nil {
		return err
	}
	l.logger.Info("watching library", "path", l.root)

	var (
		settle  *time.Timer
		settled <-chan time.Time
	)
	defer func() {
		if settle != nil {
			settle.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !l.relevant(ev) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := l.addTree(w, ev.Name); err != nil {
						l.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
					}
				}
			}
			if settle == nil {
				settle = time.NewTimer(l.opts.SettleDelay)
			} else {
				settle.Reset(l.opts.SettleDelay)
			}
			settled = settle.C

		case <-settled:
			settled = nil
			l.logger.Debug("library changed")
			onChange()

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("library watcher error", "error", err)
		}
	}
}

// relevant filters out chmod-only events and ignored paths.
func (l *Library) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	rel, err := filepath.Rel(l.root, ev.Name)
	if err != nil {
		return false
	}
	return !l.opts.shouldIgnore(rel)
}

// addTree watches dir and every non-ignored directory below it.
func (l *Library) addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == dir {
				return fmt.Errorf("failed to stat path: %w", err)
			}
			l.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(l.root, p); relErr == nil && rel != "." && l.opts.shouldIgnore(rel) {
			return filepath.SkipDir
		}
		if err := w.Add(p); err != nil {
			l.logger.Error("failed to add watch", "path", p, "error", err)
		}
		return nil
	})
}
