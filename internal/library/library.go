// Package library lists and describes the audio files in the configured media directory.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/samber/lo"
	"github.com/simonhull/audiometa"

	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/playback"
)

// Entry describes one audio file.
type Entry struct {
	Name     string        // base name, the key progress is stored under
	Path     string        // slash-separated path relative to the library root
	Size     int64         // bytes
	ModTime  time.Time
	Title    string        // embedded title, or Name when the file has none
	Series   string
	Format   string        // container format reported by the probe, empty if unknown
	Duration time.Duration // 0 when unknown
}

// SizeKB is the size rounded to whole kibibytes.
func (e Entry) SizeKB() int64 {
	return (e.Size + 512) / 1024
}

// Source converts the entry into something a playback.Facade can load.
func (e Entry) Source(root string) playback.Source {
	return playback.Source{
		Name:     e.Name,
		Path:     filepath.Join(root, filepath.FromSlash(e.Path)),
		Size:     e.Size,
		Duration: e.Duration,
	}
}

type cached struct {
	modTime time.Time
	size    int64
	entry   Entry
}

// Library reads a media directory. Probe results are cached by path, size and mtime.
type Library struct {
	root   string
	opts   Options
	logger *slog.Logger

	mu    sync.Mutex
	cache map[string]cached
}

// New creates a Library rooted at root. An empty root yields an empty library.
func New(root string, logger *slog.Logger, opts Options) *Library {
	opts.setDefaults()
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Library{
		root:   root,
		opts:   opts,
		logger: logger,
		cache:  make(map[string]cached),
	}
}

// Root returns the library directory.
func (l *Library) Root() string {
	return l.root
}

// Enabled reports whether a directory is configured.
func (l *Library) Enabled() bool {
	return l.root != ""
}

// List walks the library and returns its audio files sorted by path.
func (l *Library) List(ctx context.Context) ([]Entry, error) {
	if !l.Enabled() {
		return []Entry{}, nil
	}

	var paths []string
	err := filepath.WalkDir(l.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			l.logger.Warn("failed to access path", "path", p, "error", err)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		rel, relErr := filepath.Rel(l.root, p)
		if relErr != nil || rel == "." {
			return nil
		}
		if l.opts.shouldIgnore(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && l.opts.isAudio(p) {
			paths = append(paths, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeUnavailable, "failed to read library %s", l.root)
	}

	entries := make([]Entry, 0, len(paths))
	for _, rel := range paths {
		e, err := l.describe(ctx, rel)
		if err != nil {
			l.logger.Warn("skipping unreadable file", "path", rel, "error", err)
			continue
		}
		entries = append(entries, e)
	}

	l.prune(paths)
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}

// Resolve looks up rel (a path relative to the root) and returns its entry.
// Paths that escape the root, hidden files and non-audio files are reported as not found.
func (l *Library) Resolve(ctx context.Context, rel string) (Entry, error) {
	if !l.Enabled() {
		return Entry{}, errors.NotFound("no library directory is configured")
	}

	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(strings.TrimSpace(rel))))
	if clean == "." || clean == "" || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return Entry{}, errors.NotFoundf("file %q is not in the library", rel)
	}
	if l.opts.shouldIgnore(clean) || !l.opts.isAudio(clean) {
		return Entry{}, errors.NotFoundf("file %q is not in the library", rel)
	}

	e, err := l.describe(ctx, clean)
	if err != nil {
		if os.IsNotExist(err) {
			return Entry{}, errors.NotFoundf("file %q is not in the library", rel)
		}
		return Entry{}, errors.Wrapf(err, errors.CodeUnavailable, "failed to read %s", rel)
	}
	return e, nil
}

// describe stats rel and probes it, reusing the cached probe when the file is unchanged.
func (l *Library) describe(ctx context.Context, rel string) (Entry, error) {
	abs := filepath.Join(l.root, filepath.FromSlash(rel))
	info, err := os.Stat(abs)
	if err != nil {
		return Entry{}, err
	}
	if info.IsDir() {
		return Entry{}, fmt.Errorf("%s is a directory: %w", rel, os.ErrNotExist)
	}

	l.mu.Lock()
	c, ok := l.cache[rel]
	l.mu.Unlock()
	if ok && c.size == info.Size() && c.modTime.Equal(info.ModTime()) {
		return c.entry, nil
	}

	e := Entry{
		Name:    filepath.Base(abs),
		Path:    rel,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}
	l.probe(ctx, abs, &e)
	if e.Title == "" {
		e.Title = e.Name
	}

	l.mu.Lock()
	l.cache[rel] = cached{modTime: info.ModTime(), size: info.Size(), entry: e}
	l.mu.Unlock()
	return e, nil
}

// probe fills tag and duration fields. Files the probe cannot read keep their defaults.
func (l *Library) probe(ctx context.Context, abs string, e *Entry) {
	file, err := audiometa.OpenContext(ctx, abs)
	if err != nil {
		l.logger.Debug("metadata probe failed", "path", abs, "error", err)
		return
	}
	defer file.Close() //nolint:errcheck // read-only handle

	e.Title = strings.TrimSpace(file.Tags.Title)
	e.Series = strings.TrimSpace(file.Tags.Series)
	e.Format = file.Format.String()
	e.Duration = file.Audio.Duration
}

// prune drops cache entries for files no longer present.
func (l *Library) prune(present []string) {
	keep := lo.SliceToMap(present, func(p string) (string, struct{}) { return p, struct{}{} })

	l.mu.Lock()
	defer l.mu.Unlock()
	for rel := range l.cache {
		if _, ok := keep[rel]; !ok {
			delete(l.cache, rel)
		}
	}
}
