package library

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/errors"
)

func writeFile(t *testing.T, root, rel string, size int) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o600))
}

func setupLibrary(t *testing.T) (*Library, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "b-book.mp3", 2048)
	writeFile(t, root, "series/a-book.m4b", 10*1024+600)
	writeFile(t, root, "notes.txt", 10)
	writeFile(t, root, ".hidden/secret.mp3", 10)
	writeFile(t, root, "partial.mp3.part", 10)
	return New(root, nil, Options{}), root
}

func TestList(t *testing.T) {
	lib, _ := setupLibrary(t)

	entries, err := lib.List(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "b-book.mp3", entries[0].Path)
	assert.Equal(t, "series/a-book.m4b", entries[1].Path)
	assert.Equal(t, "a-book.m4b", entries[1].Name)
	assert.Equal(t, "a-book.m4b", entries[1].Title, "title falls back to the file name")
	assert.Equal(t, int64(11), entries[1].SizeKB())
	assert.Equal(t, int64(2), entries[0].SizeKB())
}

func TestList_Disabled(t *testing.T) {
	lib := New("", nil, Options{})

	entries, err := lib.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.False(t, lib.Enabled())
}

func TestResolve(t *testing.T) {
	lib, root := setupLibrary(t)
	ctx := context.Background()

	e, err := lib.Resolve(ctx, "series/a-book.m4b")
	require.NoError(t, err)
	assert.Equal(t, "a-book.m4b", e.Name)

	src := e.Source(root)
	assert.Equal(t, filepath.Join(root, "series", "a-book.m4b"), src.Path)
	assert.Equal(t, "a-book.m4b", src.Name)
	assert.Equal(t, int64(10*1024+600), src.Size)
}

func TestResolve_Rejections(t *testing.T) {
	lib, _ := setupLibrary(t)

	for _, rel := range []string{
		"../etc/passwd.mp3",
		"/abs/path.mp3",
		"notes.txt",
		".hidden/secret.mp3",
		"missing.mp3",
		"series",
		"",
	} {
		t.Run(rel, func(t *testing.T) {
			_, err := lib.Resolve(context.Background(), rel)
			assert.True(t, errors.Is(err, errors.ErrNotFound), "got %v", err)
		})
	}
}

func TestDescribe_CacheInvalidatedOnChange(t *testing.T) {
	lib, root := setupLibrary(t)
	ctx := context.Background()

	e, err := lib.Resolve(ctx, "b-book.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(2048), e.Size)

	writeFile(t, root, "b-book.mp3", 4096)
	future := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(filepath.Join(root, "b-book.mp3"), future, future))

	e, err = lib.Resolve(ctx, "b-book.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(4096), e.Size)
}

func TestOptions_ShouldIgnore(t *testing.T) {
	opts := Options{}
	opts.setDefaults()

	assert.True(t, opts.shouldIgnore(".DS_Store"))
	assert.True(t, opts.shouldIgnore("dir/.cache/file.mp3"))
	assert.True(t, opts.shouldIgnore("dl.tmp"))
	assert.False(t, opts.shouldIgnore("books/one.mp3"))

	explicit := Options{IgnorePatterns: []string{}}
	explicit.setDefaults()
	assert.False(t, explicit.shouldIgnore(".hidden.mp3"), "explicit empty patterns keep hidden files")
}

func TestWatch_ReportsNewFile(t *testing.T) {
	root := t.TempDir()
	lib := New(root, nil, Options{SettleDelay: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var changes atomic.Int32
	done := make(chan error, 1)
	go func() { done <- lib.Watch(ctx, func() { changes.Add(1) }) }()

	// Give the watcher time to register.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, root, "new.mp3", 100)

	assert.Eventually(t, func() bool { return changes.Load() >= 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watch did not stop")
	}
}
