package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/kv"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/store"
)

func seededStore(t *testing.T) *store.ProfileStore {
	t.Helper()
	profiles := store.NewProfileStore(kv.NewMemory(), logger.Discard().Logger)
	updated := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, profiles.SaveAll(context.Background(), domain.ProfileCollection{
		"alice": {
			PIN:          "1234",
			PlaybackRate: "1.5",
			LastFileName: "book.mp3",
			Progress: map[string]domain.ProgressEntry{
				"book.mp3":  {Position: 120, Duration: 3600, UpdatedAt: updated},
				"other.mp3": {Position: 5, UpdatedAt: updated.Add(-time.Hour)},
			},
		},
		"bob": domain.NewProfileRecord(""),
	}))
	require.NoError(t, profiles.SetLastUser(context.Background(), "alice"))
	return profiles
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	cmd.SetContext(context.Background())
	err := cmd.Execute()
	return out.String(), err
}

func TestList(t *testing.T) {
	profiles := seededStore(t)

	out, err := run(t, listCmd(func() *store.ProfileStore { return profiles }))
	require.NoError(t, err)

	assert.Contains(t, out, "alice")
	assert.Contains(t, out, "bob")
	assert.Contains(t, out, "book.mp3")
	assert.Contains(t, out, "2024-03-01 12:00:00")
	assert.Less(t, bytes.Index([]byte(out), []byte("alice")), bytes.Index([]byte(out), []byte("bob")))
}

func TestShow(t *testing.T) {
	profiles := seededStore(t)
	get := func() *store.ProfileStore { return profiles }

	out, err := run(t, showCmd(get), "alice")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile alice (last file: book.mp3)")
	assert.Contains(t, out, "2:00")
	assert.Contains(t, out, "60:00")
	assert.Contains(t, out, "unknown")

	_, err = run(t, showCmd(get), "carol")
	assert.ErrorContains(t, err, `no profile named "carol"`)
}

func TestExportImport(t *testing.T) {
	src := seededStore(t)
	path := filepath.Join(t.TempDir(), "profiles.json")

	_, err := run(t, exportCmd(func() *store.ProfileStore { return src }), "--out", path)
	require.NoError(t, err)

	dst := store.NewProfileStore(kv.NewMemory(), logger.Discard().Logger)
	out, err := run(t, importCmd(func() *store.ProfileStore { return dst }), path)
	require.NoError(t, err)
	assert.Equal(t, "Imported 2 profiles.\n", out)

	want, err := src.Load(context.Background())
	require.NoError(t, err)
	got, err := dst.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestImport_RejectsMalformed(t *testing.T) {
	profiles := seededStore(t)
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := run(t, importCmd(func() *store.ProfileStore { return profiles }), path)
	assert.Error(t, err)

	rec, ok, err := profiles.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1234", rec.PIN)
}

func TestLastUpdated(t *testing.T) {
	assert.True(t, lastUpdated(domain.NewProfileRecord("")).IsZero())
	assert.Equal(t, "-", formatUpdated(time.Time{}))
}
