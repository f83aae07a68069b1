//go:build (linux && cgo) || windows || darwin

package local

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/playback"
)

func TestDecode_UnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("not audio"), 0o600))

	_, _, err := decode(path)
	assert.ErrorIs(t, err, playback.ErrUnsupportedFormat)
}

func TestDecode_MissingFile(t *testing.T) {
	_, _, err := decode(filepath.Join(t.TempDir(), "gone.mp3"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestDecode_GarbageMP3(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.mp3")
	require.NoError(t, os.WriteFile(path, []byte{0x00, 0x01, 0x02}, 0o600))

	_, _, err := decode(path)
	assert.Error(t, err)
}
