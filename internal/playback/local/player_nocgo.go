//go:build !((linux && cgo) || windows || darwin)

// Package local plays audio files through the host sound card with beep.
package local

import (
	"log/slog"
	"time"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/playback"
)

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires cgo for the native sound libraries.
const AudioAvailable = false

// Player is never constructed in builds without cgo.
type Player struct {
	playback.Facade
}

// New always fails with playback.ErrAudioUnavailable.
func New(_ clock.Clock, _ time.Duration, _ *slog.Logger) (*Player, error) {
	return nil, playback.ErrAudioUnavailable
}
