// Package playback defines the media primitive the player drives.
//
// A Facade plays one source at a time. It reports progress through
// notifications delivered to a single Listener. Listeners are always called
// without any facade lock held, so a listener may call back into the facade.
package playback

import (
	"context"
	"errors"
	"math"
	"time"
)

var (
	// ErrNoSource is returned by Play when nothing is loaded.
	ErrNoSource = errors.New("playback: no source loaded")
	// ErrAudioUnavailable is returned when the build or host has no audio output.
	ErrAudioUnavailable = errors.New("playback: audio output unavailable")
	// ErrUnsupportedFormat is returned by Load for files the facade cannot decode.
	ErrUnsupportedFormat = errors.New("playback: unsupported format")
)

// EventType names a facade notification.
type EventType string

// Notifications, named after their HTML media element counterparts.
const (
	EventLoadedMetadata EventType = "loadedmetadata"
	EventTimeUpdate     EventType = "timeupdate"
	EventPlay           EventType = "play"
	EventPause          EventType = "pause"
	EventEnded          EventType = "ended"
)

// Event is one notification with the position at the time it was raised.
type Event struct {
	Type        EventType
	CurrentTime float64
	Duration    float64 // NaN when unknown
}

// Listener receives facade notifications.
type Listener func(Event)

// Source identifies the file to play.
type Source struct {
	Name     string        // display and progress key
	Path     string        // absolute file path
	Size     int64         // bytes
	Duration time.Duration // probed length, 0 when unknown
}

// Facade is the host media primitive.
type Facade interface {
	// Load replaces the current source. The facade is paused afterwards and
	// raises loadedmetadata once the duration is known.
	Load(ctx context.Context, src Source) error
	Loaded() bool
	Source() (Source, bool)

	Play() error
	Pause()
	Paused() bool

	// CurrentTime is the position in seconds.
	CurrentTime() float64
	// SetCurrentTime seeks, clamped to [0, Duration].
	SetCurrentTime(seconds float64)
	// Duration is the length in seconds, NaN when unknown.
	Duration() float64

	PlaybackRate() float64
	SetPlaybackRate(rate float64)
	Volume() float64
	// SetVolume takes a level in [0, 1].
	SetVolume(level float64)

	SetListener(l Listener)
	Close() error
}

// Unknown is the duration reported before metadata is available.
var Unknown = math.NaN()

// ClampVolume bounds level to [0, 1]. Non-finite input becomes 1.
func ClampVolume(level float64) float64 {
	switch {
	case math.IsNaN(level) || math.IsInf(level, 0):
		return 1
	case level < 0:
		return 0
	case level > 1:
		return 1
	default:
		return level
	}
}

// ClampPosition bounds seconds to [0, duration]; an unknown duration only floors at 0.
func ClampPosition(seconds, duration float64) float64 {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) || seconds < 0 {
		return 0
	}
	if !math.IsNaN(duration) && !math.IsInf(duration, 0) && seconds > duration {
		return duration
	}
	return seconds
}
