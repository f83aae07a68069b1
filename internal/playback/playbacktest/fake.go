// Package playbacktest provides a recording playback.Facade for tests.
package playbacktest

import (
	"context"
	"fmt"
	"math"
	"sync"

	"github.com/listenupapp/listenup-player/internal/playback"
)

// Fake records every control call and lets tests raise notifications by hand.
// Pause and Play raise their notifications synchronously, like a media element would.
type Fake struct {
	mu       sync.Mutex
	calls    []string
	listener playback.Listener

	src      playback.Source
	loaded   bool
	paused   bool
	current  float64
	duration float64
	rate     float64
	volume   float64

	// LoadErr, when set, is returned by the next Load.
	LoadErr error
}

var _ playback.Facade = (*Fake)(nil)

// New returns an empty, paused fake with unknown duration.
func New() *Fake {
	return &Fake{paused: true, duration: math.NaN(), rate: 1, volume: 1}
}

func (f *Fake) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

// Calls returns the recorded calls, e.g. "Load(book.mp3)", "SetCurrentTime(120)".
func (f *Fake) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Count returns how many recorded calls equal call.
func (f *Fake) Count(call string) int {
	n := 0
	for _, c := range f.Calls() {
		if c == call {
			n++
		}
	}
	return n
}

// Reset clears the call log.
func (f *Fake) Reset() {
	f.mu.Lock()
	f.calls = nil
	f.mu.Unlock()
}

// Load implements playback.Facade. Duration comes from src.Duration when set.
func (f *Fake) Load(_ context.Context, src playback.Source) error {
	f.mu.Lock()
	f.record("Load(%s)", src.Name)
	if err := f.LoadErr; err != nil {
		f.LoadErr = nil
		f.mu.Unlock()
		return err
	}
	f.src = src
	f.loaded = true
	f.paused = true
	f.current = 0
	f.duration = math.NaN()
	if src.Duration > 0 {
		f.duration = src.Duration.Seconds()
	}
	f.mu.Unlock()
	return nil
}

// Loaded implements playback.Facade.
func (f *Fake) Loaded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded
}

// Source implements playback.Facade.
func (f *Fake) Source() (playback.Source, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.src, f.loaded
}

// Play implements playback.Facade.
func (f *Fake) Play() error {
	f.mu.Lock()
	f.record("Play")
	if !f.loaded {
		f.mu.Unlock()
		return playback.ErrNoSource
	}
	wasPaused := f.paused
	f.paused = false
	f.mu.Unlock()

	if wasPaused {
		f.Emit(playback.EventPlay)
	}
	return nil
}

// Pause implements playback.Facade.
func (f *Fake) Pause() {
	f.mu.Lock()
	f.record("Pause")
	wasPlaying := !f.paused
	f.paused = true
	f.mu.Unlock()

	if wasPlaying {
		f.Emit(playback.EventPause)
	}
}

// Paused implements playback.Facade.
func (f *Fake) Paused() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paused
}

// CurrentTime implements playback.Facade.
func (f *Fake) CurrentTime() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// SetCurrentTime implements playback.Facade.
func (f *Fake) SetCurrentTime(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetCurrentTime(%v)", seconds)
	f.current = playback.ClampPosition(seconds, f.duration)
}

// Duration implements playback.Facade.
func (f *Fake) Duration() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration
}

// PlaybackRate implements playback.Facade.
func (f *Fake) PlaybackRate() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rate
}

// SetPlaybackRate implements playback.Facade.
func (f *Fake) SetPlaybackRate(rate float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetPlaybackRate(%v)", rate)
	f.rate = rate
}

// Volume implements playback.Facade.
func (f *Fake) Volume() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.volume
}

// SetVolume implements playback.Facade.
func (f *Fake) SetVolume(level float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("SetVolume(%v)", level)
	f.volume = playback.ClampVolume(level)
}

// SetListener implements playback.Facade.
func (f *Fake) SetListener(l playback.Listener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listener = l
}

// Close implements playback.Facade.
func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("Close")
	return nil
}

// SetDuration sets the duration without raising loadedmetadata.
func (f *Fake) SetDuration(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duration = seconds
}

// SetPosition moves the playhead without recording a call.
func (f *Fake) SetPosition(seconds float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = seconds
}

// Emit delivers a notification carrying the current position.
func (f *Fake) Emit(t playback.EventType) {
	f.mu.Lock()
	l := f.listener
	ev := playback.Event{Type: t, CurrentTime: f.current, Duration: f.duration}
	if t == playback.EventEnded {
		f.paused = true
	}
	f.mu.Unlock()

	if l != nil {
		l(ev)
	}
}

// TimeUpdate moves the playhead to seconds and raises timeupdate.
func (f *Fake) TimeUpdate(seconds float64) {
	f.SetPosition(seconds)
	f.Emit(playback.EventTimeUpdate)
}
