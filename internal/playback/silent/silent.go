// Package silent implements a playback.Facade that keeps time without producing sound.
// It is used on hosts without an audio device and for end-to-end runs of the API.
package silent

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/playback"
)

// Player advances a virtual playhead at the playback rate while playing.
type Player struct {
	clock    clock.Clock
	interval time.Duration

	mu        sync.Mutex
	listener  playback.Listener
	src       playback.Source
	loaded    bool
	paused    bool
	base      float64   // position when the current play span started
	startedAt time.Time // zero while paused
	duration  float64
	rate      float64
	volume    float64
	stopPoll  func()
}

var _ playback.Facade = (*Player)(nil)

// New creates a silent player that raises timeupdate every interval while playing.
func New(c clock.Clock, interval time.Duration) *Player {
	return &Player{
		clock:    c,
		interval: interval,
		paused:   true,
		duration: math.NaN(),
		rate:     1,
		volume:   1,
	}
}

// Load implements playback.Facade.
func (p *Player) Load(_ context.Context, src playback.Source) error {
	p.mu.Lock()
	p.stopPollLocked()
	p.src = src
	p.loaded = true
	p.paused = true
	p.base = 0
	p.startedAt = time.Time{}
	p.duration = math.NaN()
	if src.Duration > 0 {
		p.duration = src.Duration.Seconds()
	}
	known := !math.IsNaN(p.duration)
	p.mu.Unlock()

	if known {
		p.emit(playback.EventLoadedMetadata)
	}
	return nil
}

// Loaded implements playback.Facade.
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.loaded
}

// Source implements playback.Facade.
func (p *Player) Source() (playback.Source, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src, p.loaded
}

// Play implements playback.Facade. Playing from the end restarts at zero.
func (p *Player) Play() error {
	p.mu.Lock()
	if !p.loaded {
		p.mu.Unlock()
		return playback.ErrNoSource
	}
	if !p.paused {
		p.mu.Unlock()
		return nil
	}
	if !math.IsNaN(p.duration) && p.base >= p.duration {
		p.base = 0
	}
	p.paused = false
	p.startedAt = p.clock.Now()
	p.stopPoll = p.clock.Every(p.interval, p.poll)
	p.mu.Unlock()

	p.emit(playback.EventPlay)
	return nil
}

// Pause implements playback.Facade.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return
	}
	p.base = p.positionLocked()
	p.paused = true
	p.startedAt = time.Time{}
	p.stopPollLocked()
	p.mu.Unlock()

	p.emit(playback.EventPause)
}

// Paused implements playback.Facade.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

// CurrentTime implements playback.Facade.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positionLocked()
}

// SetCurrentTime implements playback.Facade.
func (p *Player) SetCurrentTime(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.base = playback.ClampPosition(seconds, p.duration)
	if !p.paused {
		p.startedAt = p.clock.Now()
	}
}

// Duration implements playback.Facade.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duration
}

// PlaybackRate implements playback.Facade.
func (p *Player) PlaybackRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetPlaybackRate implements playback.Facade.
func (p *Player) SetPlaybackRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.paused {
		p.base = p.positionLocked()
		p.startedAt = p.clock.Now()
	}
	p.rate = rate
}

// Volume implements playback.Facade.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// SetVolume implements playback.Facade.
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = playback.ClampVolume(level)
}

// SetListener implements playback.Facade.
func (p *Player) SetListener(l playback.Listener) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listener = l
}

// Close implements playback.Facade.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopPollLocked()
	p.paused = true
	return nil
}

func (p *Player) poll() {
	p.mu.Lock()
	if p.paused {
		p.mu.Unlock()
		return
	}
	pos := p.positionLocked()
	ended := !math.IsNaN(p.duration) && pos >= p.duration
	if ended {
		p.base = p.duration
		p.paused = true
		p.startedAt = time.Time{}
		p.stopPollLocked()
	}
	p.mu.Unlock()

	p.emit(playback.EventTimeUpdate)
	if ended {
		p.emit(playback.EventEnded)
	}
}

func (p *Player) positionLocked() float64 {
	if p.paused || p.startedAt.IsZero() {
		return p.base
	}
	elapsed := p.clock.Now().Sub(p.startedAt).Seconds() * p.rate
	return playback.ClampPosition(p.base+elapsed, p.duration)
}

func (p *Player) stopPollLocked() {
	if p.stopPoll != nil {
		p.stopPoll()
		p.stopPoll = nil
	}
}

func (p *Player) emit(t playback.EventType) {
	p.mu.Lock()
	l := p.listener
	ev := playback.Event{Type: t, CurrentTime: p.positionLocked(), Duration: p.duration}
	p.mu.Unlock()

	if l != nil {
		l(ev)
	}
}
