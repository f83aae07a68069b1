//go:build (linux && cgo) || windows || darwin

// Package local plays audio files through the host sound card with beep.
package local

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/playback"
)

// AudioAvailable indicates whether audio playback is supported in this build.
const AudioAvailable = true

const speakerRate = beep.SampleRate(44100)

var (
	speakerOnce sync.Once
	speakerErr  error
)

func initSpeaker() error {
	speakerOnce.Do(func() {
		speakerErr = speaker.Init(speakerRate, speakerRate.N(time.Second/10))
	})
	if speakerErr != nil {
		return fmt.Errorf("%w: %v", playback.ErrAudioUnavailable, speakerErr)
	}
	return nil
}

// Player is a playback.Facade over the beep speaker.
type Player struct {
	clock    clock.Clock
	interval time.Duration
	logger   *slog.Logger

	mu        sync.Mutex
	listener  playback.Listener
	src       playback.Source
	streamer  beep.StreamSeekCloser
	format    beep.Format
	resampler *beep.Resampler
	volume    *effects.Volume
	ctrl      *beep.Ctrl
	queued    bool // pipeline is on the speaker and has not ended
	rate      float64
	level     float64
	stopPoll  func()
	gen       int // bumped per pipeline so stale end callbacks are ignored
}

var _ playback.Facade = (*Player)(nil)

// New creates a player. The speaker is opened on first Load.
func New(c clock.Clock, interval time.Duration, logger *slog.Logger) (*Player, error) {
	if err := initSpeaker(); err != nil {
		return nil, err
	}
	return &Player{
		clock:    c,
		interval: interval,
		logger:   logger,
		rate:     1,
		level:    1,
	}, nil
}

func decode(path string) (beep.StreamSeekCloser, beep.Format, error) {
	f, err := os.Open(path) //#nosec G304 -- path comes from the configured library or the caller
	if err != nil {
		return nil, beep.Format{}, err
	}

	var (
		s      beep.StreamSeekCloser
		format beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, format, err = mp3.Decode(f)
	case ".wav":
		s, format, err = wav.Decode(f)
	default:
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("%w: %s", playback.ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, err
	}
	return s, format, nil
}

// Load implements playback.Facade.
func (p *Player) Load(ctx context.Context, src playback.Source) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	streamer, format, err := decode(src.Path)
	if err != nil {
		return fmt.Errorf("load %s: %w", src.Name, err)
	}

	p.mu.Lock()
	p.stopLocked()
	p.src = src
	p.streamer = streamer
	p.format = format
	p.mu.Unlock()

	p.logger.Debug("source loaded", "file", src.Name, "sample_rate", int(format.SampleRate))
	p.emit(playback.EventLoadedMetadata)
	return nil
}

// Loaded implements playback.Facade.
func (p *Player) Loaded() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streamer != nil
}

// Source implements playback.Facade.
func (p *Player) Source() (playback.Source, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.src, p.streamer != nil
}

// queueLocked builds decoder -> resampler -> volume -> ctrl and hands it to the speaker.
func (p *Player) queueLocked() {
	p.resampler = beep.Resample(4, p.format.SampleRate, speakerRate, p.streamer)
	p.resampler.SetRatio(p.baseRatio() * p.rate)
	p.volume = &effects.Volume{Streamer: p.resampler, Base: 2}
	p.applyVolumeLocked()
	p.ctrl = &beep.Ctrl{Streamer: p.volume, Paused: true}

	p.gen++
	id := p.gen
	speaker.Play(beep.Seq(p.ctrl, beep.Callback(func() {
		// Runs on the speaker goroutine with the speaker locked.
		go p.handleEnded(id)
	})))
	p.queued = true
}

func (p *Player) baseRatio() float64 {
	return float64(p.format.SampleRate) / float64(speakerRate)
}

func (p *Player) applyVolumeLocked() {
	if p.volume == nil {
		return
	}
	p.volume.Silent = p.level == 0
	if p.level > 0 {
		p.volume.Volume = math.Log2(p.level)
	}
}

// Play implements playback.Facade. Playing after the end restarts from zero.
func (p *Player) Play() error {
	p.mu.Lock()
	if p.streamer == nil {
		p.mu.Unlock()
		return playback.ErrNoSource
	}
	if p.ctrl != nil && p.queued && !p.pausedLocked() {
		p.mu.Unlock()
		return nil
	}

	speaker.Lock()
	if p.streamer.Position() >= p.streamer.Len() {
		_ = p.streamer.Seek(0)
	}
	speaker.Unlock()

	if !p.queued {
		p.queueLocked()
	}
	speaker.Lock()
	p.ctrl.Paused = false
	speaker.Unlock()

	p.stopPoll = p.clock.Every(p.interval, p.poll)
	p.mu.Unlock()

	p.emit(playback.EventPlay)
	return nil
}

// Pause implements playback.Facade.
func (p *Player) Pause() {
	p.mu.Lock()
	if p.ctrl == nil || p.pausedLocked() {
		p.mu.Unlock()
		return
	}
	speaker.Lock()
	p.ctrl.Paused = true
	speaker.Unlock()
	p.stopPollLocked()
	p.mu.Unlock()

	p.emit(playback.EventPause)
}

// Paused implements playback.Facade.
func (p *Player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pausedLocked()
}

func (p *Player) pausedLocked() bool {
	if p.ctrl == nil || !p.queued {
		return true
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.ctrl.Paused
}

// CurrentTime implements playback.Facade.
func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.currentLocked()
}

func (p *Player) currentLocked() float64 {
	if p.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := p.streamer.Position()
	speaker.Unlock()
	return p.format.SampleRate.D(pos).Seconds()
}

// SetCurrentTime implements playback.Facade.
func (p *Player) SetCurrentTime(seconds float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.streamer == nil {
		return
	}

	seconds = playback.ClampPosition(seconds, p.durationLocked())
	samples := p.format.SampleRate.N(time.Duration(seconds * float64(time.Second)))

	speaker.Lock()
	defer speaker.Unlock()
	if samples > p.streamer.Len() {
		samples = p.streamer.Len()
	}
	if err := p.streamer.Seek(samples); err != nil {
		p.logger.Warn("seek failed", "file", p.src.Name, "seconds", seconds, "error", err)
	}
}

// Duration implements playback.Facade.
func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.durationLocked()
}

func (p *Player) durationLocked() float64 {
	if p.streamer == nil {
		return playback.Unknown
	}
	n := p.streamer.Len()
	if n <= 0 {
		return playback.Unknown
	}
	return p.format.SampleRate.D(n).Seconds()
}

// PlaybackRate implements playback.Facade.
func (p *Player) PlaybackRate() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rate
}

// SetPlaybackRate implements playback.Facade. Pitch follows the rate.
func (p *Player) SetPlaybackRate(rate float64) {
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rate = rate
	if p.resampler != nil {
		speaker.Lock()
		p.resampler.SetRatio(p.baseRatio() * rate)
		speaker.Unlock()
	}
}

// Volume implements playback.Facade.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// SetVolume implements playback.Facade.
func (p *Player) SetVolume(level float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.level = playback.ClampVolume(level)
	speaker.Lock()
	p.applyVolumeLocked()
	speaker.Unlock()
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
	p.stopLocked()
	return nil
}

// stopLocked tears down the current pipeline (must be called with lock held).
func (p *Player) stopLocked() {
	p.stopPollLocked()
	if p.queued {
		speaker.Clear()
	}
	if p.streamer != nil {
		p.streamer.Close()
	}
	p.streamer = nil
	p.resampler = nil
	p.volume = nil
	p.ctrl = nil
	p.queued = false
	p.gen++
}

func (p *Player) stopPollLocked() {
	if p.stopPoll != nil {
		p.stopPoll()
		p.stopPoll = nil
	}
}

func (p *Player) poll() {
	p.mu.Lock()
	playing := p.ctrl != nil && !p.pausedLocked()
	p.mu.Unlock()
	if playing {
		p.emit(playback.EventTimeUpdate)
	}
}

func (p *Player) handleEnded(id int) {
	p.mu.Lock()
	if id != p.gen || !p.queued {
		p.mu.Unlock()
		return
	}
	p.queued = false
	p.stopPollLocked()
	p.mu.Unlock()

	p.emit(playback.EventTimeUpdate)
	p.emit(playback.EventEnded)
}

func (p *Player) emit(t playback.EventType) {
	p.mu.Lock()
	l := p.listener
	ev := playback.Event{Type: t, CurrentTime: p.currentLocked(), Duration: p.durationLocked()}
	p.mu.Unlock()

	if l != nil {
		l(ev)
	}
}
