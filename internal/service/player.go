package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/metrics"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/session"
	"github.com/listenupapp/listenup-player/internal/sleeptimer"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
	"github.com/listenupapp/listenup-player/internal/timefmt"
	"github.com/listenupapp/listenup-player/internal/validation"
)

// Skip distances in seconds.
const (
	SkipBackSeconds    = 15
	SkipForwardSeconds = 30
)

// Play button labels.
const (
	LabelPlay  = "▶ Play"
	LabelPause = "⏸ Pause"
)

// DefaultRateChoices are the playback rates offered when none are configured.
var DefaultRateChoices = []float64{0.75, 1, 1.25, 1.5, 1.75, 2}

// PlayerConfig configures a Player.
type PlayerConfig struct {
	RateChoices    []float64
	SleepDurations []int
}

// PlayerState is the player view a UI renders.
type PlayerState struct {
	FileName        string  `json:"file_name,omitempty"`
	Title           string  `json:"title,omitempty"`
	Meta            string  `json:"meta,omitempty"`
	CurrentTime     float64 `json:"current_time"`
	Duration        float64 `json:"duration"`
	CurrentLabel    string  `json:"current_label"`
	DurationLabel   string  `json:"duration_label"`
	ProgressPercent float64 `json:"progress_percent"`
	Paused          bool    `json:"paused"`
	PlayLabel       string  `json:"play_label"`
	PlaybackRate    float64 `json:"playback_rate"`
	Volume          float64 `json:"volume"`
}

// SleepStatus is the sleep timer view.
type SleepStatus struct {
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
	Selection string `json:"selection"`
	CanCancel bool   `json:"can_cancel"`
	Options   []int  `json:"options"`
}

// LoadResult is returned after a file is loaded.
type LoadResult struct {
	State PlayerState  `json:"state"`
	Offer *ResumeOffer `json:"resume_offer,omitempty"`
}

// Player exposes the listener's controls over a playback.Facade and routes the
// facade's notifications to the resume tracker and connected UIs.
type Player struct {
	facade    playback.Facade
	library   *library.Library
	session   *session.State
	profiles  *store.ProfileStore
	resume    *ResumeTracker
	sleep     *sleeptimer.Timer
	validator *validation.Validator
	events    EventSink
	logger    *slog.Logger
	rates     []float64

	mu      sync.Mutex
	current *library.Entry
}

// NewPlayer creates a Player and subscribes it to the facade's notifications.
func NewPlayer(
	facade playback.Facade,
	lib *library.Library,
	state *session.State,
	profiles *store.ProfileStore,
	resume *ResumeTracker,
	clk clock.Clock,
	cfg PlayerConfig,
	events EventSink,
	logger *slog.Logger,
) *Player {
	if events == nil {
		events = NoopSink{}
	}
	rates := slices.Clone(cfg.RateChoices)
	if len(rates) == 0 {
		rates = slices.Clone(DefaultRateChoices)
	}
	slices.Sort(rates)

	p := &Player{
		facade:    facade,
		library:   lib,
		session:   state,
		profiles:  profiles,
		resume:    resume,
		validator: validation.New(),
		events:    events,
		logger:    logger,
		rates:     rates,
	}
	p.sleep = sleeptimer.New(clk, cfg.SleepDurations, p.sleepFired)
	p.sleep.SetListener(func(st sleeptimer.Status) {
		p.events.Emit(sse.NewSleepStatusEvent(p.sleepData(st)))
	})
	facade.SetListener(p.handleEvent)
	return p
}

// Library lists the files the listener can choose from.
func (p *Player) Library(ctx context.Context) ([]library.Entry, error) {
	return p.library.List(ctx)
}

// Load pauses whatever is playing, loads the file at path (relative to the
// library root) and offers its saved position when the profile has one.
func (p *Player) Load(ctx context.Context, path string) (*LoadResult, error) {
	entry, err := p.library.Resolve(ctx, path)
	if err != nil {
		return nil, err
	}

	// Pausing first lets the pause notification save progress for the outgoing file.
	if p.facade.Loaded() && !p.facade.Paused() {
		p.facade.Pause()
	}

	if err := p.facade.Load(ctx, entry.Source(p.library.Root())); err != nil {
		if errors.Is(err, playback.ErrUnsupportedFormat) {
			return nil, errors.Validationf("%s cannot be played: unsupported format", entry.Name).WithCause(err)
		}
		return nil, errors.Wrapf(err, errors.CodeInternal, "failed to load %s", entry.Name)
	}

	p.mu.Lock()
	p.current = &entry
	p.mu.Unlock()

	offer, err := p.resume.OnFileLoaded(ctx, entry.Name)
	if err != nil {
		p.logger.Warn("failed to look up saved position", "file", entry.Name, "error", err)
	}

	p.logger.Info("file loaded", "file", entry.Name, "size_kb", entry.SizeKB())
	state := p.State()
	p.events.Emit(sse.NewPlayerStateEvent(sse.PlayerStateData(state)))
	return &LoadResult{State: state, Offer: offer}, nil
}

// Toggle plays when paused and pauses when playing. Without a loaded file it does nothing.
func (p *Player) Toggle(_ context.Context) (PlayerState, error) {
	if !p.facade.Loaded() {
		return p.State(), nil
	}
	if p.facade.Paused() {
		if err := p.facade.Play(); err != nil {
			return PlayerState{}, errors.Wrap(err, errors.CodeInternal, "failed to start playback")
		}
	} else {
		p.facade.Pause()
	}
	return p.State(), nil
}

// Play starts playback. Without a loaded file it does nothing.
func (p *Player) Play(_ context.Context) (PlayerState, error) {
	if !p.facade.Loaded() {
		return p.State(), nil
	}
	if err := p.facade.Play(); err != nil {
		return PlayerState{}, errors.Wrap(err, errors.CodeInternal, "failed to start playback")
	}
	return p.State(), nil
}

// Pause pauses playback.
func (p *Player) Pause(_ context.Context) PlayerState {
	if p.facade.Loaded() {
		p.facade.Pause()
	}
	return p.State()
}

// SeekPercent moves the playhead to percent of the duration. It does nothing
// while the duration is unknown.
func (p *Player) SeekPercent(_ context.Context, percent float64) (PlayerState, error) {
	if err := p.validator.Var("percent", percent, "gte=0,lte=100"); err != nil {
		return PlayerState{}, err
	}
	duration := p.facade.Duration()
	if !timefmt.Finite(duration) || duration <= 0 {
		return p.State(), nil
	}
	p.facade.SetCurrentTime(percent / 100 * duration)
	return p.emitState(), nil
}

// SkipBack moves back 15 seconds, stopping at the start.
func (p *Player) SkipBack(_ context.Context) PlayerState {
	if !p.facade.Loaded() {
		return p.State()
	}
	p.facade.SetCurrentTime(math.Max(0, p.facade.CurrentTime()-SkipBackSeconds))
	return p.emitState()
}

// SkipForward moves ahead 30 seconds, stopping at the end. With an unknown
// duration the playhead goes to 0.
func (p *Player) SkipForward(_ context.Context) PlayerState {
	if !p.facade.Loaded() {
		return p.State()
	}
	target := math.Min(timefmt.OrZero(p.facade.Duration()), p.facade.CurrentTime()+SkipForwardSeconds)
	p.facade.SetCurrentTime(target)
	return p.emitState()
}

// RateChoices returns the offered playback rates.
func (p *Player) RateChoices() []float64 {
	return slices.Clone(p.rates)
}

// SetRate changes the playback rate and saves it to the signed-in profile.
func (p *Player) SetRate(ctx context.Context, rate float64) (PlayerState, error) {
	if !slices.Contains(p.rates, rate) {
		return PlayerState{}, errors.ValidationWithDetails(
			fmt.Sprintf("playback rate %s is not offered", domain.FormatSetting(rate)),
			map[string]any{"choices": p.rates},
		)
	}
	p.facade.SetPlaybackRate(rate)
	value := domain.FormatSetting(rate)
	p.saveSetting(ctx, domain.ProfileUpdate{PlaybackRate: &value})
	return p.emitState(), nil
}

// SetVolume changes the volume (0 to 1) and saves it to the signed-in profile.
func (p *Player) SetVolume(ctx context.Context, level float64) (PlayerState, error) {
	if err := p.validator.Var("volume", level, "gte=0,lte=1"); err != nil {
		return PlayerState{}, err
	}
	p.facade.SetVolume(level)
	value := domain.FormatSetting(level)
	p.saveSetting(ctx, domain.ProfileUpdate{Volume: &value})
	return p.emitState(), nil
}

// AcceptResume jumps to the pending saved position.
func (p *Player) AcceptResume(ctx context.Context) (PlayerState, bool) {
	if !p.resume.AcceptResume(ctx) {
		return p.State(), false
	}
	return p.emitState(), true
}

// ResumeOffer returns the pending offer, if any.
func (p *Player) ResumeOffer() (*ResumeOffer, bool) {
	return p.resume.Offer()
}

// SelectSleep applies a sleep selection: "off" cancels, a number of seconds arms the timer.
func (p *Player) SelectSleep(selection string) (SleepStatus, error) {
	selection = strings.TrimSpace(selection)
	if selection == sleeptimer.SelectionOff || selection == "" {
		p.sleep.Cancel()
		return p.SleepStatus(), nil
	}
	seconds, err := strconv.Atoi(selection)
	if err != nil {
		return SleepStatus{}, errors.Validationf("sleep selection %q is not a number of seconds", selection)
	}
	return p.ArmSleep(seconds)
}

// ArmSleep starts the sleep countdown.
func (p *Player) ArmSleep(seconds int) (SleepStatus, error) {
	if err := p.sleep.Arm(seconds); err != nil {
		return SleepStatus{}, err
	}
	p.logger.Info("sleep timer armed", "seconds", seconds)
	return p.SleepStatus(), nil
}

// CancelSleep stops the sleep countdown.
func (p *Player) CancelSleep() SleepStatus {
	p.sleep.Cancel()
	return p.SleepStatus()
}

// Snapshot returns the player and sleep timer views as events, for clients that
// connect after the last change was broadcast.
func (p *Player) Snapshot() []sse.Event {
	return []sse.Event{
		sse.NewPlayerStateEvent(sse.PlayerStateData(p.State())),
		sse.NewSleepStatusEvent(p.sleepData(p.sleep.Status())),
	}
}

// SleepStatus returns the sleep timer view.
func (p *Player) SleepStatus() SleepStatus {
	return p.sleepView(p.sleep.Status())
}

// State returns the player view.
func (p *Player) State() PlayerState {
	current := p.facade.CurrentTime()
	duration := p.facade.Duration()

	st := PlayerState{
		CurrentTime:     timefmt.OrZero(current),
		Duration:        timefmt.OrZero(duration),
		CurrentLabel:    timefmt.Format(current),
		DurationLabel:   timefmt.Format(duration),
		ProgressPercent: timefmt.Percent(current, duration),
		Paused:          p.facade.Paused(),
		PlaybackRate:    p.facade.PlaybackRate(),
		Volume:          p.facade.Volume(),
	}
	st.PlayLabel = LabelPause
	if st.Paused {
		st.PlayLabel = LabelPlay
	}

	p.mu.Lock()
	if p.current != nil {
		st.FileName = p.current.Name
		st.Title = p.current.Title
		st.Meta = fmt.Sprintf("Loaded locally · %d KB", p.current.SizeKB())
	}
	p.mu.Unlock()
	return st
}

// Close stops the sleep timer and detaches from the facade.
func (p *Player) Close() {
	p.sleep.Close()
	p.facade.SetListener(nil)
}

func (p *Player) handleEvent(ev playback.Event) {
	metrics.PlaybackEventsTotal.WithLabelValues(string(ev.Type)).Inc()
	ctx := context.Background()

	switch ev.Type {
	case playback.EventTimeUpdate:
		p.resume.OnTick(ctx, ev.CurrentTime, ev.Duration)
		p.events.Emit(sse.NewPlayerTimeUpdateEvent(sse.PlayerStateData(p.State())))
		return
	case playback.EventPause:
		p.resume.OnPause(ctx, ev.CurrentTime, ev.Duration)
	case playback.EventEnded:
		p.resume.OnEnded(ctx, ev.CurrentTime, ev.Duration)
	case playback.EventLoadedMetadata, playback.EventPlay:
	}
	p.emitState()
}

func (p *Player) sleepFired() {
	metrics.SleepTimerFiredTotal.Inc()
	p.logger.Info("sleep timer finished, pausing")
	p.facade.Pause()
}

func (p *Player) saveSetting(ctx context.Context, update domain.ProfileUpdate) {
	user := p.session.User()
	if user == "" {
		return
	}
	if _, err := p.profiles.Upsert(ctx, user, update); err != nil {
		p.logger.Warn("failed to save setting", "username", user, "error", err)
	}
}

func (p *Player) emitState() PlayerState {
	st := p.State()
	p.events.Emit(sse.NewPlayerStateEvent(sse.PlayerStateData(st)))
	return st
}

func (p *Player) sleepView(st sleeptimer.Status) SleepStatus {
	return SleepStatus{
		State:     string(st.State),
		Remaining: st.Remaining,
		Message:   st.Message,
		Selection: st.Selection,
		CanCancel: st.CanCancel,
		Options:   p.sleep.Allowed(),
	}
}

func (p *Player) sleepData(st sleeptimer.Status) sse.SleepStatusData {
	return sse.SleepStatusData{
		State:     string(st.State),
		Remaining: st.Remaining,
		Message:   st.Message,
		Selection: st.Selection,
		CanCancel: st.CanCancel,
	}
}
