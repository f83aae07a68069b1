// Package sleeptimer pauses playback after a countdown.
//
// A Timer moves Idle -> Running(n) -> Fired. Each wall-clock second removes
// one from the remaining count regardless of playback state or rate. Reaching
// zero runs the fire hook exactly once.
package sleeptimer

import (
	"fmt"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/timefmt"
)

// State is the timer's lifecycle state.
type State string

// Timer states.
const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StateFired   State = "fired"
)

// SelectionOff is the selection shown when no countdown is armed.
const SelectionOff = "off"

// Status messages.
const (
	MessageOff      = "Sleep timer off."
	MessageFinished = "Sleep timer finished. Playback paused."
)

// Status is a snapshot of the timer for display.
type Status struct {
	State     State
	Remaining int
	Message   string
	Selection string
	CanCancel bool
}

// Timer is a cancellable countdown. The zero value is not usable; call New.
type Timer struct {
	clock   clock.Clock
	allowed []int
	onFire  func()

	mu        sync.Mutex
	listener  func(Status)
	state     State
	remaining int
	selection string
	gen       int
	stop      func()
}

// New creates an idle timer. allowed lists the accepted durations in seconds;
// an empty list accepts any positive duration. onFire runs when the countdown reaches zero.
func New(c clock.Clock, allowed []int, onFire func()) *Timer {
	if onFire == nil {
		onFire = func() {}
	}
	return &Timer{
		clock:     c,
		allowed:   slices.Clone(allowed),
		onFire:    onFire,
		state:     StateIdle,
		selection: SelectionOff,
	}
}

// SetListener registers fn to receive every status change. fn is called without the timer lock held.
func (t *Timer) SetListener(fn func(Status)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.listener = fn
}

// Allowed returns the accepted durations in seconds.
func (t *Timer) Allowed() []int {
	return slices.Clone(t.allowed)
}

// Arm starts a countdown of seconds, replacing any countdown in progress.
func (t *Timer) Arm(seconds int) error {
	if seconds <= 0 {
		return errors.Validationf("sleep duration must be positive, got %d", seconds)
	}
	if len(t.allowed) > 0 && !slices.Contains(t.allowed, seconds) {
		return errors.ValidationWithDetails(
			fmt.Sprintf("sleep duration %d is not one of the offered durations", seconds),
			map[string]any{"allowed": t.allowed},
		)
	}

	t.mu.Lock()
	t.stopLocked()
	t.gen++
	gen := t.gen
	t.state = StateRunning
	t.remaining = seconds
	t.selection = strconv.Itoa(seconds)
	t.stop = t.clock.Every(time.Second, func() { t.tick(gen) })
	status := t.statusLocked()
	l := t.listener
	t.mu.Unlock()

	publish(l, status)
	return nil
}

// Cancel stops a running countdown. It does nothing when idle or fired.
func (t *Timer) Cancel() {
	t.mu.Lock()
	if t.state != StateRunning {
		t.mu.Unlock()
		return
	}
	t.stopLocked()
	t.gen++
	t.state = StateIdle
	t.remaining = 0
	t.selection = SelectionOff
	status := t.statusLocked()
	l := t.listener
	t.mu.Unlock()

	publish(l, status)
}

// Status returns the current status.
func (t *Timer) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.statusLocked()
}

// Close stops any live trigger without firing or publishing.
func (t *Timer) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
	t.gen++
}

func (t *Timer) tick(gen int) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateRunning {
		t.mu.Unlock()
		return
	}

	t.remaining--
	fired := t.remaining <= 0
	if fired {
		t.stopLocked()
		t.gen++
		t.remaining = 0
		t.state = StateFired
		t.selection = SelectionOff
	}
	status := t.statusLocked()
	l := t.listener
	t.mu.Unlock()

	if fired {
		t.onFire()
	}
	publish(l, status)
}

func (t *Timer) stopLocked() {
	if t.stop != nil {
		t.stop()
		t.stop = nil
	}
}

func (t *Timer) statusLocked() Status {
	s := Status{
		State:     t.state,
		Remaining: t.remaining,
		Selection: t.selection,
		CanCancel: t.state == StateRunning,
	}
	switch t.state {
	case StateRunning:
		s.Message = fmt.Sprintf("Sleeping in %s.", timefmt.Format(float64(t.remaining)))
	case StateFired:
		s.Message = MessageFinished
	default:
		s.Message = MessageOff
	}
	return s
}

func publish(l func(Status), s Status) {
	if l != nil {
		l(s)
	}
}
