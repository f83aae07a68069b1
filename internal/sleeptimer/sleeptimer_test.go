package sleeptimer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/clock/clocktest"
	"github.com/listenupapp/listenup-player/internal/errors"
)

func setupTimer(t *testing.T, allowed []int) (*Timer, *clocktest.Manual, *int) {
	t.Helper()
	clk := clocktest.NewManual(time.Now())
	pauses := 0
	return New(clk, allowed, func() { pauses++ }), clk, &pauses
}

func TestTimer_StartsIdle(t *testing.T) {
	timer, _, _ := setupTimer(t, nil)

	st := timer.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, MessageOff, st.Message)
	assert.Equal(t, SelectionOff, st.Selection)
	assert.False(t, st.CanCancel)
}

func TestTimer_FiresAfterCountdown(t *testing.T) {
	timer, clk, pauses := setupTimer(t, nil)

	require.NoError(t, timer.Arm(5))
	assert.Equal(t, "Sleeping in 0:05.", timer.Status().Message)

	clk.TickN(4)
	assert.Equal(t, 0, *pauses)
	assert.Equal(t, "Sleeping in 0:01.", timer.Status().Message)

	clk.Tick()
	assert.Equal(t, 1, *pauses)

	st := timer.Status()
	assert.Equal(t, StateFired, st.State)
	assert.Equal(t, MessageFinished, st.Message)
	assert.Equal(t, SelectionOff, st.Selection)
	assert.False(t, st.CanCancel)

	clk.TickN(3)
	assert.Equal(t, 1, *pauses, "fire hook runs exactly once")
	assert.Zero(t, clk.Live())
}

func TestTimer_CancelAfterTwoTicks(t *testing.T) {
	timer, clk, pauses := setupTimer(t, nil)

	require.NoError(t, timer.Arm(5))
	clk.TickN(2)
	timer.Cancel()
	clk.TickN(10)

	st := timer.Status()
	assert.Equal(t, StateIdle, st.State)
	assert.Equal(t, MessageOff, st.Message)
	assert.Equal(t, SelectionOff, st.Selection)
	assert.Equal(t, 0, *pauses)
	assert.Zero(t, clk.Live())
}

func TestTimer_RearmRestarts(t *testing.T) {
	timer, clk, pauses := setupTimer(t, nil)

	require.NoError(t, timer.Arm(30))
	clk.TickN(2)
	require.NoError(t, timer.Arm(10))
	assert.Equal(t, 1, clk.Live(), "at most one live trigger")

	clk.TickN(9)
	assert.Equal(t, 0, *pauses)
	assert.Equal(t, 1, timer.Status().Remaining)

	clk.Tick()
	assert.Equal(t, 1, *pauses)
}

func TestTimer_CancelIsNoopWhenNotRunning(t *testing.T) {
	timer, clk, _ := setupTimer(t, nil)
	var published []Status
	timer.SetListener(func(s Status) { published = append(published, s) })

	timer.Cancel()
	assert.Empty(t, published)

	require.NoError(t, timer.Arm(1))
	clk.Tick()
	timer.Cancel()

	assert.Equal(t, StateFired, timer.Status().State)
	require.Len(t, published, 2)
	assert.Equal(t, StateRunning, published[0].State)
	assert.Equal(t, StateFired, published[1].State)
}

func TestTimer_StaleTickIgnored(t *testing.T) {
	timer, _, pauses := setupTimer(t, nil)

	require.NoError(t, timer.Arm(1))
	stale := timer.gen
	require.NoError(t, timer.Arm(60))

	timer.tick(stale)
	assert.Equal(t, 0, *pauses)
	assert.Equal(t, 60, timer.Status().Remaining)
}

func TestTimer_AllowedDurations(t *testing.T) {
	timer, _, _ := setupTimer(t, []int{900, 1800, 2700, 3600})

	assert.NoError(t, timer.Arm(1800))
	assert.Equal(t, "1800", timer.Status().Selection)
	assert.Equal(t, "Sleeping in 30:00.", timer.Status().Message)

	err := timer.Arm(60)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, 1800, timer.Status().Remaining, "rejected arm leaves the running countdown alone")
}

func TestTimer_RejectsNonPositive(t *testing.T) {
	timer, _, _ := setupTimer(t, nil)

	assert.True(t, errors.Is(timer.Arm(0), errors.ErrValidation))
	assert.True(t, errors.Is(timer.Arm(-5), errors.ErrValidation))
	assert.Equal(t, StateIdle, timer.Status().State)
}

func TestTimer_FireHookCanReadStatus(t *testing.T) {
	clk := clocktest.NewManual(time.Now())
	var seen Status
	var timer *Timer
	timer = New(clk, nil, func() { seen = timer.Status() })

	require.NoError(t, timer.Arm(1))
	clk.Tick()

	assert.Equal(t, StateFired, seen.State, "hook runs after the state change without the lock held")
}
