package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/sleeptimer"
	"github.com/listenupapp/listenup-player/internal/sse"
)

func loadedFixture(t *testing.T, duration float64) *fixture {
	t.Helper()
	f := newFixture(t)
	f.addFile(t, "book.mp3", 2048)
	f.login(t, "alice", "")
	_, err := f.player.Load(f.ctx, "book.mp3")
	require.NoError(t, err)
	if duration > 0 {
		f.facade.SetDuration(duration)
	}
	f.facade.Reset()
	return f
}

func TestPlayer_Load(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "shelf/book.mp3", 2048)
	f.seed(t, domain.ProfileCollection{"alice": {
		Progress: map[string]domain.ProgressEntry{"book.mp3": {Position: 120, Duration: 3600}},
	}})
	f.login(t, "alice", "")

	res, err := f.player.Load(f.ctx, "shelf/book.mp3")
	require.NoError(t, err)

	assert.Equal(t, 1, f.facade.Count("Load(book.mp3)"))
	assert.Equal(t, "book.mp3", res.State.FileName)
	assert.Equal(t, "book.mp3", res.State.Title)
	assert.Equal(t, "Loaded locally · 2 KB", res.State.Meta)
	assert.Equal(t, LabelPlay, res.State.PlayLabel)
	assert.Equal(t, "0:00", res.State.DurationLabel)
	require.NotNil(t, res.Offer)
	assert.Equal(t, "Saved position at 2:00 of 60:00.", res.Offer.Message)

	_, ok := f.sink.last(sse.EventPlayerState)
	assert.True(t, ok)
}

func TestPlayer_Load_NotInLibrary(t *testing.T) {
	f := newFixture(t)

	_, err := f.player.Load(f.ctx, "../etc/passwd.mp3")

	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrNotFound))
	assert.Zero(t, f.facade.Count("Load(passwd.mp3)"))
}

func TestPlayer_Load_PausesAndSavesOutgoingFile(t *testing.T) {
	f := loadedFixture(t, 600)
	f.addFile(t, "other.mp3", 1024)
	_, err := f.player.Play(f.ctx)
	require.NoError(t, err)
	f.facade.SetPosition(75)

	_, err = f.player.Load(f.ctx, "other.mp3")
	require.NoError(t, err)

	assert.Equal(t, []string{"Play", "Pause", "Load(other.mp3)"}, f.facade.Calls())
	rec := f.profile(t, "alice")
	assert.Equal(t, 75.0, rec.Progress["book.mp3"].Position)
	assert.Equal(t, "other.mp3", rec.LastFileName)
}

func TestPlayer_Toggle(t *testing.T) {
	t.Run("no source", func(t *testing.T) {
		f := newFixture(t)
		st, err := f.player.Toggle(f.ctx)
		require.NoError(t, err)
		assert.True(t, st.Paused)
		assert.Empty(t, f.facade.Calls())
	})

	t.Run("play then pause saves progress", func(t *testing.T) {
		f := loadedFixture(t, 600)

		st, err := f.player.Toggle(f.ctx)
		require.NoError(t, err)
		assert.False(t, st.Paused)
		assert.Equal(t, LabelPause, st.PlayLabel)

		f.facade.SetPosition(33)
		st, err = f.player.Toggle(f.ctx)
		require.NoError(t, err)
		assert.True(t, st.Paused)
		assert.Equal(t, LabelPlay, st.PlayLabel)

		assert.Equal(t, []string{"Play", "Pause"}, f.facade.Calls())
		assert.Equal(t, 33.0, f.profile(t, "alice").Progress["book.mp3"].Position)
	})
}

func TestPlayer_TimeUpdatesAutosave(t *testing.T) {
	f := loadedFixture(t, 600)
	_, err := f.player.Play(f.ctx)
	require.NoError(t, err)

	for i := 1; i <= 10; i++ {
		f.facade.TimeUpdate(float64(i))
		if i == 9 {
			_, saved := f.profile(t, "alice").Progress["book.mp3"]
			require.False(t, saved)
		}
	}

	assert.Equal(t, 10.0, f.profile(t, "alice").Progress["book.mp3"].Position)

	ev, ok := f.sink.last(sse.EventPlayerTimeUpdate)
	require.True(t, ok)
	assert.Equal(t, "0:10", ev.Data.(sse.PlayerStateData).CurrentLabel)
}

func TestPlayer_EndedSavesProgress(t *testing.T) {
	f := loadedFixture(t, 90)
	_, err := f.player.Play(f.ctx)
	require.NoError(t, err)
	f.facade.SetPosition(90)

	f.facade.Emit("ended")

	assert.Equal(t, 90.0, f.profile(t, "alice").Progress["book.mp3"].Position)
	assert.True(t, f.player.State().Paused)
}

func TestPlayer_SeekPercent(t *testing.T) {
	t.Run("unknown duration", func(t *testing.T) {
		f := loadedFixture(t, 0)
		_, err := f.player.SeekPercent(f.ctx, 50)
		require.NoError(t, err)
		assert.Empty(t, f.facade.Calls())
	})

	t.Run("known duration", func(t *testing.T) {
		f := loadedFixture(t, 200)
		st, err := f.player.SeekPercent(f.ctx, 50)
		require.NoError(t, err)
		assert.Equal(t, []string{"SetCurrentTime(100)"}, f.facade.Calls())
		assert.Equal(t, 50.0, st.ProgressPercent)
		assert.Equal(t, "1:40", st.CurrentLabel)
		assert.Equal(t, "3:20", st.DurationLabel)
	})

	t.Run("out of range", func(t *testing.T) {
		f := loadedFixture(t, 200)
		_, err := f.player.SeekPercent(f.ctx, 101)
		assert.True(t, errors.Is(err, errors.ErrValidation))
	})
}

func TestPlayer_Skip(t *testing.T) {
	t.Run("back floors at zero", func(t *testing.T) {
		f := loadedFixture(t, 600)
		f.facade.SetPosition(10)
		f.player.SkipBack(f.ctx)
		assert.Equal(t, []string{"SetCurrentTime(0)"}, f.facade.Calls())
	})

	t.Run("back fifteen", func(t *testing.T) {
		f := loadedFixture(t, 600)
		f.facade.SetPosition(100)
		f.player.SkipBack(f.ctx)
		assert.Equal(t, 85.0, f.facade.CurrentTime())
	})

	t.Run("forward capped at duration", func(t *testing.T) {
		f := loadedFixture(t, 100)
		f.facade.SetPosition(90)
		f.player.SkipForward(f.ctx)
		assert.Equal(t, []string{"SetCurrentTime(100)"}, f.facade.Calls())
	})

	t.Run("forward thirty", func(t *testing.T) {
		f := loadedFixture(t, 100)
		f.facade.SetPosition(10)
		f.player.SkipForward(f.ctx)
		assert.Equal(t, 40.0, f.facade.CurrentTime())
	})

	t.Run("forward with unknown duration goes to zero", func(t *testing.T) {
		f := loadedFixture(t, 0)
		f.facade.SetPosition(10)
		f.player.SkipForward(f.ctx)
		assert.Equal(t, []string{"SetCurrentTime(0)"}, f.facade.Calls())
	})

	t.Run("no source", func(t *testing.T) {
		f := newFixture(t)
		f.player.SkipForward(f.ctx)
		f.player.SkipBack(f.ctx)
		assert.Empty(t, f.facade.Calls())
	})
}

func TestPlayer_SetRate(t *testing.T) {
	f := loadedFixture(t, 0)

	st, err := f.player.SetRate(f.ctx, 1.5)
	require.NoError(t, err)
	assert.Equal(t, 1.5, st.PlaybackRate)
	assert.Equal(t, "1.5", f.profile(t, "alice").PlaybackRate)

	_, err = f.player.SetRate(f.ctx, 3)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Equal(t, "1.5", f.profile(t, "alice").PlaybackRate)
}

func TestPlayer_SetVolume(t *testing.T) {
	f := loadedFixture(t, 0)

	st, err := f.player.SetVolume(f.ctx, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, st.Volume)
	assert.Equal(t, "0.5", f.profile(t, "alice").Volume)

	_, err = f.player.SetVolume(f.ctx, 1.2)
	assert.True(t, errors.Is(err, errors.ErrValidation))
}

func TestPlayer_SettingsWithoutUserNotSaved(t *testing.T) {
	f := newFixture(t)

	_, err := f.player.SetRate(f.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, f.facade.Count("SetPlaybackRate(2)"))

	profiles, err := f.profiles.Load(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestPlayer_SleepFiresAndPauses(t *testing.T) {
	f := loadedFixture(t, 600)
	_, err := f.player.Play(f.ctx)
	require.NoError(t, err)
	f.facade.Reset()

	st, err := f.player.SelectSleep("5")
	require.NoError(t, err)
	assert.Equal(t, "Sleeping in 0:05.", st.Message)
	assert.True(t, st.CanCancel)

	f.clock.TickN(4)
	assert.Zero(t, f.facade.Count("Pause"))
	assert.Equal(t, "Sleeping in 0:01.", f.player.SleepStatus().Message)

	f.clock.Tick()
	assert.Equal(t, 1, f.facade.Count("Pause"))

	st = f.player.SleepStatus()
	assert.Equal(t, string(sleeptimer.StateFired), st.State)
	assert.Equal(t, sleeptimer.MessageFinished, st.Message)
	assert.Equal(t, sleeptimer.SelectionOff, st.Selection)
	assert.False(t, st.CanCancel)

	f.clock.TickN(3)
	assert.Equal(t, 1, f.facade.Count("Pause"))
	assert.Zero(t, f.clock.Live())

	ev, ok := f.sink.last(sse.EventSleepStatus)
	require.True(t, ok)
	assert.Equal(t, sleeptimer.MessageFinished, ev.Data.(sse.SleepStatusData).Message)
}

func TestPlayer_SleepCancel(t *testing.T) {
	f := loadedFixture(t, 600)
	_, err := f.player.ArmSleep(5)
	require.NoError(t, err)

	f.clock.TickN(2)
	st := f.player.CancelSleep()

	assert.Equal(t, sleeptimer.MessageOff, st.Message)
	assert.Equal(t, sleeptimer.SelectionOff, st.Selection)
	f.clock.TickN(5)
	assert.Zero(t, f.facade.Count("Pause"))
}

func TestPlayer_SleepRejectsUnofferedDuration(t *testing.T) {
	f := newFixture(t)

	_, err := f.player.SelectSleep("60")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	_, err = f.player.SelectSleep("soon")
	assert.True(t, errors.Is(err, errors.ErrValidation))

	st, err := f.player.SelectSleep("off")
	require.NoError(t, err)
	assert.Equal(t, sleeptimer.MessageOff, st.Message)
	assert.Equal(t, []int{5, 900}, st.Options)
}

func TestPlayer_AcceptResume(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "book.mp3", 2048)
	f.seed(t, domain.ProfileCollection{"alice": {
		Progress: map[string]domain.ProgressEntry{"book.mp3": {Position: 120, Duration: 3600}},
	}})
	f.login(t, "alice", "")
	_, err := f.player.Load(f.ctx, "book.mp3")
	require.NoError(t, err)
	f.facade.SetDuration(3600)

	st, ok := f.player.AcceptResume(f.ctx)
	require.True(t, ok)
	assert.Equal(t, 1, f.facade.Count("SetCurrentTime(120)"))
	assert.Equal(t, "2:00", st.CurrentLabel)

	_, ok = f.player.AcceptResume(f.ctx)
	assert.False(t, ok)
}

func TestPlayer_Snapshot(t *testing.T) {
	f := newFixture(t)
	f.addFile(t, "book.mp3", 2048)
	_, err := f.player.Load(f.ctx, "book.mp3")
	require.NoError(t, err)

	events := f.player.Snapshot()

	require.Len(t, events, 2)
	assert.Equal(t, sse.EventPlayerState, events[0].Type)
	assert.Equal(t, "book.mp3", events[0].Data.(sse.PlayerStateData).FileName)
	assert.Equal(t, sse.EventSleepStatus, events[1].Type)
	assert.Equal(t, "off", events[1].Data.(sse.SleepStatusData).Selection)
}
