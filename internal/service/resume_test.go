package service

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/sse"
)

func TestResumeTracker_OfferAndAccept(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.ProfileCollection{"alice": {
		Progress: map[string]domain.ProgressEntry{"book.mp3": {Position: 120, Duration: 3600}},
	}})
	f.login(t, "alice", "")

	offer, err := f.resume.OnFileLoaded(f.ctx, "book.mp3")
	require.NoError(t, err)
	require.NotNil(t, offer)
	assert.Equal(t, 120.0, offer.Position)
	assert.Equal(t, 3600.0, offer.Duration)
	assert.Equal(t, "Saved position at 2:00 of 60:00.", offer.Message)

	ev, ok := f.sink.last(sse.EventResumeOffer)
	require.True(t, ok)
	assert.Equal(t, "book.mp3", ev.Data.(sse.ResumeOfferData).FileName)

	pending, ok := f.resume.Offer()
	require.True(t, ok)
	assert.Equal(t, offer, pending)

	assert.True(t, f.resume.AcceptResume(f.ctx))
	assert.Equal(t, 1, f.facade.Count("SetCurrentTime(120)"))
	assert.Equal(t, 120.0, f.facade.CurrentTime())

	// The offer is consumed.
	assert.False(t, f.resume.AcceptResume(f.ctx))
	_, ok = f.resume.Offer()
	assert.False(t, ok)
}

func TestResumeTracker_OnFileLoaded_RecordsLastFile(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", "")

	offer, err := f.resume.OnFileLoaded(f.ctx, "new.mp3")
	require.NoError(t, err)
	assert.Nil(t, offer)
	assert.Equal(t, "new.mp3", f.profile(t, "alice").LastFileName)
	assert.Equal(t, "new.mp3", f.session.FileName())
}

func TestResumeTracker_OnFileLoaded_NoUser(t *testing.T) {
	f := newFixture(t)

	offer, err := f.resume.OnFileLoaded(f.ctx, "book.mp3")
	require.NoError(t, err)
	assert.Nil(t, offer)
	assert.Equal(t, "book.mp3", f.session.FileName())

	profiles, err := f.profiles.Load(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

func TestResumeTracker_LoadingAnotherFileDropsOffer(t *testing.T) {
	f := newFixture(t)
	f.seed(t, domain.ProfileCollection{"alice": {
		Progress: map[string]domain.ProgressEntry{"a.mp3": {Position: 30, Duration: 90}},
	}})
	f.login(t, "alice", "")

	_, err := f.resume.OnFileLoaded(f.ctx, "a.mp3")
	require.NoError(t, err)
	_, err = f.resume.OnFileLoaded(f.ctx, "b.mp3")
	require.NoError(t, err)

	assert.False(t, f.resume.AcceptResume(f.ctx))
	assert.Zero(t, f.facade.Count("SetCurrentTime(30)"))
}

func TestResumeTracker_OnTick_SavesEveryTenth(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", "")
	_, err := f.resume.OnFileLoaded(f.ctx, "book.mp3")
	require.NoError(t, err)

	for i := 1; i <= 9; i++ {
		f.resume.OnTick(f.ctx, float64(i), 100)
	}
	_, saved := f.profile(t, "alice").Progress["book.mp3"]
	assert.False(t, saved)

	f.resume.OnTick(f.ctx, 10, 100)

	entry, saved := f.profile(t, "alice").Progress["book.mp3"]
	require.True(t, saved)
	assert.Equal(t, 10.0, entry.Position)
	assert.Equal(t, 100.0, entry.Duration)
	assert.Equal(t, f.clock.Now(), entry.UpdatedAt)

	for i := 11; i <= 19; i++ {
		f.resume.OnTick(f.ctx, float64(i), 100)
	}
	assert.Equal(t, 10.0, f.profile(t, "alice").Progress["book.mp3"].Position)
	f.resume.OnTick(f.ctx, 20, 100)
	assert.Equal(t, 20.0, f.profile(t, "alice").Progress["book.mp3"].Position)
}

func TestResumeTracker_PauseAndEndedSnapshot(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", "")
	_, err := f.resume.OnFileLoaded(f.ctx, "book.mp3")
	require.NoError(t, err)

	f.resume.OnPause(f.ctx, 42.5, 300)
	assert.Equal(t, 42.5, f.profile(t, "alice").Progress["book.mp3"].Position)

	f.clock.Advance(time.Minute)
	f.resume.OnEnded(f.ctx, 300, 300)
	entry := f.profile(t, "alice").Progress["book.mp3"]
	assert.Equal(t, 300.0, entry.Position)
	assert.Equal(t, f.clock.Now(), entry.UpdatedAt)
	assert.Equal(t, "book.mp3", f.profile(t, "alice").LastFileName)
}

func TestResumeTracker_NonFiniteSavedAsZero(t *testing.T) {
	f := newFixture(t)
	f.login(t, "alice", "")
	_, err := f.resume.OnFileLoaded(f.ctx, "stream.mp3")
	require.NoError(t, err)

	f.resume.OnPause(f.ctx, 5, math.NaN())

	entry := f.profile(t, "alice").Progress["stream.mp3"]
	assert.Equal(t, 5.0, entry.Position)
	assert.Equal(t, 0.0, entry.Duration)
}

func TestResumeTracker_SnapshotNoOps(t *testing.T) {
	t.Run("without user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.resume.OnFileLoaded(f.ctx, "book.mp3")
		require.NoError(t, err)

		f.resume.OnPause(f.ctx, 10, 100)

		profiles, err := f.profiles.Load(f.ctx)
		require.NoError(t, err)
		assert.Empty(t, profiles)
	})

	t.Run("without file", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "alice", "")

		f.resume.OnPause(f.ctx, 10, 100)

		assert.Empty(t, f.profile(t, "alice").Progress)
	})

	t.Run("profile removed underneath", func(t *testing.T) {
		f := newFixture(t)
		f.login(t, "alice", "")
		_, err := f.resume.OnFileLoaded(f.ctx, "book.mp3")
		require.NoError(t, err)
		f.seed(t, domain.ProfileCollection{})

		f.resume.OnPause(f.ctx, 10, 100)

		profiles, err := f.profiles.Load(f.ctx)
		require.NoError(t, err)
		assert.Empty(t, profiles)
	})
}
