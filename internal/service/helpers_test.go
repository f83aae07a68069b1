package service

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/clock/clocktest"
	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/kv"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/playback/playbacktest"
	"github.com/listenupapp/listenup-player/internal/ratelimit"
	"github.com/listenupapp/listenup-player/internal/session"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

type recordingSink struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingSink) Emit(e sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingSink) last(t sse.EventType) (sse.Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].Type == t {
			return r.events[i], true
		}
	}
	return sse.Event{}, false
}

// fixture wires the services over in-memory storage, a recording facade and a manual clock.
type fixture struct {
	ctx      context.Context
	area     *kv.Memory
	profiles *store.ProfileStore
	session  *session.State
	facade   *playbacktest.Fake
	clock    *clocktest.Manual
	sink     *recordingSink
	limiter  *ratelimit.KeyedRateLimiter
	logger   *slog.Logger
	root     string

	auth   *AuthService
	resume *ResumeTracker
	player *Player
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)

	clk := clocktest.NewManual(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	f := &fixture{
		ctx:     context.Background(),
		area:    kv.NewMemory(),
		session: session.New(clk),
		facade:  playbacktest.New(),
		clock:   clk,
		sink:    &recordingSink{},
		root:    t.TempDir(),
		logger:  logger,
	}

	f.profiles = store.NewProfileStore(f.area, logger)
	lib := library.New(f.root, logger, library.Options{})

	f.auth = NewAuthService(f.profiles, f.session, f.facade, f.limiter, f.sink, logger)
	f.resume = NewResumeTracker(f.profiles, f.session, f.facade, f.clock, DefaultSaveEvery, f.sink, logger)
	f.player = NewPlayer(f.facade, lib, f.session, f.profiles, f.resume, f.clock, PlayerConfig{
		RateChoices:    []float64{0.75, 1, 1.5, 2},
		SleepDurations: []int{5, 900},
	}, f.sink, logger)
	t.Cleanup(f.player.Close)

	return f
}

// throttle rebuilds the auth service with a failed-PIN limiter of the given burst
// that does not refill during a test.
func (f *fixture) throttle(t *testing.T, burst int) {
	t.Helper()
	f.limiter = ratelimit.New(0.0001, burst)
	t.Cleanup(f.limiter.Stop)
	f.auth = NewAuthService(f.profiles, f.session, f.facade, f.limiter, f.sink, f.logger)
}

func (f *fixture) addFile(t *testing.T, name string, size int) {
	t.Helper()
	p := filepath.Join(f.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
	require.NoError(t, os.WriteFile(p, make([]byte, size), 0o600))
}

func (f *fixture) seed(t *testing.T, profiles domain.ProfileCollection) {
	t.Helper()
	require.NoError(t, f.profiles.SaveAll(f.ctx, profiles))
}

func (f *fixture) profile(t *testing.T, username string) domain.ProfileRecord {
	t.Helper()
	rec, ok, err := f.profiles.Get(f.ctx, username)
	require.NoError(t, err)
	require.True(t, ok, "profile %q missing", username)
	return rec
}

func (f *fixture) login(t *testing.T, username, pin string) *LoginResult {
	t.Helper()
	res, err := f.auth.Login(f.ctx, LoginRequest{Username: username, PIN: pin})
	require.NoError(t, err)
	return res
}
