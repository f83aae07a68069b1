package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/service"
	"github.com/listenupapp/listenup-player/internal/session"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

// ProvideLibrary provides the media directory listing.
func ProvideLibrary(i do.Injector) (*library.Library, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	lib := library.New(cfg.Library.Path, log.Logger, library.Options{IgnoreHidden: true})
	if !lib.Enabled() {
		log.Info("No library configured")
	}
	return lib, nil
}

// LibraryWatcherHandle stops the library watcher on shutdown.
type LibraryWatcherHandle struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Shutdown implements do.Shutdownable.
func (h *LibraryWatcherHandle) Shutdown() error {
	h.cancel()
	<-h.done
	return nil
}

// ProvideLibraryWatcher broadcasts library.changed whenever files under the library change.
func ProvideLibraryWatcher(i do.Injector) (*LibraryWatcherHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)
	lib := do.MustInvoke[*library.Library](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	ctx, cancel := context.WithCancel(context.Background())
	h := &LibraryWatcherHandle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		err := lib.Watch(ctx, func() {
			sseHandle.Emit(sse.NewLibraryChangedEvent())
		})
		if err != nil {
			log.Warn("Library watcher stopped", "error", err)
		}
	}()

	return h, nil
}

// ProvideAuthService provides the profile login gate.
func ProvideAuthService(i do.Injector) (*service.AuthService, error) {
	log := do.MustInvoke[*logger.Logger](i)
	profiles := do.MustInvoke[*store.ProfileStore](i)
	state := do.MustInvoke[*session.State](i)
	facade := do.MustInvoke[*FacadeHandle](i)
	limiter := do.MustInvoke[*LoginLimiterHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return service.NewAuthService(
		profiles,
		state,
		facade.Facade,
		limiter.KeyedRateLimiter,
		sseHandle.Manager,
		log.WithComponent("auth").Logger,
	), nil
}

// ProvideResumeTracker provides the progress tracker.
func ProvideResumeTracker(i do.Injector) (*service.ResumeTracker, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	profiles := do.MustInvoke[*store.ProfileStore](i)
	state := do.MustInvoke[*session.State](i)
	facade := do.MustInvoke[*FacadeHandle](i)
	clk := do.MustInvoke[clock.Clock](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	return service.NewResumeTracker(
		profiles,
		state,
		facade.Facade,
		clk,
		cfg.Player.SaveEvery,
		sseHandle.Manager,
		log.WithComponent("resume").Logger,
	), nil
}

// PlayerHandle wraps the player service with shutdown capability.
type PlayerHandle struct {
	*service.Player
}

// Shutdown implements do.Shutdownable. Playback is paused so the final position is saved.
func (h *PlayerHandle) Shutdown() error {
	h.Pause(context.Background())
	h.Close()
	return nil
}

// ProvidePlayer provides the playback controls.
func ProvidePlayer(i do.Injector) (*PlayerHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	profiles := do.MustInvoke[*store.ProfileStore](i)
	state := do.MustInvoke[*session.State](i)
	facade := do.MustInvoke[*FacadeHandle](i)
	lib := do.MustInvoke[*library.Library](i)
	resume := do.MustInvoke[*service.ResumeTracker](i)
	clk := do.MustInvoke[clock.Clock](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	player := service.NewPlayer(
		facade.Facade,
		lib,
		state,
		profiles,
		resume,
		clk,
		service.PlayerConfig{
			RateChoices:    cfg.Player.RateChoices,
			SleepDurations: cfg.Player.SleepDurations,
		},
		sseHandle.Manager,
		log.WithComponent("player").Logger,
	)

	return &PlayerHandle{Player: player}, nil
}
