// Package di provides dependency injection configuration for the ListenUp player.
package di

import (
	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/di/providers"
	"github.com/listenupapp/listenup-player/internal/library"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/service"
	"github.com/listenupapp/listenup-player/internal/session"
	"github.com/listenupapp/listenup-player/internal/store"
)

// NewContainer creates and configures the DI container with all providers.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)
	do.Provide(injector, providers.ProvideClock)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideKV)
	do.Provide(injector, providers.ProvideProfileStore)

	// Playback layer
	do.Provide(injector, providers.ProvidePlaybackFacade)
	do.Provide(injector, providers.ProvideSessionState)
	do.Provide(injector, providers.ProvideLoginLimiter)
	do.Provide(injector, providers.ProvideLibrary)

	// Business services
	do.Provide(injector, providers.ProvideAuthService)
	do.Provide(injector, providers.ProvideResumeTracker)
	do.Provide(injector, providers.ProvidePlayer)

	// Workers
	do.Provide(injector, providers.ProvideLibraryWatcher)

	// Server
	do.Provide(injector, providers.ProvideHTTPServer)
	do.Provide(injector, providers.ProvideMDNSService)

	return injector
}

// Bootstrap initializes all services and restores the last listener's session.
func Bootstrap(injector *do.RootScope) error {
	if _, err := do.Invoke[*config.Config](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*logger.Logger](injector)
	_ = do.MustInvoke[clock.Clock](injector)
	_ = do.MustInvoke[*providers.SSEManagerHandle](injector)
	if _, err := do.Invoke[*providers.KVHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*store.ProfileStore](injector)
	if _, err := do.Invoke[*providers.FacadeHandle](injector); err != nil {
		return err
	}
	_ = do.MustInvoke[*session.State](injector)
	_ = do.MustInvoke[*providers.LoginLimiterHandle](injector)
	_ = do.MustInvoke[*library.Library](injector)

	// Business services
	_ = do.MustInvoke[*service.AuthService](injector)
	_ = do.MustInvoke[*service.ResumeTracker](injector)
	_ = do.MustInvoke[*providers.PlayerHandle](injector)

	providers.RestoreLastSession(injector)

	// Workers
	_ = do.MustInvoke[*providers.LibraryWatcherHandle](injector)

	// Server
	_ = do.MustInvoke[*providers.HTTPServerHandle](injector)
	_ = do.MustInvoke[*providers.MDNSServiceHandle](injector)

	return nil
}
