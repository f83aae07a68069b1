package providers

import (
	"errors"

	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/playback/local"
	"github.com/listenupapp/listenup-player/internal/playback/silent"
	"github.com/listenupapp/listenup-player/internal/ratelimit"
	"github.com/listenupapp/listenup-player/internal/session"
)

// ProvideClock provides the wall clock.
func ProvideClock(i do.Injector) (clock.Clock, error) {
	return clock.Real{}, nil
}

// FacadeHandle wraps the playback facade with shutdown capability.
type FacadeHandle struct {
	playback.Facade
}

// Shutdown implements do.Shutdownable.
func (h *FacadeHandle) Shutdown() error {
	return h.Close()
}

// ProvidePlaybackFacade provides the audio engine. The local output falls back to
// the silent clock when the host or build has no sound card support.
func ProvidePlaybackFacade(i do.Injector) (*FacadeHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	clk := do.MustInvoke[clock.Clock](i)

	interval := cfg.Player.TimeUpdateInterval

	if cfg.Player.Output == config.OutputLocal {
		p, err := local.New(clk, interval, log.Logger)
		switch {
		case err == nil:
			log.Info("Audio output ready", "output", config.OutputLocal)
			return &FacadeHandle{Facade: p}, nil
		case errors.Is(err, playback.ErrAudioUnavailable):
			log.Warn("Audio output unavailable, using silent playback", "error", err)
		default:
			return nil, err
		}
	}

	log.Info("Audio output ready", "output", config.OutputNone)
	return &FacadeHandle{Facade: silent.New(clk, interval)}, nil
}

// ProvideSessionState provides the in-memory session state.
func ProvideSessionState(i do.Injector) (*session.State, error) {
	return session.New(do.MustInvoke[clock.Clock](i)), nil
}

// LoginLimiterHandle wraps the login rate limiter with shutdown capability.
// KeyedRateLimiter is nil when throttling is off.
type LoginLimiterHandle struct {
	*ratelimit.KeyedRateLimiter
}

// Shutdown implements do.Shutdownable.
func (h *LoginLimiterHandle) Shutdown() error {
	if h.KeyedRateLimiter != nil {
		h.Stop()
	}
	return nil
}

// ProvideLoginLimiter provides the per-username limiter for failed PIN attempts.
// Throttling is opt-in: with no attempts per minute configured a wrong PIN is
// only ever reported as incorrect.
func ProvideLoginLimiter(i do.Injector) (*LoginLimiterHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if cfg.Auth.LoginAttemptsPerMinute == 0 {
		return &LoginLimiterHandle{}, nil
	}

	log.Info("Login throttling enabled",
		"attempts_per_minute", cfg.Auth.LoginAttemptsPerMinute,
		"burst", cfg.Auth.LoginBurst,
	)
	return &LoginLimiterHandle{
		KeyedRateLimiter: ratelimit.PerMinute(cfg.Auth.LoginAttemptsPerMinute, cfg.Auth.LoginBurst),
	}, nil
}
