package kv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/listenupapp/listenup-player/internal/config"
)

const redisPingTimeout = 5 * time.Second

// Open creates the Store selected by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Driver {
	case config.DriverBadger:
		return OpenBadger(cfg.Path, logger)
	case config.DriverSQLite:
		return OpenSQLite(cfg.Path, logger)
	case config.DriverRedis:
		return ConnectRedis(ctx, RedisConfig{Addr: cfg.RedisAddr, DB: cfg.RedisDB}, redisPingTimeout, logger)
	case config.DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
