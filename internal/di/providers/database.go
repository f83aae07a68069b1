package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-player/internal/config"
	"github.com/listenupapp/listenup-player/internal/kv"
	"github.com/listenupapp/listenup-player/internal/logger"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

// SSEManagerHandle wraps the SSE manager with its context for lifecycle management.
type SSEManagerHandle struct {
	*sse.Manager
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (h *SSEManagerHandle) Shutdown() error {
	h.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return h.Manager.Shutdown(ctx)
}

// ProvideSSEManager provides the server-sent events manager.
func ProvideSSEManager(i do.Injector) (*SSEManagerHandle, error) {
	log := do.MustInvoke[*logger.Logger](i)

	manager := sse.NewManager(log.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	log.Info("SSE manager started")

	return &SSEManagerHandle{
		Manager: manager,
		cancel:  cancel,
	}, nil
}

// KVHandle wraps the key-value area with shutdown capability.
type KVHandle struct {
	kv.Store
}

// Shutdown implements do.Shutdownable.
func (h *KVHandle) Shutdown() error {
	return h.Close()
}

// ProvideKV opens the storage driver selected in the configuration.
func ProvideKV(i do.Injector) (*KVHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	area, err := kv.Open(context.Background(), cfg.Storage, log.Logger)
	if err != nil {
		return nil, err
	}

	log.Info("Storage initialized", "driver", cfg.Storage.Driver, "path", cfg.Storage.Path)

	return &KVHandle{Store: area}, nil
}

// ProvideProfileStore provides the profile store. Profile writes are broadcast over SSE.
func ProvideProfileStore(i do.Injector) (*store.ProfileStore, error) {
	log := do.MustInvoke[*logger.Logger](i)
	area := do.MustInvoke[*KVHandle](i)
	sseHandle := do.MustInvoke[*SSEManagerHandle](i)

	profiles := store.NewProfileStore(area.Store, log.Logger)
	profiles.SetEmitter(sseHandle.Manager)

	return profiles, nil
}
