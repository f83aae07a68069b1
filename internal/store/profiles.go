package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/kv"
	"github.com/listenupapp/listenup-player/internal/metrics"
	"github.com/listenupapp/listenup-player/internal/timefmt"
)

// Storage keys. They match the names the browser player used so exported blobs stay interchangeable.
const (
	ProfilesKey = "audiobookProfiles"
	LastUserKey = "audiobookLastUser"
)

// ProfileEmitter is notified after a profile is written.
type ProfileEmitter interface {
	EmitProfileUpdated(username string)
}

// NoopEmitter is a ProfileEmitter that does nothing.
type NoopEmitter struct{}

// EmitProfileUpdated is a no-op.
func (NoopEmitter) EmitProfileUpdated(string) {}

// ProfileStore persists the profile collection as one JSON blob in a kv.Store.
// Every mutation rewrites the whole blob.
type ProfileStore struct {
	kv      kv.Store
	logger  *slog.Logger
	emitter ProfileEmitter

	// mu serializes read-modify-write cycles within this process.
	mu sync.Mutex
}

// NewProfileStore creates a ProfileStore over the given storage area.
func NewProfileStore(area kv.Store, logger *slog.Logger) *ProfileStore {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ProfileStore{
		kv:      area,
		logger:  logger,
		emitter: NoopEmitter{},
	}
}

// SetEmitter sets the emitter used for change notifications.
func (s *ProfileStore) SetEmitter(e ProfileEmitter) {
	if e == nil {
		e = NoopEmitter{}
	}
	s.emitter = e
}

// Load returns the stored collection. A missing or malformed blob yields an
// empty collection; the malformed case is logged and counted but not returned.
func (s *ProfileStore) Load(ctx context.Context) (domain.ProfileCollection, error) {
	start := time.Now()
	defer func() {
		metrics.StorageOperationDuration.WithLabelValues("load").Observe(time.Since(start).Seconds())
	}()

	raw, ok, err := s.kv.Get(ctx, ProfilesKey)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "failed to read profiles")
	}
	if !ok || raw == "" {
		return domain.ProfileCollection{}, nil
	}

	profiles, err := DecodeProfiles([]byte(raw))
	if err != nil {
		metrics.StorageCorruptTotal.Inc()
		s.logger.Warn("stored profiles are malformed, starting empty",
			"key", ProfilesKey,
			"error", errors.CorruptStorage(ProfilesKey, err),
		)
		return domain.ProfileCollection{}, nil
	}
	return profiles, nil
}

// SaveAll replaces the stored collection.
func (s *ProfileStore) SaveAll(ctx context.Context, profiles domain.ProfileCollection) error {
	start := time.Now()
	defer func() {
		metrics.StorageOperationDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	}()

	data, err := EncodeProfiles(profiles)
	if err != nil {
		return errors.Wrap(err, errors.CodeInternal, "failed to encode profiles")
	}
	if err := s.kv.Set(ctx, ProfilesKey, string(data)); err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "failed to write profiles")
	}
	return nil
}

// Get returns the record for username.
func (s *ProfileStore) Get(ctx context.Context, username string) (domain.ProfileRecord, bool, error) {
	profiles, err := s.Load(ctx)
	if err != nil {
		return domain.ProfileRecord{}, false, err
	}
	rec, ok := profiles[username]
	return rec, ok, nil
}

// Upsert merges update onto the record for username, creating {pin:"", progress:{}} first if absent.
func (s *ProfileStore) Upsert(ctx context.Context, username string, update domain.ProfileUpdate) (domain.ProfileRecord, error) {
	rec, _, err := s.Modify(ctx, username, func(domain.ProfileRecord, bool) (domain.ProfileUpdate, bool) {
		return update, true
	})
	return rec, err
}

// Modify runs a read-modify-write cycle for one profile under the store lock.
// fn receives the current record (or a fresh default) and whether it existed;
// returning false skips the write. The returned record is what is stored afterwards.
func (s *ProfileStore) Modify(
	ctx context.Context,
	username string,
	fn func(current domain.ProfileRecord, exists bool) (domain.ProfileUpdate, bool),
) (domain.ProfileRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles, err := s.Load(ctx)
	if err != nil {
		return domain.ProfileRecord{}, false, err
	}

	current, exists := profiles[username]
	if !exists {
		current = domain.NewProfileRecord("")
	}

	update, write := fn(current.Clone(), exists)
	if !write {
		return current, false, nil
	}

	next := update.Apply(current)
	profiles[username] = next
	if err := s.SaveAll(ctx, profiles); err != nil {
		return domain.ProfileRecord{}, false, err
	}

	s.emitter.EmitProfileUpdated(username)
	return next, true, nil
}

// LastUser returns the most recently signed-in username, or "" when none is recorded.
func (s *ProfileStore) LastUser(ctx context.Context) (string, error) {
	v, _, err := s.kv.Get(ctx, LastUserKey)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeUnavailable, "failed to read last user")
	}
	return v, nil
}

// SetLastUser records username as the most recently signed-in user.
func (s *ProfileStore) SetLastUser(ctx context.Context, username string) error {
	if err := s.kv.Set(ctx, LastUserKey, username); err != nil {
		return errors.Wrap(err, errors.CodeUnavailable, "failed to write last user")
	}
	return nil
}

// Export returns the raw stored blob, normalized through a decode/encode pass.
func (s *ProfileStore) Export(ctx context.Context) ([]byte, error) {
	profiles, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	return EncodeProfiles(profiles)
}

// Import replaces the stored collection with blob. A malformed blob is rejected.
func (s *ProfileStore) Import(ctx context.Context, blob []byte) (int, error) {
	profiles, err := DecodeProfiles(blob)
	if err != nil {
		return 0, errors.Validationf("profiles blob is malformed: %v", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.SaveAll(ctx, profiles); err != nil {
		return 0, err
	}
	return len(profiles), nil
}

// DecodeProfiles parses a stored blob and fills in missing progress maps.
func DecodeProfiles(data []byte) (domain.ProfileCollection, error) {
	var profiles domain.ProfileCollection
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	if profiles == nil {
		return nil, fmt.Errorf("expected an object, got null")
	}
	for name, rec := range profiles {
		if rec.Progress == nil {
			rec.Progress = map[string]domain.ProgressEntry{}
			profiles[name] = rec
		}
	}
	return profiles, nil
}

// EncodeProfiles serializes a collection. Non-finite positions and durations are written as 0.
func EncodeProfiles(profiles domain.ProfileCollection) ([]byte, error) {
	if profiles == nil {
		profiles = domain.ProfileCollection{}
	}
	clean := make(domain.ProfileCollection, len(profiles))
	for name, rec := range profiles {
		rec = rec.Clone()
		for file, entry := range rec.Progress {
			entry.Position = timefmt.OrZero(entry.Position)
			entry.Duration = timefmt.OrZero(entry.Duration)
			rec.Progress[file] = entry
		}
		clean[name] = rec
	}
	return json.Marshal(clean, json.Deterministic(true))
}
