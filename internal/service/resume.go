package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/listenupapp/listenup-player/internal/clock"
	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/metrics"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/session"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
	"github.com/listenupapp/listenup-player/internal/timefmt"
)

// DefaultSaveEvery is how many timeupdate notifications pass between progress saves.
const DefaultSaveEvery = 10

// Snapshot triggers, used as metric labels.
const (
	triggerTick  = "tick"
	triggerPause = "pause"
	triggerEnded = "ended"
)

// ResumeOffer is a saved position the listener can jump back to.
type ResumeOffer struct {
	FileName string  `json:"file_name"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Message  string  `json:"message"`
}

// ResumeTracker mirrors the playhead of the current file into the signed-in profile.
type ResumeTracker struct {
	profiles  *store.ProfileStore
	session   *session.State
	facade    playback.Facade
	clock     clock.Clock
	saveEvery int
	events    EventSink
	logger    *slog.Logger
}

// NewResumeTracker creates a tracker that saves every saveEvery ticks.
func NewResumeTracker(
	profiles *store.ProfileStore,
	state *session.State,
	facade playback.Facade,
	clk clock.Clock,
	saveEvery int,
	events EventSink,
	logger *slog.Logger,
) *ResumeTracker {
	if saveEvery < 1 {
		saveEvery = DefaultSaveEvery
	}
	if events == nil {
		events = NoopSink{}
	}
	return &ResumeTracker{
		profiles:  profiles,
		session:   state,
		facade:    facade,
		clock:     clk,
		saveEvery: saveEvery,
		events:    events,
		logger:    logger,
	}
}

// OnFileLoaded makes fileName the current file and returns the saved position for it, if any.
// The profile's lastFileName is updated immediately.
func (t *ResumeTracker) OnFileLoaded(ctx context.Context, fileName string) (*ResumeOffer, error) {
	t.session.SetFile(fileName)

	user := t.session.User()
	if user == "" {
		return nil, nil
	}

	rec, ok, err := t.profiles.Get(ctx, user)
	if err != nil {
		return nil, err
	}

	var offer *ResumeOffer
	if entry, found := rec.Progress[fileName]; ok && found {
		t.session.SetOffer(session.ResumeOffer{
			FileName: fileName,
			Position: entry.Position,
			Duration: entry.Duration,
		})
		offer = &ResumeOffer{
			FileName: fileName,
			Position: entry.Position,
			Duration: entry.Duration,
			Message:  offerMessage(entry.Position, entry.Duration),
		}
	}

	if _, err := t.profiles.Upsert(ctx, user, domain.ProfileUpdate{LastFileName: &fileName}); err != nil {
		t.logger.Warn("failed to record last file", "username", user, "file", fileName, "error", err)
	}

	if offer != nil {
		t.events.Emit(sse.NewResumeOfferEvent(sse.ResumeOfferData(*offer)))
	}
	return offer, nil
}

// Offer returns the pending offer without consuming it.
func (t *ResumeTracker) Offer() (*ResumeOffer, bool) {
	snap := t.session.Snapshot()
	if snap.Offer == nil {
		return nil, false
	}
	o := snap.Offer
	return &ResumeOffer{
		FileName: o.FileName,
		Position: o.Position,
		Duration: o.Duration,
		Message:  offerMessage(o.Position, o.Duration),
	}, true
}

// AcceptResume seeks to the offered position and clears the offer.
// It reports false when there was nothing to accept.
func (t *ResumeTracker) AcceptResume(_ context.Context) bool {
	offer, ok := t.session.TakeOffer()
	if !ok {
		return false
	}
	if offer.FileName != t.session.FileName() {
		return false
	}
	t.facade.SetCurrentTime(offer.Position)
	t.logger.Debug("resumed", "file", offer.FileName, "position", offer.Position)
	return true
}

// OnTick counts one timeupdate and saves progress on every saveEvery-th.
func (t *ResumeTracker) OnTick(ctx context.Context, currentTime, duration float64) {
	count, user, fileName := t.session.Tick()
	if count%t.saveEvery != 0 {
		return
	}
	t.snapshot(ctx, triggerTick, user, fileName, currentTime, duration)
}

// OnPause saves progress.
func (t *ResumeTracker) OnPause(ctx context.Context, currentTime, duration float64) {
	t.snapshot(ctx, triggerPause, t.session.User(), t.session.FileName(), currentTime, duration)
}

// OnEnded saves progress.
func (t *ResumeTracker) OnEnded(ctx context.Context, currentTime, duration float64) {
	t.snapshot(ctx, triggerEnded, t.session.User(), t.session.FileName(), currentTime, duration)
}

// snapshot writes progress[fileName] for user. Profiles that do not exist are
// left alone, and storage failures are logged so the next trigger retries.
func (t *ResumeTracker) snapshot(ctx context.Context, trigger, user, fileName string, currentTime, duration float64) {
	if user == "" || fileName == "" {
		return
	}

	entry := domain.ProgressEntry{
		Position:  timefmt.OrZero(currentTime),
		Duration:  timefmt.OrZero(duration),
		UpdatedAt: t.clock.Now().UTC(),
	}

	_, wrote, err := t.profiles.Modify(ctx, user, func(current domain.ProfileRecord, exists bool) (domain.ProfileUpdate, bool) {
		if !exists {
			return domain.ProfileUpdate{}, false
		}
		progress := current.Progress
		progress[fileName] = entry
		return domain.ProfileUpdate{Progress: progress, LastFileName: &fileName}, true
	})
	if err != nil {
		metrics.ProgressSnapshotsTotal.WithLabelValues(trigger, "error").Inc()
		t.logger.Warn("failed to save progress",
			"username", user,
			"file", fileName,
			"trigger", trigger,
			"error", err,
		)
		return
	}
	if wrote {
		metrics.ProgressSnapshotsTotal.WithLabelValues(trigger, "ok").Inc()
	}
}

func offerMessage(position, duration float64) string {
	return fmt.Sprintf("Saved position at %s of %s.", timefmt.Format(position), timefmt.Format(duration))
}
