// Package session holds the transient state of the signed-in listener.
// Nothing here is persisted; the resume tracker mirrors what matters into the profile store.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/listenup-player/internal/clock"
)

// ResumeOffer is a saved position waiting for the listener to accept it.
type ResumeOffer struct {
	FileName string
	Position float64
	Duration float64
}

// Snapshot is a consistent copy of the session.
type Snapshot struct {
	ID         string
	User       string
	FileName   string
	Ticks      int
	Offer      *ResumeOffer
	StartedAt  time.Time
	SignedIn   bool
	FileLoaded bool
}

// State is the current session.
type State struct {
	clock     clock.Clock
	mu        sync.Mutex
	id        string
	user      string
	fileName  string
	ticks     int
	offer     *ResumeOffer
	startedAt time.Time
}

// New returns a signed-out state. Session start times are read from c.
func New(c clock.Clock) *State {
	return &State{clock: c}
}

// Begin starts a new session for user, resetting the tick counter and any pending offer.
// The loaded file survives since the media stays loaded across sign-ins.
func (s *State) Begin(user string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = uuid.NewString()
	s.user = user
	s.ticks = 0
	s.offer = nil
	s.startedAt = s.clock.Now()
	return s.id
}

// End clears the signed-in user along with the tick counter and pending offer.
func (s *State) End() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.id = ""
	s.user = ""
	s.ticks = 0
	s.offer = nil
	s.startedAt = time.Time{}
}

// User returns the signed-in username, or "".
func (s *State) User() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

// FileName returns the current file name, or "".
func (s *State) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fileName
}

// SetFile records name as the current file and drops any pending offer.
func (s *State) SetFile(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fileName = name
	s.offer = nil
}

// SetOffer stores a pending resume offer.
func (s *State) SetOffer(offer ResumeOffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offer = &offer
}

// TakeOffer removes and returns the pending offer.
func (s *State) TakeOffer() (ResumeOffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offer == nil {
		return ResumeOffer{}, false
	}
	o := *s.offer
	s.offer = nil
	return o, true
}

// Tick increments the tick counter and returns the new count along with the
// user and file it was counted against.
func (s *State) Tick() (count int, user, fileName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ticks++
	return s.ticks, s.user, s.fileName
}

// Snapshot returns a copy of the session.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := Snapshot{
		ID:         s.id,
		User:       s.user,
		FileName:   s.fileName,
		Ticks:      s.ticks,
		StartedAt:  s.startedAt,
		SignedIn:   s.user != "",
		FileLoaded: s.fileName != "",
	}
	if s.offer != nil {
		o := *s.offer
		snap.Offer = &o
	}
	return snap
}
