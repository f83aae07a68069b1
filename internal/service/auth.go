package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/listenupapp/listenup-player/internal/domain"
	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/metrics"
	"github.com/listenupapp/listenup-player/internal/playback"
	"github.com/listenupapp/listenup-player/internal/ratelimit"
	"github.com/listenupapp/listenup-player/internal/session"
	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

// User-facing login messages.
const (
	MessageEnterUsername = "Please enter a username."
	MessageIncorrectPin  = "Incorrect PIN for this profile."
	MessageTooManyTries  = "Too many attempts for this profile. Try again in a minute."
)

// LoginRequest contains the credentials typed into the login form.
type LoginRequest struct {
	Username string `json:"username"`
	PIN      string `json:"pin"`
}

// LoginResult describes the session a successful login established.
type LoginResult struct {
	Username     string  `json:"username"`
	SessionID    string  `json:"session_id"`
	Created      bool    `json:"created"`
	LastFileName string  `json:"last_file_name,omitempty"`
	ResumeHint   string  `json:"resume_hint,omitempty"`
	FileHint     string  `json:"file_hint,omitempty"`
	PlaybackRate float64 `json:"playback_rate"`
	Volume       float64 `json:"volume"`
}

// SessionView is what the UI shows about the signed-in listener.
type SessionView struct {
	Username  string `json:"username,omitempty"`
	SignedIn  bool   `json:"signed_in"`
	Label     string `json:"label"`
	FileName  string `json:"file_name,omitempty"`
	FileHint  string `json:"file_hint,omitempty"`
	HasOffer  bool   `json:"has_resume_offer"`
	SessionID string `json:"session_id,omitempty"`
}

// AuthService gates the player behind local profiles.
// PINs are compared in plain text; profiles with an empty PIN accept any PIN.
type AuthService struct {
	profiles *store.ProfileStore
	session  *session.State
	facade   playback.Facade
	limiter  *ratelimit.KeyedRateLimiter
	events   EventSink
	logger   *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	profiles *store.ProfileStore,
	state *session.State,
	facade playback.Facade,
	limiter *ratelimit.KeyedRateLimiter,
	events EventSink,
	logger *slog.Logger,
) *AuthService {
	if events == nil {
		events = NoopSink{}
	}
	return &AuthService{
		profiles: profiles,
		session:  state,
		facade:   facade,
		limiter:  limiter,
		events:   events,
		logger:   logger,
	}
}

// Login signs a listener in, creating their profile on first use.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	username := strings.TrimSpace(req.Username)
	pin := strings.TrimSpace(req.PIN)

	if username == "" {
		metrics.LoginsTotal.WithLabelValues("invalid_username").Inc()
		return nil, errors.InvalidUsername(MessageEnterUsername)
	}

	if s.limiter != nil && s.limiter.Exhausted(username) {
		metrics.LoginsTotal.WithLabelValues("rate_limited").Inc()
		s.logger.Warn("login rate limited", "username", username)
		return nil, errors.RateLimited(MessageTooManyTries)
	}

	mismatch := false
	rec, created, err := s.profiles.Modify(ctx, username, func(current domain.ProfileRecord, exists bool) (domain.ProfileUpdate, bool) {
		if exists {
			mismatch = current.PIN != "" && current.PIN != pin
			return domain.ProfileUpdate{}, false
		}
		return domain.ProfileUpdate{PIN: &pin, Progress: map[string]domain.ProgressEntry{}}, true
	})
	if err != nil {
		return nil, err
	}

	if mismatch {
		if s.limiter != nil {
			s.limiter.Allow(username)
		}
		metrics.LoginsTotal.WithLabelValues("incorrect_pin").Inc()
		s.logger.Info("login rejected", "username", username, "reason", "incorrect_pin")
		return nil, errors.IncorrectPin(MessageIncorrectPin)
	}

	if s.limiter != nil {
		s.limiter.Reset(username)
	}

	result, err := s.begin(ctx, username, rec)
	if err != nil {
		return nil, err
	}
	result.Created = created

	if created {
		metrics.LoginsTotal.WithLabelValues("created").Inc()
		s.logger.Info("profile created", "username", username)
	} else {
		metrics.LoginsTotal.WithLabelValues("ok").Inc()
	}
	return result, nil
}

// AutoLogin resumes the last signed-in listener without a PIN.
// It reports false when no last user is recorded or their profile is gone.
func (s *AuthService) AutoLogin(ctx context.Context) (*LoginResult, bool, error) {
	username, err := s.profiles.LastUser(ctx)
	if err != nil {
		return nil, false, err
	}
	if username == "" {
		return nil, false, nil
	}

	rec, ok, err := s.profiles.Get(ctx, username)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		s.logger.Debug("last user has no profile, staying signed out", "username", username)
		return nil, false, nil
	}

	result, err := s.begin(ctx, username, rec)
	if err != nil {
		return nil, false, err
	}
	metrics.LoginsTotal.WithLabelValues("auto").Inc()
	return result, true, nil
}

// SwitchUser signs the current listener out. Profiles and the last-user record are kept.
func (s *AuthService) SwitchUser(_ context.Context) {
	prev := s.session.User()
	s.session.End()
	if prev != "" {
		s.logger.Info("signed out", "username", prev)
	}
	s.events.Emit(sse.NewSessionChangedEvent(s.view(domain.ProfileRecord{}).data()))
}

// Current describes the signed-in listener.
func (s *AuthService) Current(ctx context.Context) (SessionView, error) {
	user := s.session.User()
	if user == "" {
		return s.view(domain.ProfileRecord{}), nil
	}
	rec, _, err := s.profiles.Get(ctx, user)
	if err != nil {
		return SessionView{}, err
	}
	return s.view(rec), nil
}

// SessionEvent returns the current session as a session.changed event.
func (s *AuthService) SessionEvent(ctx context.Context) (sse.Event, error) {
	view, err := s.Current(ctx)
	if err != nil {
		return sse.Event{}, err
	}
	return sse.NewSessionChangedEvent(view.data()), nil
}

func (s *AuthService) begin(ctx context.Context, username string, rec domain.ProfileRecord) (*LoginResult, error) {
	sessionID := s.session.Begin(username)
	if err := s.profiles.SetLastUser(ctx, username); err != nil {
		return nil, err
	}

	if rate, ok := rec.Rate(); ok {
		s.facade.SetPlaybackRate(rate)
	}
	if level, ok := rec.VolumeLevel(); ok {
		s.facade.SetVolume(level)
	}

	result := &LoginResult{
		Username:     username,
		SessionID:    sessionID,
		LastFileName: rec.LastFileName,
		PlaybackRate: s.facade.PlaybackRate(),
		Volume:       s.facade.Volume(),
	}
	if rec.LastFileName != "" {
		result.ResumeHint = resumeHint(rec.LastFileName)
		result.FileHint = fileHint(rec.LastFileName)
	}

	s.logger.Info("signed in", "username", username, "session_id", sessionID)
	s.events.Emit(sse.NewSessionChangedEvent(s.view(rec).data()))
	return result, nil
}

func (s *AuthService) view(rec domain.ProfileRecord) SessionView {
	snap := s.session.Snapshot()
	v := SessionView{
		Username:  snap.User,
		SignedIn:  snap.SignedIn,
		Label:     "Not signed in",
		FileName:  snap.FileName,
		HasOffer:  snap.Offer != nil,
		SessionID: snap.ID,
	}
	if snap.SignedIn {
		v.Label = "Signed in as " + snap.User
		if rec.LastFileName != "" {
			v.FileHint = fileHint(rec.LastFileName)
		}
	}
	return v
}

func (v SessionView) data() sse.SessionChangedData {
	return sse.SessionChangedData{Username: v.Username, SignedIn: v.SignedIn, Label: v.Label, FileHint: v.FileHint}
}

func resumeHint(fileName string) string {
	return fmt.Sprintf("Last time you listened to %s. Choose that file to resume.", fileName)
}

func fileHint(fileName string) string {
	return "Last file: " + fileName
}
