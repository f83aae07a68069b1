// Package sse implements Server-Sent Events so a UI can mirror the player without polling.
package sse

import "time"

// EventType represents the type of SSE Event.
type EventType string

const (
	// EventPlayerState carries the full player view after a control or playback transition.
	EventPlayerState EventType = "player.state"
	// EventPlayerTimeUpdate carries the player view on each timeupdate.
	EventPlayerTimeUpdate EventType = "player.timeupdate"
	// EventSleepStatus carries the sleep timer status.
	EventSleepStatus EventType = "sleep.status"
	// EventResumeOffer announces a saved position for the file just loaded.
	EventResumeOffer EventType = "resume.offer"
	// EventSessionChanged is sent on sign-in and sign-out.
	EventSessionChanged EventType = "session.changed"
	// EventProfileUpdated is sent after a profile is written.
	EventProfileUpdated EventType = "profile.updated"
	// EventLibraryChanged is sent when files appear in or vanish from the library directory.
	EventLibraryChanged EventType = "library.changed"

	// EventHeartbeat represents a connection keepalive event.
	EventHeartbeat EventType = "heartbeat"
)

// Event represents an SSE event to be sent to clients.
type Event struct {
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	Type      EventType `json:"type"`
}

// PlayerStateData is the player view.
type PlayerStateData struct {
	FileName        string  `json:"file_name,omitempty"`
	Title           string  `json:"title,omitempty"`
	Meta            string  `json:"meta,omitempty"`
	CurrentTime     float64 `json:"current_time"`
	Duration        float64 `json:"duration"`
	CurrentLabel    string  `json:"current_label"`
	DurationLabel   string  `json:"duration_label"`
	ProgressPercent float64 `json:"progress_percent"`
	Paused          bool    `json:"paused"`
	PlayLabel       string  `json:"play_label"`
	PlaybackRate    float64 `json:"playback_rate"`
	Volume          float64 `json:"volume"`
}

// SleepStatusData is the sleep timer view.
type SleepStatusData struct {
	State     string `json:"state"`
	Remaining int    `json:"remaining"`
	Message   string `json:"message"`
	Selection string `json:"selection"`
	CanCancel bool   `json:"can_cancel"`
}

// ResumeOfferData describes a pending resume offer.
type ResumeOfferData struct {
	FileName string  `json:"file_name"`
	Position float64 `json:"position"`
	Duration float64 `json:"duration"`
	Message  string  `json:"message"`
}

// SessionChangedData describes the signed-in listener.
type SessionChangedData struct {
	Username string `json:"username,omitempty"`
	SignedIn bool   `json:"signed_in"`
	Label    string `json:"label"`
	FileHint string `json:"file_hint,omitempty"`
}

// ProfileUpdatedData names the profile that was written.
type ProfileUpdatedData struct {
	Username string `json:"username"`
}

func newEvent(t EventType, data any) Event {
	return Event{Type: t, Data: data, Timestamp: time.Now()}
}

// NewPlayerStateEvent creates a player.state event.
func NewPlayerStateEvent(data PlayerStateData) Event {
	return newEvent(EventPlayerState, data)
}

// NewPlayerTimeUpdateEvent creates a player.timeupdate event.
func NewPlayerTimeUpdateEvent(data PlayerStateData) Event {
	return newEvent(EventPlayerTimeUpdate, data)
}

// NewSleepStatusEvent creates a sleep.status event.
func NewSleepStatusEvent(data SleepStatusData) Event {
	return newEvent(EventSleepStatus, data)
}

// NewResumeOfferEvent creates a resume.offer event.
func NewResumeOfferEvent(data ResumeOfferData) Event {
	return newEvent(EventResumeOffer, data)
}

// NewSessionChangedEvent creates a session.changed event.
func NewSessionChangedEvent(data SessionChangedData) Event {
	return newEvent(EventSessionChanged, data)
}

// NewProfileUpdatedEvent creates a profile.updated event.
func NewProfileUpdatedEvent(username string) Event {
	return newEvent(EventProfileUpdated, ProfileUpdatedData{Username: username})
}

// NewLibraryChangedEvent creates a library.changed event.
func NewLibraryChangedEvent() Event {
	return newEvent(EventLibraryChanged, map[string]any{})
}

// NewHeartbeatEvent creates a heartbeat event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, map[string]any{})
}
