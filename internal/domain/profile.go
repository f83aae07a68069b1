package domain

import (
	"maps"
	"strconv"
	"time"
)

// ProgressEntry is the saved position within one file.
type ProgressEntry struct {
	Position  float64   `json:"position"`
	Duration  float64   `json:"duration"` // 0 when unknown
	UpdatedAt time.Time `json:"updatedAt"`
}

// ProfileRecord is everything persisted for one listener.
// PlaybackRate and Volume are kept as the numeric strings the controls produced.
type ProfileRecord struct {
	PIN          string                   `json:"pin"`
	PlaybackRate string                   `json:"playbackRate,omitempty"`
	Volume       string                   `json:"volume,omitempty"`
	LastFileName string                   `json:"lastFileName,omitempty"`
	Progress     map[string]ProgressEntry `json:"progress"`
}

// NewProfileRecord returns the record created on a first login.
func NewProfileRecord(pin string) ProfileRecord {
	return ProfileRecord{PIN: pin, Progress: map[string]ProgressEntry{}}
}

// Rate returns the saved playback rate, or false when none is saved or it does not parse.
func (p ProfileRecord) Rate() (float64, bool) {
	if p.PlaybackRate == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.PlaybackRate, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// VolumeLevel returns the saved volume in [0, 1], or false when none is saved.
func (p ProfileRecord) VolumeLevel() (float64, bool) {
	if p.Volume == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.Volume, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, false
	}
	return v, true
}

// Clone returns a copy whose progress map can be mutated independently.
func (p ProfileRecord) Clone() ProfileRecord {
	c := p
	c.Progress = maps.Clone(p.Progress)
	if c.Progress == nil {
		c.Progress = map[string]ProgressEntry{}
	}
	return c
}

// ProfileCollection maps case-sensitive usernames to their records.
type ProfileCollection map[string]ProfileRecord

// ProfileUpdate lists the fields an upsert overwrites. Nil fields are left as stored.
// A non-nil Progress replaces the stored map wholesale.
type ProfileUpdate struct {
	PIN          *string
	PlaybackRate *string
	Volume       *string
	LastFileName *string
	Progress     map[string]ProgressEntry
}

// Apply shallow-merges the set fields of u onto p.
func (u ProfileUpdate) Apply(p ProfileRecord) ProfileRecord {
	out := p.Clone()
	if u.PIN != nil {
		out.PIN = *u.PIN
	}
	if u.PlaybackRate != nil {
		out.PlaybackRate = *u.PlaybackRate
	}
	if u.Volume != nil {
		out.Volume = *u.Volume
	}
	if u.LastFileName != nil {
		out.LastFileName = *u.LastFileName
	}
	if u.Progress != nil {
		out.Progress = maps.Clone(u.Progress)
	}
	return out
}

// FormatSetting renders a numeric control value the way it is persisted.
func FormatSetting(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
