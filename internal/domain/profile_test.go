package domain

import (
	"encoding/json/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestProfileUpdate_Apply(t *testing.T) {
	base := ProfileRecord{
		PIN:          "1234",
		PlaybackRate: "1.5",
		Progress:     map[string]ProgressEntry{"a.mp3": {Position: 10}},
	}

	got := ProfileUpdate{Volume: ptr("0.4"), LastFileName: ptr("b.mp3")}.Apply(base)

	assert.Equal(t, "1234", got.PIN)
	assert.Equal(t, "1.5", got.PlaybackRate)
	assert.Equal(t, "0.4", got.Volume)
	assert.Equal(t, "b.mp3", got.LastFileName)
	assert.Equal(t, 10.0, got.Progress["a.mp3"].Position)
}

func TestProfileUpdate_ProgressReplacesWholesale(t *testing.T) {
	base := ProfileRecord{Progress: map[string]ProgressEntry{"a.mp3": {Position: 10}}}

	got := ProfileUpdate{Progress: map[string]ProgressEntry{"b.mp3": {Position: 5}}}.Apply(base)

	assert.NotContains(t, got.Progress, "a.mp3")
	assert.Contains(t, got.Progress, "b.mp3")
	assert.Contains(t, base.Progress, "a.mp3", "input record must not be mutated")
}

func TestProfileRecord_Settings(t *testing.T) {
	r := ProfileRecord{PlaybackRate: "1.25", Volume: "0"}

	rate, ok := r.Rate()
	require.True(t, ok)
	assert.Equal(t, 1.25, rate)

	vol, ok := r.VolumeLevel()
	require.True(t, ok, "zero volume is a saved setting")
	assert.Zero(t, vol)

	_, ok = ProfileRecord{}.Rate()
	assert.False(t, ok)
	_, ok = ProfileRecord{Volume: "loud"}.VolumeLevel()
	assert.False(t, ok)
}

func TestProfileCollection_BrowserShape(t *testing.T) {
	blob := `{"alice":{"pin":"","playbackRate":"1.5","volume":"0.8","lastFileName":"book.mp3",
		"progress":{"book.mp3":{"position":120,"duration":3600,"updatedAt":"2024-03-01T10:00:00.000Z"}}}}`

	var c ProfileCollection
	require.NoError(t, json.Unmarshal([]byte(blob), &c))

	alice := c["alice"]
	assert.Equal(t, "book.mp3", alice.LastFileName)
	assert.Equal(t, 120.0, alice.Progress["book.mp3"].Position)
	assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), alice.Progress["book.mp3"].UpdatedAt.UTC())
}

func TestNewProfileRecord_EncodesEmptyProgress(t *testing.T) {
	data, err := json.Marshal(NewProfileRecord("42"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"pin":"42","progress":{}}`, string(data))
}

func TestFormatSetting(t *testing.T) {
	assert.Equal(t, "1.5", FormatSetting(1.5))
	assert.Equal(t, "1", FormatSetting(1))
	assert.Equal(t, "0.35", FormatSetting(0.35))
}
