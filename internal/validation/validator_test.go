package validation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/listenupapp/listenup-player/internal/errors"
	"github.com/listenupapp/listenup-player/internal/validation"
)

type volumeRequest struct {
	Volume float64 `json:"volume" validate:"gte=0,lte=1"`
	File   string  `json:"file_name,omitempty" validate:"required,max=255"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	assert.NoError(t, v.Validate(volumeRequest{Volume: 0.5, File: "book.mp3"}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name      string
		req       volumeRequest
		wantField string
		wantMsg   string
	}{
		{"volume too high", volumeRequest{Volume: 1.5, File: "a.mp3"}, "volume", "must be less than or equal to 1"},
		{"volume negative", volumeRequest{Volume: -0.1, File: "a.mp3"}, "volume", "must be greater than or equal to 0"},
		{"missing file", volumeRequest{Volume: 0.5}, "file_name", "is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))

			var domainErr *errors.Error
			require.True(t, errors.As(err, &domainErr))
			details, ok := domainErr.Details.(map[string]string)
			require.True(t, ok)
			assert.Equal(t, tt.wantMsg, details[tt.wantField])
		})
	}
}

func TestValidator_Var(t *testing.T) {
	v := validation.New()

	assert.NoError(t, v.Var("selection", "off", "oneof=off 900 1800"))

	err := v.Var("selection", "60", "oneof=off 900 1800")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrValidation))
	assert.Contains(t, err.Error(), "selection must be one of")
}
