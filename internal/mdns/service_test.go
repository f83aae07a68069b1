package mdns

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstants(t *testing.T) {
	assert.Equal(t, "_listenup-player._tcp", ServiceType)
	assert.Equal(t, "v1", APIVersion)
}

func TestTXTRecords(t *testing.T) {
	txt := TXTRecords(Instance{Name: "Kitchen", Version: "1.0.0", Port: 8484})

	var got []string
	for _, r := range txt {
		got = append(got, string(r))
	}
	assert.Equal(t, []string{"name=Kitchen", "version=1.0.0", "api=v1", "path=/api/v1"}, got)
}

func TestInstanceName(t *testing.T) {
	assert.Equal(t, "Kitchen", InstanceName(Instance{Name: "Kitchen"}))
	assert.NotEmpty(t, InstanceName(Instance{}))
}

func TestStart_InvalidPort(t *testing.T) {
	s := NewService(slog.New(slog.DiscardHandler))
	assert.Error(t, s.Start(Instance{Name: "x", Port: 0}))
	assert.Error(t, s.Start(Instance{Name: "x", Port: 70000}))
}

func TestStop_NotStarted(t *testing.T) {
	s := NewService(slog.New(slog.DiscardHandler))
	assert.NotPanics(t, s.Stop)
	assert.NotPanics(t, s.Stop)
}
