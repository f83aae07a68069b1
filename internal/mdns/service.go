// Package mdns advertises the player on the local network through the Avahi daemon.
package mdns

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/holoplot/go-avahi"
)

const (
	// ServiceType is the DNS-SD service type for ListenUp players.
	ServiceType = "_listenup-player._tcp"

	// APIVersion is advertised in the TXT record.
	APIVersion = "v1"
)

// Instance describes what gets advertised.
type Instance struct {
	Name    string
	Version string
	Port    int
}

// TXTRecords builds the TXT record entries for inst.
func TXTRecords(inst Instance) [][]byte {
	return [][]byte{
		[]byte("name=" + inst.Name),
		[]byte("version=" + inst.Version),
		[]byte("api=" + APIVersion),
		[]byte("path=/api/" + APIVersion),
	}
}

// InstanceName picks the advertised instance name, falling back to the hostname.
func InstanceName(inst Instance) string {
	if inst.Name != "" {
		return inst.Name
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		return "listenup-player"
	}
	return host
}

// Service manages one Avahi entry group.
type Service struct {
	conn   *dbus.Conn
	server *avahi.Server
	group  *avahi.EntryGroup
	logger *slog.Logger
	mu     sync.Mutex
}

// NewService creates a new mDNS service.
func NewService(logger *slog.Logger) *Service {
	return &Service{logger: logger}
}

// Start publishes the service. It is safe to call again; the previous entry is replaced.
// Errors are usually non-fatal: containers often have no system bus.
func (s *Service) Start(inst Instance) error {
	if inst.Port <= 0 || inst.Port > 65535 {
		return fmt.Errorf("invalid port %d", inst.Port)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()

	conn, err := dbus.SystemBus()
	if err != nil {
		return fmt.Errorf("connect system bus: %w", err)
	}

	server, err := avahi.ServerNew(conn)
	if err != nil {
		return fmt.Errorf("connect avahi: %w", err)
	}

	group, err := server.EntryGroupNew()
	if err != nil {
		server.Close()
		return fmt.Errorf("create entry group: %w", err)
	}

	name := InstanceName(inst)
	err = group.AddService(
		avahi.InterfaceUnspec,
		avahi.ProtoUnspec,
		0,
		name,
		ServiceType,
		"local",
		"",
		uint16(inst.Port),
		TXTRecords(inst),
	)
	if err != nil {
		server.EntryGroupFree(group)
		server.Close()
		return fmt.Errorf("add service: %w", err)
	}

	if err := group.Commit(); err != nil {
		server.EntryGroupFree(group)
		server.Close()
		return fmt.Errorf("commit entry group: %w", err)
	}

	s.conn = conn
	s.server = server
	s.group = group

	s.logger.Info("mDNS advertisement started",
		"service", ServiceType,
		"port", inst.Port,
		"name", name,
	)
	return nil
}

// Stop withdraws the advertisement. Safe to call multiple times or if not started.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopLocked() {
		s.logger.Info("mDNS advertisement stopped")
	}
}

func (s *Service) stopLocked() bool {
	if s.server == nil {
		return false
	}
	if s.group != nil {
		if err := s.group.Reset(); err != nil {
			s.logger.Debug("reset entry group", "error", err)
		}
		s.server.EntryGroupFree(s.group)
	}
	s.server.Close()
	s.server = nil
	s.group = nil
	s.conn = nil
	return true
}
