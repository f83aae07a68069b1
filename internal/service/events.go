// Package service holds the player's behaviour: the login gate, resume tracking
// and the controls a UI drives. It owns no I/O of its own; storage, the media
// primitive and the event stream are injected.
package service

import "github.com/listenupapp/listenup-player/internal/sse"

// EventSink receives events for connected UIs. *sse.Manager implements it.
type EventSink interface {
	Emit(event sse.Event)
}

// NoopSink discards events.
type NoopSink struct{}

// Emit implements EventSink.
func (NoopSink) Emit(sse.Event) {}
