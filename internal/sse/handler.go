package sse

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// EventConnected is the first frame on every stream.
const EventConnected EventType = "connected"

const (
	writeDeadline = 60 * time.Second
	retryMillis   = 3000
)

// ConnectedData is the payload of the connected frame.
type ConnectedData struct {
	ClientID string `json:"client_id"`
	Message  string `json:"message"`
}

// ReplayFunc returns the events a freshly connected client needs to draw the
// current player, sleep timer and session without waiting for the next change.
type ReplayFunc func(ctx context.Context) []Event

// Handler streams player events at GET /api/v1/events.
type Handler struct {
	manager *Manager
	replay  ReplayFunc
	logger  *slog.Logger
}

// NewHandler creates a new SSE Handler. replay may be nil.
func NewHandler(manager *Manager, replay ReplayFunc, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		replay:  replay,
		logger:  logger,
	}
}

// stream writes numbered frames to one client.
type stream struct {
	w    http.ResponseWriter
	rc   *http.ResponseController
	next uint64
}

// ServeHTTP handles the SSE connection.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	if ctx.Err() != nil {
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	s := &stream{w: w, rc: http.NewResponseController(w)}
	if err := s.rc.Flush(); err != nil {
		h.logger.Error("failed to flush headers", "error", err)
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	// Register before replaying so nothing emitted in between is lost.
	client, err := h.manager.Connect()
	if err != nil {
		h.logger.Error("failed to register SSE client", "error", err)
		return
	}
	defer h.manager.Disconnect(client.ID)

	log := h.logger.With("client_id", client.ID)

	if _, err := fmt.Fprintf(w, "retry: %d\n\n", retryMillis); err != nil {
		return
	}
	hello := ConnectedData{ClientID: client.ID, Message: "player event stream established"}
	if err := s.send(EventConnected, hello); err != nil {
		log.Warn("failed to send connected frame", "error", err)
		return
	}

	if h.replay != nil {
		for _, event := range h.replay(ctx) {
			if err := s.send(event.Type, event); err != nil {
				log.Debug("client gone during replay", "error", err)
				return
			}
		}
	}

	for {
		select {
		case event, ok := <-client.EventChan:
			if !ok {
				return
			}
			if err := s.send(event.Type, event); err != nil {
				log.Debug("client gone during send", "error", err)
				return
			}

		case <-client.Done:
			log.Debug("client closed by manager")
			return

		case <-ctx.Done():
			log.Debug("client disconnected")
			return
		}
	}
}

// send writes one "id:/event:/data:" frame and flushes it.
func (s *stream) send(eventType EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", eventType, err)
	}

	s.next++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.next, eventType, data); err != nil {
		return err
	}
	if err := s.rc.Flush(); err != nil {
		return err
	}

	// Recorders and some proxies do not support deadlines.
	_ = s.rc.SetWriteDeadline(time.Now().Add(writeDeadline))
	return nil
}
