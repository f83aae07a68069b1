// Package api provides the HTTP control surface for the player.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/listenupapp/listenup-player/internal/sse"
	"github.com/listenupapp/listenup-player/internal/store"
)

// Version is reported in the OpenAPI document.
const Version = "1.0.0"

// Options configures the HTTP surface.
type Options struct {
	Name        string
	CORSOrigins []string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	profiles   *store.ProfileStore
	services   *Services
	sseManager *sse.Manager
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(
	profiles *store.ProfileStore,
	services *Services,
	sseManager *sse.Manager,
	opts Options,
	logger *slog.Logger,
) *Server {
	router := chi.NewRouter()

	s := &Server{
		profiles:   profiles,
		services:   services,
		sseManager: sseManager,
		router:     router,
		logger:     logger,
	}

	s.setupMiddleware(opts)

	name := opts.Name
	if name == "" {
		name = "ListenUp Player"
	}
	humaConfig := huma.DefaultConfig(name+" API", Version)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.registerRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, mainly for tests.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "Last-Event-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) registerRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerLibraryRoutes()
	s.registerPlayerRoutes()
	s.registerSleepRoutes()

	// Streaming and scrape endpoints are plain handlers, outside the OpenAPI surface.
	if s.sseManager != nil {
		s.router.Get("/api/v1/events", sse.NewHandler(s.sseManager, s.replay, s.logger).ServeHTTP)
	}
	s.router.Handle("/metrics", promhttp.Handler())
}

// replay is what a new event stream client sees before live events.
func (s *Server) replay(ctx context.Context) []sse.Event {
	var events []sse.Event
	if s.services == nil {
		return events
	}
	if s.services.Auth != nil {
		ev, err := s.services.Auth.SessionEvent(ctx)
		if err != nil {
			s.logger.Warn("failed to build session replay", "error", err)
		} else {
			events = append(events, ev)
		}
	}
	if s.services.Player != nil {
		events = append(events, s.services.Player.Snapshot()...)
	}
	return events
}
