package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mentehub/circled/internal/anthropic"
	"github.com/mentehub/circled/internal/events"
	"github.com/mentehub/circled/internal/session"
)

// Server is the HTTP surface the web front-end consumes: the generation
// proxy, health/analytics endpoints, and the live-session resource.
type Server struct {
	router   *chi.Mux
	port     int
	llm      *anthropic.Client // nil when no API key is configured
	sessions *session.Manager
	bus      *events.Publisher
	logger   *slog.Logger
}

func NewServer(port int, llm *anthropic.Client, sessions *session.Manager, bus *events.Publisher, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		llm:      llm,
		sessions: sessions,
		bus:      bus,
		logger:   logger,
	}

	router.Post("/api/haiku-generate", s.generate)
	router.Get("/api/health", s.health)
	router.Post("/api/session-analytics", s.analytics)
	router.Get("/api/test", s.capabilities)

	router.Post("/api/sessions", s.createSession)
	router.Get("/api/sessions/{sessionID}", s.getSession)
	router.Get("/api/sessions/{sessionID}/transcript", s.getTranscript)
	router.Delete("/api/sessions/{sessionID}", s.deleteSession)

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string, details string) {
	body := map[string]string{"error": msg}
	if details != "" {
		body["details"] = details
	}
	s.writeJSON(w, status, body)
}
