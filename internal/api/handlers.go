package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mentehub/circled/internal/events"
	"github.com/mentehub/circled/internal/phase"
	"github.com/mentehub/circled/internal/session"
)

type generateRequest struct {
	Prompt  string          `json:"prompt"`
	Context json.RawMessage `json:"context"`
}

type generateMetadata struct {
	Model     string          `json:"model"`
	Timestamp string          `json:"timestamp"`
	Context   json.RawMessage `json:"context,omitempty"`
	Usage     any             `json:"usage"`
}

type generateResponse struct {
	Response string           `json:"response"`
	Metadata generateMetadata `json:"metadata"`
}

// generate proxies one facilitation prompt to the upstream text-generation
// API. Configuration and upstream failures surface as 500s here; absorbing
// them behind fallback text is the session dispatcher's job, not the
// proxy's.
func (s *Server) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		s.writeError(w, http.StatusBadRequest, "Prompt is required", "")
		return
	}
	if s.llm == nil {
		s.writeError(w, http.StatusInternalServerError, "Anthropic API key not configured", "")
		return
	}

	var sessionContext any
	if len(req.Context) > 0 {
		sessionContext = req.Context
	} else {
		sessionContext = map[string]any{}
	}

	result, err := s.llm.GenerateGuideText(r.Context(), req.Prompt, sessionContext)
	if err != nil {
		s.logger.Error("generation failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, "Failed to generate response", err.Error())
		return
	}

	s.writeJSON(w, http.StatusOK, generateResponse{
		Response: result.Text,
		Metadata: generateMetadata{
			Model:     result.Model,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Context:   req.Context,
			Usage:     result.Usage,
		},
	})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":               "healthy",
		"service":              "circled",
		"timestamp":            time.Now().UTC().Format(time.RFC3339),
		"anthropic_configured": s.llm != nil,
	})
}

type analyticsRequest struct {
	SessionID string          `json:"sessionId"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
}

func (s *Server) analytics(w http.ResponseWriter, r *http.Request) {
	var req analyticsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	s.logger.Info("session analytics", "session_id", req.SessionID, "event", req.Event)
	if err := s.bus.Publish(events.SubjectSessionAnalytics, map[string]any{
		"session_id": req.SessionID,
		"event":      req.Event,
		"data":       req.Data,
	}); err != nil {
		s.logger.Warn("failed to publish analytics event", "error", err)
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) capabilities(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"message": "circled API is working!",
		"endpoints": map[string]string{
			"POST /api/haiku-generate":          "Generate AI responses",
			"GET /api/health":                   "Health check",
			"POST /api/session-analytics":       "Log session events",
			"POST /api/sessions":                "Create and start a session",
			"GET /api/sessions/{id}":            "Session state",
			"GET /api/sessions/{id}/transcript": "Session transcript",
			"DELETE /api/sessions/{id}":         "Stop a session",
		},
	})
}

type createSessionRequest struct {
	SessionID string `json:"sessionId"`
	Theme     string `json:"theme"`
	Slot      string `json:"slot"`
	Mode      string `json:"mode"`
}

// createSession registers and starts a session runner. The id is normally
// client-generated ("{theme}-{slot}-{epochMillis}"); if absent the server
// builds one from theme and slot.
func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid request body", "")
		return
	}

	id := req.SessionID
	if id == "" {
		theme := req.Theme
		if theme == "" {
			theme = "corporate"
		}
		slot := req.Slot
		if slot == "" {
			slot = "now"
		}
		id = session.NewID(theme, slot, time.Now())
	}

	mode := req.Mode
	if mode == "" {
		mode = phase.ModeCircle
	}

	runner, err := s.sessions.Create(id, mode)
	if err != nil {
		s.writeError(w, http.StatusConflict, err.Error(), "")
		return
	}

	s.writeJSON(w, http.StatusCreated, runner.Snapshot())
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}
	s.writeJSON(w, http.StatusOK, runner.Snapshot())
}

func (s *Server) getTranscript(w http.ResponseWriter, r *http.Request) {
	runner, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
	if !ok {
		s.writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"sessionId": runner.ID(),
		"entries":   runner.Transcript().Entries(),
	})
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Stop(chi.URLParam(r, "sessionID")) {
		s.writeError(w, http.StatusNotFound, "Session not found", "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
