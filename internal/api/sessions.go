package api

import (
	"net/http"
	"strconv"

	"github.com/ashureev/agentdeck/internal/chatlog"
	"github.com/go-chi/chi/v5"
)

// SessionHandler handles conversation session endpoints.
type SessionHandler struct {
	agg *chatlog.Aggregator
}

// NewSessionHandler creates a session handler over the aggregator.
func NewSessionHandler(agg *chatlog.Aggregator) *SessionHandler {
	return &SessionHandler{agg: agg}
}

// RegisterRoutes registers session routes.
func (h *SessionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/sessions", func(r chi.Router) {
		r.Get("/", h.ListSessions)
		r.Get("/{sessionID}", h.GetSession)
		r.Delete("/{sessionID}", RequirePermission("sessions.manage", h.DeleteSession))
	})
}

// ListSessions returns sessions newest first. Optional query params:
// agentId, limit, offset.
func (h *SessionHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	sessions, err := h.agg.ListSessions(r.Context(), q.Get("agentId"), limit, offset)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{"sessions": sessions})
}

// GetSession returns the full session transcript with tool calls
// attached to their originating messages.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	detail, err := h.agg.SessionDetail(r.Context(), sessionID)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, detail)
}

// DeleteSession removes a session and all its messages and tool calls.
func (h *SessionHandler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if err := h.agg.DeleteSession(r.Context(), sessionID); err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
