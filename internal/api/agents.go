package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/agentdeck/internal/agentcfg"
	"github.com/ashureev/agentdeck/internal/store"
	"github.com/go-chi/chi/v5"
)

// AgentHandler handles agent, LLM-config, and API-key endpoints.
type AgentHandler struct {
	svc *agentcfg.Service
}

// NewAgentHandler creates an agent handler over the config service.
func NewAgentHandler(svc *agentcfg.Service) *AgentHandler {
	return &AgentHandler{svc: svc}
}

// RegisterRoutes registers agent routes. Reads are open to any caller
// behind the API; mutations pass through the permission evaluator.
func (h *AgentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/agents/{agentID}", func(r chi.Router) {
		r.Get("/", h.GetAgent)
		r.Put("/", RequirePermission("agents.manage", h.UpdateAgent))
		r.Delete("/", RequirePermission("agents.manage", h.DeleteAgent))

		r.Get("/config", h.GetConfig)
		r.Put("/config", RequirePermission("settings.manage", h.UpdateConfig))

		r.Get("/keys", h.ListKeys)
		r.Post("/keys", RequirePermission("settings.manage", h.UpsertKey))
		r.Delete("/keys", RequirePermission("settings.manage", h.DeleteKey))
	})
}

// GetAgent returns a single agent.
func (h *AgentHandler) GetAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	agent, err := h.svc.Agent(r.Context(), agentID)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, agent)
}

// UpdateAgent applies a sparse patch: only fields present in the body
// are written.
func (h *AgentHandler) UpdateAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var patch store.AgentPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	agent, err := h.svc.UpdateAgent(r.Context(), agentID, patch)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, agent)
}

// DeleteAgent removes an agent.
func (h *AgentHandler) DeleteAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	if err := h.svc.DeleteAgent(r.Context(), agentID); err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}

// GetConfig returns the agent's LLM config.
func (h *AgentHandler) GetConfig(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	cfg, err := h.svc.Config(r.Context(), agentID)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, cfg)
}

// UpdateConfig replaces the agent's LLM config with the supplied fields;
// omitted agent_mode and max_iterations reset to their defaults.
func (h *AgentHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var req agentcfg.ConfigUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cfg, err := h.svc.UpdateConfig(r.Context(), agentID, req)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, cfg)
}

// ListKeys returns the agent's API keys, newest first.
func (h *AgentHandler) ListKeys(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	keys, err := h.svc.ListKeys(r.Context(), agentID)
	if err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, keys)
}

type upsertKeyRequest struct {
	Provider string `json:"provider"`
	APIKey   string `json:"api_key"`
}

// UpsertKey creates or replaces the credential for (agent, provider).
// 201 when a new row was created, 200 when an existing one was updated.
func (h *AgentHandler) UpsertKey(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	var req upsertKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	key, created, err := h.svc.UpsertKey(r.Context(), agentID, req.Provider, req.APIKey)
	if err != nil {
		FailureError(w, r, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	JSON(w, status, key)
}

// DeleteKey removes a key identified by the keyId query parameter. The
// key must belong to the agent in the path.
func (h *AgentHandler) DeleteKey(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")
	keyID := r.URL.Query().Get("keyId")
	if keyID == "" {
		Error(w, http.StatusBadRequest, "keyId query parameter is required")
		return
	}

	if err := h.svc.DeleteKey(r.Context(), agentID, keyID); err != nil {
		FailureError(w, r, err)
		return
	}
	JSON(w, http.StatusOK, map[string]bool{"success": true})
}
