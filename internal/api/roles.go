package api

import (
	"encoding/json"
	"net/http"

	"github.com/ashureev/agentdeck/internal/rbac"
	"github.com/go-chi/chi/v5"
)

// RoleHandler handles role and permission endpoints.
type RoleHandler struct {
	evaluator *rbac.Evaluator
}

// NewRoleHandler creates a role handler over the permission evaluator.
func NewRoleHandler(evaluator *rbac.Evaluator) *RoleHandler {
	return &RoleHandler{evaluator: evaluator}
}

// RegisterRoutes registers role routes. Both listing and creation are
// gated: role data reveals the access model.
func (h *RoleHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/roles", func(r chi.Router) {
		r.Get("/", RequirePermission("roles.view", h.ListRoles))
		r.Post("/", RequirePermission("roles.manage", h.CreateRole))
	})
}

// ListRoles returns every role with its permission ids, alongside the
// permission catalog.
func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.evaluator.ListRolesWithPermissions(r.Context())
	if err != nil {
		FailureError(w, r, err)
		return
	}

	permissions, err := h.evaluator.ListPermissions(r.Context())
	if err != nil {
		FailureError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"roles":       roles,
		"permissions": permissions,
	})
}

type createRoleRequest struct {
	Name          string   `json:"name"`
	Description   string   `json:"description"`
	PermissionIDs []string `json:"permission_ids"`
}

// CreateRole inserts a custom role with the supplied permission ids.
func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req createRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		Error(w, http.StatusBadRequest, "role name is required")
		return
	}

	role, err := h.evaluator.CreateRole(r.Context(), req.Name, req.Description, req.PermissionIDs)
	if err != nil {
		FailureError(w, r, err)
		return
	}

	JSON(w, http.StatusOK, map[string]string{
		"id":      role.ID,
		"message": "role created",
	})
}
