package domain

import (
	"time"
)

// Role groups permissions for assignment to principals. System roles are
// seed data and are never mutated at runtime.
type Role struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IsSystem    bool      `json:"is_system"`
	CreatedAt   time.Time `json:"created_at"`
}

// Permission is one entry in the static capability catalog. Codes use
// dotted form, e.g. "roles.manage".
type Permission struct {
	ID       string `json:"id"`
	Code     string `json:"code"`
	Name     string `json:"name"`
	Category string `json:"category"`
}

// Principal is an authenticated caller as resolved by the external auth
// collaborator. The join table supports multiple roles per principal, so
// role assignment is modelled as a set even though the admin UI currently
// assigns a single role.
type Principal struct {
	UserID  string   `json:"user_id"`
	RoleIDs []string `json:"role_ids"`
}
