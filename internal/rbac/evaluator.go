// Package rbac implements role-based permission evaluation.
package rbac

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
	"github.com/ashureev/agentdeck/internal/store"
	"github.com/google/uuid"
)

// Grants is a principal's materialized capability set: the union of
// permission codes across every role assigned to the principal. It is
// computed once per request and consulted per check.
type Grants map[string]struct{}

// Has reports whether the grant set contains the permission code.
func (g Grants) Has(code string) bool {
	_, ok := g[code]
	return ok
}

// Evaluator answers capability-check queries for authenticated
// principals and manages the role catalog.
type Evaluator struct {
	repo store.Repository
}

// NewEvaluator creates a permission evaluator backed by the repository.
func NewEvaluator(repo store.Repository) *Evaluator {
	return &Evaluator{repo: repo}
}

// Grants materializes the permission set for a principal. A nil
// principal or one with no roles yields an empty set.
func (e *Evaluator) Grants(ctx context.Context, principal *domain.Principal) (Grants, error) {
	grants := Grants{}
	if principal == nil || len(principal.RoleIDs) == 0 {
		return grants, nil
	}

	codes, err := e.repo.PermissionCodesForRoles(ctx, principal.RoleIDs)
	if err != nil {
		return nil, fmt.Errorf("resolve permission codes: %w", err)
	}
	for _, code := range codes {
		grants[code] = struct{}{}
	}
	return grants, nil
}

// HasPermission reports whether the principal holds the permission code.
// A principal with no resolved role never has any permission.
func (e *Evaluator) HasPermission(ctx context.Context, principal *domain.Principal, code string) (bool, error) {
	grants, err := e.Grants(ctx, principal)
	if err != nil {
		return false, err
	}
	return grants.Has(code), nil
}

// RoleWithPermissions pairs a role with the ordered set of permission
// ids granted to it.
type RoleWithPermissions struct {
	domain.Role
	PermissionIDs []string `json:"permission_ids"`
}

// ListRolesWithPermissions returns every role (system first, then
// alphabetical) with its permission ids attached. The per-role fetches
// touch disjoint row sets, so they fan out concurrently.
func (e *Evaluator) ListRolesWithPermissions(ctx context.Context) ([]RoleWithPermissions, error) {
	roles, err := e.repo.ListRoles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	out := make([]RoleWithPermissions, len(roles))
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i, role := range roles {
		out[i].Role = role
		wg.Add(1)
		go func(i int, roleID string) {
			defer wg.Done()
			ids, err := e.repo.RolePermissionIDs(ctx, roleID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				return
			}
			out[i].PermissionIDs = ids
		}(i, role.ID)
	}
	wg.Wait()

	if firstErr != nil {
		return nil, fmt.Errorf("fetch role permissions: %w", firstErr)
	}
	return out, nil
}

// ListPermissions returns the static permission catalog.
func (e *Evaluator) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	return e.repo.ListPermissions(ctx)
}

// CreateRole inserts a custom role with the supplied permission ids.
// The name must not collide with an existing role (case-sensitive exact
// match). Permission ids are stored without catalog validation.
func (e *Evaluator) CreateRole(ctx context.Context, name, description string, permissionIDs []string) (*domain.Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("role name is required: %w", shared.ErrInvalidInput)
	}

	existing, err := e.repo.GetRoleByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("check role name: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("role %q already exists: %w", name, shared.ErrConflict)
	}

	role := &domain.Role{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		IsSystem:    false,
		CreatedAt:   time.Now(),
	}

	// The store's uniqueness constraint backstops the check above: a
	// concurrent insert that slips past surfaces as ErrConflict here.
	if err := e.repo.InsertRole(ctx, role, permissionIDs); err != nil {
		return nil, err
	}
	return role, nil
}
