package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
	"github.com/google/uuid"
)

func TestSeedIsIdempotent(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	s := repo.(*SQLiteStore)
	if err := s.seedRBAC(); err != nil {
		t.Fatalf("second seed failed: %v", err)
	}

	roles, err := repo.ListRoles(context.Background())
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("expected 2 seeded roles, got %d", len(roles))
	}
}

func TestListRolesSystemFirstThenAlphabetical(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Zeta Ops", "Alpha Ops"} {
		role := &domain.Role{ID: uuid.NewString(), Name: name, CreatedAt: time.Now()}
		if err := repo.InsertRole(ctx, role, nil); err != nil {
			t.Fatalf("InsertRole(%s) failed: %v", name, err)
		}
	}

	roles, err := repo.ListRoles(ctx)
	if err != nil {
		t.Fatalf("ListRoles failed: %v", err)
	}

	want := []string{"Administrator", "Viewer", "Alpha Ops", "Zeta Ops"}
	if len(roles) != len(want) {
		t.Fatalf("expected %d roles, got %d", len(want), len(roles))
	}
	for i, name := range want {
		if roles[i].Name != name {
			t.Errorf("role[%d] = %q, want %q", i, roles[i].Name, name)
		}
	}
	if !roles[0].IsSystem || !roles[1].IsSystem {
		t.Error("system roles must sort first")
	}
	if roles[2].IsSystem || roles[3].IsSystem {
		t.Error("custom roles must not be marked system")
	}
}

func TestInsertRoleDuplicateNameConflicts(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	role := &domain.Role{ID: uuid.NewString(), Name: "Support", CreatedAt: time.Now()}
	if err := repo.InsertRole(ctx, role, nil); err != nil {
		t.Fatalf("InsertRole failed: %v", err)
	}

	dup := &domain.Role{ID: uuid.NewString(), Name: "Support", CreatedAt: time.Now()}
	err := repo.InsertRole(ctx, dup, nil)
	if !errors.Is(err, shared.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate name, got %v", err)
	}
}

func TestInsertRoleStoresUnknownPermissionIDs(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	// Permission ids are not validated against the catalog.
	role := &domain.Role{ID: uuid.NewString(), Name: "Experimental", CreatedAt: time.Now()}
	if err := repo.InsertRole(ctx, role, []string{"perm_agents_view", "perm_does_not_exist"}); err != nil {
		t.Fatalf("InsertRole failed: %v", err)
	}

	ids, err := repo.RolePermissionIDs(ctx, role.ID)
	if err != nil {
		t.Fatalf("RolePermissionIDs failed: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected both ids stored, got %v", ids)
	}

	// The unknown id contributes no code to the grant set.
	codes, err := repo.PermissionCodesForRoles(ctx, []string{role.ID})
	if err != nil {
		t.Fatalf("PermissionCodesForRoles failed: %v", err)
	}
	if len(codes) != 1 || codes[0] != "agents.view" {
		t.Errorf("expected only agents.view, got %v", codes)
	}
}

func TestPermissionCodesForRolesUnion(t *testing.T) {
	t.Parallel()

	repo := newTestStore(t)
	ctx := context.Background()

	codes, err := repo.PermissionCodesForRoles(ctx, []string{"role_admin", "role_viewer"})
	if err != nil {
		t.Fatalf("PermissionCodesForRoles failed: %v", err)
	}
	// Viewer's grants are a subset of Administrator's; the union must
	// not duplicate them.
	seen := map[string]int{}
	for _, code := range codes {
		seen[code]++
	}
	for code, n := range seen {
		if n > 1 {
			t.Errorf("code %q appears %d times in union", code, n)
		}
	}
	if _, ok := seen["roles.manage"]; !ok {
		t.Error("union missing administrator-only code roles.manage")
	}

	empty, err := repo.PermissionCodesForRoles(ctx, nil)
	if err != nil {
		t.Fatalf("PermissionCodesForRoles(nil) failed: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected empty set for no roles, got %v", empty)
	}
}
