package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ashureev/agentdeck/internal/domain"
	"github.com/ashureev/agentdeck/internal/shared"
)

// Seed catalog. Ids are stable so that seeding stays idempotent across
// restarts and role_permissions rows keep pointing at the same rows.
var seedPermissions = []domain.Permission{
	{ID: "perm_agents_view", Code: "agents.view", Name: "View agents", Category: "agents"},
	{ID: "perm_agents_manage", Code: "agents.manage", Name: "Manage agents", Category: "agents"},
	{ID: "perm_sessions_view", Code: "sessions.view", Name: "View sessions", Category: "sessions"},
	{ID: "perm_sessions_manage", Code: "sessions.manage", Name: "Manage sessions", Category: "sessions"},
	{ID: "perm_roles_view", Code: "roles.view", Name: "View roles", Category: "roles"},
	{ID: "perm_roles_manage", Code: "roles.manage", Name: "Manage roles", Category: "roles"},
	{ID: "perm_settings_manage", Code: "settings.manage", Name: "Manage settings", Category: "settings"},
}

var seedRoles = []struct {
	role          domain.Role
	permissionIDs []string
}{
	{
		role: domain.Role{ID: "role_admin", Name: "Administrator", Description: "Full access to all resources", IsSystem: true},
		permissionIDs: []string{
			"perm_agents_view", "perm_agents_manage",
			"perm_sessions_view", "perm_sessions_manage",
			"perm_roles_view", "perm_roles_manage",
			"perm_settings_manage",
		},
	},
	{
		role:          domain.Role{ID: "role_viewer", Name: "Viewer", Description: "Read-only access", IsSystem: true},
		permissionIDs: []string{"perm_agents_view", "perm_sessions_view", "perm_roles_view"},
	},
}

// seedRBAC inserts the static permission catalog and system roles.
// INSERT OR IGNORE keeps it idempotent; system roles are never updated
// after first creation.
func (s *SQLiteStore) seedRBAC() error {
	now := time.Now().Unix()
	for _, p := range seedPermissions {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO permissions (id, code, name, category) VALUES (?, ?, ?, ?)`,
			p.ID, p.Code, p.Name, p.Category,
		)
		if err != nil {
			return fmt.Errorf("seed permission %s: %w", p.Code, err)
		}
	}
	for _, r := range seedRoles {
		_, err := s.db.Exec(
			`INSERT OR IGNORE INTO roles (id, name, description, is_system, created_at) VALUES (?, ?, ?, 1, ?)`,
			r.role.ID, r.role.Name, r.role.Description, now,
		)
		if err != nil {
			return fmt.Errorf("seed role %s: %w", r.role.Name, err)
		}
		for _, pid := range r.permissionIDs {
			_, err := s.db.Exec(
				`INSERT OR IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)`,
				r.role.ID, pid,
			)
			if err != nil {
				return fmt.Errorf("seed role permission %s/%s: %w", r.role.ID, pid, err)
			}
		}
	}
	return nil
}

func scanRoles(rows *sql.Rows) ([]domain.Role, error) {
	roles := []domain.Role{}
	for rows.Next() {
		var role domain.Role
		var description sql.NullString
		var isSystem int
		var createdAt int64
		if err := rows.Scan(&role.ID, &role.Name, &description, &isSystem, &createdAt); err != nil {
			return nil, fmt.Errorf("scan role row: %w", err)
		}
		role.Description = description.String
		role.IsSystem = isSystem != 0
		role.CreatedAt = time.Unix(createdAt, 0)
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

// ListRoles returns every role, system roles first, then alphabetically
// by name.
func (s *SQLiteStore) ListRoles(ctx context.Context) ([]domain.Role, error) {
	query := `
		SELECT id, name, description, is_system, created_at
		FROM roles ORDER BY is_system DESC, name ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roles: %w", err)
	}
	defer closeRows(rows, "roles")
	return scanRoles(rows)
}

// GetRoleByName retrieves a role by its exact, case-sensitive name.
func (s *SQLiteStore) GetRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	query := `SELECT id, name, description, is_system, created_at FROM roles WHERE name = ?`
	row := s.db.QueryRowContext(ctx, query, name)

	var role domain.Role
	var description sql.NullString
	var isSystem int
	var createdAt int64
	err := row.Scan(&role.ID, &role.Name, &description, &isSystem, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan role row: %w", err)
	}
	role.Description = description.String
	role.IsSystem = isSystem != 0
	role.CreatedAt = time.Unix(createdAt, 0)
	return &role, nil
}

// InsertRole creates a custom role and one join row per supplied
// permission id. Supplied ids are stored as-is, without validation
// against the permission catalog. Returns shared.ErrConflict when the
// role name is already taken.
func (s *SQLiteStore) InsertRole(ctx context.Context, role *domain.Role, permissionIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin role insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO roles (id, name, description, is_system, created_at) VALUES (?, ?, ?, 0, ?)`,
		role.ID, role.Name, nullable(role.Description), role.CreatedAt.Unix(),
	)
	if err != nil {
		if shared.IsSQLiteUniqueViolation(err) {
			return fmt.Errorf("insert role %q: %w", role.Name, shared.ErrConflict)
		}
		return fmt.Errorf("insert role: %w", err)
	}

	for _, pid := range permissionIDs {
		_, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO role_permissions (role_id, permission_id) VALUES (?, ?)`,
			role.ID, pid,
		)
		if err != nil {
			return fmt.Errorf("insert role permission: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit role insert: %w", err)
	}
	return nil
}

// ListPermissions returns the static permission catalog.
func (s *SQLiteStore) ListPermissions(ctx context.Context) ([]domain.Permission, error) {
	query := `SELECT id, code, name, category FROM permissions ORDER BY category ASC, code ASC`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer closeRows(rows, "permissions")

	perms := []domain.Permission{}
	for rows.Next() {
		var p domain.Permission
		if err := rows.Scan(&p.ID, &p.Code, &p.Name, &p.Category); err != nil {
			return nil, fmt.Errorf("scan permission row: %w", err)
		}
		perms = append(perms, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permissions: %w", err)
	}
	return perms, nil
}

// RolePermissionIDs returns the ordered set of permission ids granted to
// a role.
func (s *SQLiteStore) RolePermissionIDs(ctx context.Context, roleID string) ([]string, error) {
	query := `SELECT permission_id FROM role_permissions WHERE role_id = ? ORDER BY permission_id ASC`
	rows, err := s.db.QueryContext(ctx, query, roleID)
	if err != nil {
		return nil, fmt.Errorf("query role permissions: %w", err)
	}
	defer closeRows(rows, "role permissions")

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan role permission row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate role permissions: %w", err)
	}
	return ids, nil
}

// PermissionCodesForRoles returns the distinct permission codes attached
// to any of the given roles. Join rows pointing at ids missing from the
// catalog contribute nothing.
func (s *SQLiteStore) PermissionCodesForRoles(ctx context.Context, roleIDs []string) ([]string, error) {
	if len(roleIDs) == 0 {
		return []string{}, nil
	}

	placeholders := strings.Repeat("?,", len(roleIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := `
		SELECT DISTINCT p.code
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id IN (` + placeholders + `)`

	args := make([]interface{}, len(roleIDs))
	for i, id := range roleIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query permission codes: %w", err)
	}
	defer closeRows(rows, "permission codes")

	codes := []string{}
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("scan permission code: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate permission codes: %w", err)
	}
	return codes, nil
}
