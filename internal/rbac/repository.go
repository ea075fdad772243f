package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/db"
	"github.com/helios-saas/helios/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Soft-deleted rows are
// invisible to every read, including the engine's.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ authz.Repository = (*Repository)(nil)

// RolesOf returns all live roles assigned to the principal.
func (r *Repository) RolesOf(ctx context.Context, principalID int64) ([]authz.RoleRef, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name
		FROM user_roles ur
		JOIN roles r ON r.id = ur.role_id AND r.deleted_at IS NULL
		WHERE ur.user_id = $1 AND ur.deleted_at IS NULL
		ORDER BY r.id`, principalID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []authz.RoleRef
	for rows.Next() {
		var ref authz.RoleRef
		if err := rows.Scan(&ref.ID, &ref.Name); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// PermissionNamesOf returns the deduplicated permission names reachable from
// the given roles.
func (r *Repository) PermissionNamesOf(ctx context.Context, roleIDs []int64) ([]string, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT p.name
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id AND p.deleted_at IS NULL
		WHERE rp.role_id = ANY($1) AND rp.deleted_at IS NULL`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// PermissionsOfRole returns the role's permissions ordered by name for stable
// pagination.
func (r *Repository) PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.name, p.resource, p.action, p.description, p.created_at, p.updated_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id AND p.deleted_at IS NULL
		WHERE rp.role_id = $1 AND rp.deleted_at IS NULL
		ORDER BY p.name`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// RolesOfPermission returns the roles granting a permission ordered by name.
func (r *Repository) RolesOfPermission(ctx context.Context, permissionID int64) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.created_at, r.updated_at
		FROM role_permissions rp
		JOIN roles r ON r.id = rp.role_id AND r.deleted_at IS NULL
		WHERE rp.permission_id = $1 AND rp.deleted_at IS NULL
		ORDER BY r.name`, permissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// ListRoles returns all live roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRoles(rows)
}

// GetRole fetches a role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM roles WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	return role, nil
}

// CreateRole inserts a new role.
func (r *Repository) CreateRole(ctx context.Context, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description) VALUES ($1, $2)
		RETURNING id, name, description, created_at, updated_at`, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		return Role{}, mapConstraintError(err)
	}
	return role, nil
}

// UpdateRole updates an existing role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles SET name = $2, description = $3, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, name, description, created_at, updated_at`, id, name, description).
		Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, mapConstraintError(err)
	}
	return role, nil
}

// DeleteRole soft-deletes a role. Returns ErrNotFound if nothing was live.
func (r *Repository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPermissions returns all live permissions ordered by name.
func (r *Repository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions WHERE deleted_at IS NULL ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPermissions(rows)
}

// GetPermission fetches a permission by ID.
func (r *Repository) GetPermission(ctx context.Context, id int64) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, resource, action, description, created_at, updated_at
		FROM permissions WHERE id = $1 AND deleted_at IS NULL`, id).
		Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// CreatePermission inserts a new permission.
func (r *Repository) CreatePermission(ctx context.Context, p Permission) (Permission, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, resource, action, description) VALUES ($1, $2, $3, $4)
		RETURNING id, name, resource, action, description, created_at, updated_at`,
		p.Name, p.Resource, p.Action, p.Description).
		Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Permission{}, mapConstraintError(err)
	}
	return p, nil
}

// UpdatePermission updates description only; name/resource/action are
// immutable once endpoints reference them.
func (r *Repository) UpdatePermission(ctx context.Context, id int64, description string) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		UPDATE permissions SET description = $2, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING id, name, resource, action, description, created_at, updated_at`, id, description).
		Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Permission{}, ErrNotFound
		}
		return Permission{}, err
	}
	return p, nil
}

// DeletePermission soft-deletes a permission.
func (r *Repository) DeletePermission(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRole links a user to a role. Idempotent: re-assigning an existing
// pair (including a soft-deleted one) resurrects it without error.
func (r *Repository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		ON CONFLICT (user_id, role_id)
		DO UPDATE SET deleted_at = NULL, updated_at = NOW()`, userID, roleID)
	return mapConstraintError(err)
}

// RevokeRole unlinks a user from a role. No-op if the pair is absent.
func (r *Repository) RevokeRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_roles SET deleted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1 AND role_id = $2 AND deleted_at IS NULL`, userID, roleID)
	return err
}

// ReplaceRolesOfUser atomically replaces the user's role set. A concurrent
// reader sees either the old complete set or the new one, never a mix.
func (r *Repository) ReplaceRolesOfUser(ctx context.Context, userID int64, roleIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE user_roles SET deleted_at = NOW(), updated_at = NOW()
			WHERE user_id = $1 AND deleted_at IS NULL`, userID); err != nil {
			return err
		}
		for _, roleID := range roleIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
				ON CONFLICT (user_id, role_id)
				DO UPDATE SET deleted_at = NULL, updated_at = NOW()`, userID, roleID); err != nil {
				return mapConstraintError(err)
			}
		}
		return nil
	})
}

// GrantPermission links a permission to a role, idempotently.
func (r *Repository) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
		ON CONFLICT (role_id, permission_id)
		DO UPDATE SET deleted_at = NULL, updated_at = NOW()`, roleID, permissionID)
	return mapConstraintError(err)
}

// RevokePermission unlinks a permission from a role. No-op if absent.
func (r *Repository) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE role_permissions SET deleted_at = NOW(), updated_at = NOW()
		WHERE role_id = $1 AND permission_id = $2 AND deleted_at IS NULL`, roleID, permissionID)
	return err
}

// ReplacePermissionsOfRole atomically replaces the role's grant set.
func (r *Repository) ReplacePermissionsOfRole(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			UPDATE role_permissions SET deleted_at = NOW(), updated_at = NOW()
			WHERE role_id = $1 AND deleted_at IS NULL`, roleID); err != nil {
			return err
		}
		for _, permissionID := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id) VALUES ($1, $2)
				ON CONFLICT (role_id, permission_id)
				DO UPDATE SET deleted_at = NULL, updated_at = NOW()`, roleID, permissionID); err != nil {
				return mapConstraintError(err)
			}
		}
		return nil
	})
}

// UserExists reports whether a live user row exists.
func (r *Repository) UserExists(ctx context.Context, userID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND deleted_at IS NULL)`, userID).
		Scan(&exists)
	return exists, err
}

// mapConstraintError translates SQLSTATE constraint failures into the shared
// taxonomy: a broken foreign key means the caller referenced ids that do not
// resolve, which is a validation failure, not a server error.
func mapConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23503":
			return fmt.Errorf("%w: referenced id does not exist", shared.ErrValidation)
		case "23505":
			return fmt.Errorf("%w: %s", shared.ErrDuplicate, pgErr.ConstraintName)
		}
	}
	return err
}

func scanRoles(rows pgx.Rows) ([]Role, error) {
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

func scanPermissions(rows pgx.Rows) ([]Permission, error) {
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Name, &p.Resource, &p.Action, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
