package rbac

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/shared"
)

// RepositoryPort defines the persistence surface the service depends on.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error

	ListPermissions(ctx context.Context) ([]Permission, error)
	GetPermission(ctx context.Context, id int64) (Permission, error)
	CreatePermission(ctx context.Context, p Permission) (Permission, error)
	UpdatePermission(ctx context.Context, id int64, description string) (Permission, error)
	DeletePermission(ctx context.Context, id int64) error

	PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error)
	RolesOfPermission(ctx context.Context, permissionID int64) ([]Role, error)
	RolesOf(ctx context.Context, principalID int64) ([]authz.RoleRef, error)

	AssignRole(ctx context.Context, userID, roleID int64) error
	RevokeRole(ctx context.Context, userID, roleID int64) error
	ReplaceRolesOfUser(ctx context.Context, userID int64, roleIDs []int64) error
	GrantPermission(ctx context.Context, roleID, permissionID int64) error
	RevokePermission(ctx context.Context, roleID, permissionID int64) error
	ReplacePermissionsOfRole(ctx context.Context, roleID int64, permissionIDs []int64) error

	UserExists(ctx context.Context, userID int64) (bool, error)
}

// AuditRecorder persists administration mutations for security audit.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates role/permission administration.
type Service struct {
	repo   RepositoryPort
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService builds a Service instance. The audit recorder may be nil.
func NewService(repo RepositoryPort, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role by ID.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, error) {
	return s.repo.GetRole(ctx, id)
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, "role.create", "role", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// UpdateRole renames a role. The reserved roles keep their names; only their
// descriptions may change.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, fmt.Errorf("%w: role name required", shared.ErrValidation)
	}
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, err
	}
	if isReservedRole(current.Name) && name != current.Name {
		return Role{}, ErrReservedRole
	}
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
	if err != nil {
		return Role{}, err
	}
	s.recordAudit(ctx, "role.update", "role", role.ID, map[string]any{"name": role.Name})
	return role, nil
}

// DeleteRole removes a role. Reserved roles are protected.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	current, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if isReservedRole(current.Name) {
		return ErrReservedRole
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "role.delete", "role", id, map[string]any{"name": current.Name})
	return nil
}

// ListPermissions returns all permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission inserts a new permission. The name defaults to
// resource_action when omitted.
func (s *Service) CreatePermission(ctx context.Context, name, resource, action, description string) (Permission, error) {
	resource = strings.TrimSpace(strings.ToLower(resource))
	action = strings.TrimSpace(strings.ToLower(action))
	if resource == "" || action == "" {
		return Permission{}, fmt.Errorf("%w: permission resource and action required", shared.ErrValidation)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = PermissionName(resource, action)
	}
	perm, err := s.repo.CreatePermission(ctx, Permission{
		Name:        name,
		Resource:    resource,
		Action:      action,
		Description: strings.TrimSpace(description),
	})
	if err != nil {
		return Permission{}, err
	}
	s.recordAudit(ctx, "permission.create", "permission", perm.ID, map[string]any{"name": perm.Name})
	return perm, nil
}

// UpdatePermission updates a permission's description.
func (s *Service) UpdatePermission(ctx context.Context, id int64, description string) (Permission, error) {
	perm, err := s.repo.UpdatePermission(ctx, id, strings.TrimSpace(description))
	if err != nil {
		return Permission{}, err
	}
	s.recordAudit(ctx, "permission.update", "permission", perm.ID, nil)
	return perm, nil
}

// DeletePermission removes a permission.
func (s *Service) DeletePermission(ctx context.Context, id int64) error {
	if err := s.repo.DeletePermission(ctx, id); err != nil {
		return err
	}
	s.recordAudit(ctx, "permission.delete", "permission", id, nil)
	return nil
}

// PermissionsOfRole returns a role's grants in stable order.
func (s *Service) PermissionsOfRole(ctx context.Context, roleID int64) ([]Permission, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, err
	}
	return s.repo.PermissionsOfRole(ctx, roleID)
}

// RolesOfPermission returns the roles granting a permission in stable order.
func (s *Service) RolesOfPermission(ctx context.Context, permissionID int64) ([]Role, error) {
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return nil, err
	}
	return s.repo.RolesOfPermission(ctx, permissionID)
}

// RolesOfUser returns the user's current role set.
func (s *Service) RolesOfUser(ctx context.Context, userID int64) ([]authz.RoleRef, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.RolesOf(ctx, userID)
}

// AssignRole grants a role to a user. Assigning an already-held role is a
// no-op, never a conflict.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return notFoundAsValidation(err, "role", roleID)
	}
	if err := s.repo.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, "role.assign", "user", userID, map[string]any{"role_id": roleID})
	return nil
}

// RevokeRole removes a role from a user. No-op if not held.
func (s *Service) RevokeRole(ctx context.Context, userID, roleID int64) error {
	if err := s.requireUser(ctx, userID); err != nil {
		return err
	}
	if err := s.repo.RevokeRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, "role.revoke", "user", userID, map[string]any{"role_id": roleID})
	return nil
}

// ReplaceRolesOfUser atomically replaces the user's role set and returns the
// resulting set.
func (s *Service) ReplaceRolesOfUser(ctx context.Context, userID int64, roleIDs []int64) ([]authz.RoleRef, error) {
	if err := s.requireUser(ctx, userID); err != nil {
		return nil, err
	}
	roleIDs = dedupeIDs(roleIDs)
	for _, roleID := range roleIDs {
		if _, err := s.repo.GetRole(ctx, roleID); err != nil {
			return nil, notFoundAsValidation(err, "role", roleID)
		}
	}
	if err := s.repo.ReplaceRolesOfUser(ctx, userID, roleIDs); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "role.replace_all", "user", userID, map[string]any{"role_ids": roleIDs})
	return s.repo.RolesOf(ctx, userID)
}

// GrantPermission grants a permission to a role, idempotently.
func (s *Service) GrantPermission(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return notFoundAsValidation(err, "role", roleID)
	}
	if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
		return notFoundAsValidation(err, "permission", permissionID)
	}
	if err := s.repo.GrantPermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.recordAudit(ctx, "permission.grant", "role", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

// RevokePermission removes a grant. No-op if absent.
func (s *Service) RevokePermission(ctx context.Context, roleID, permissionID int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return notFoundAsValidation(err, "role", roleID)
	}
	if err := s.repo.RevokePermission(ctx, roleID, permissionID); err != nil {
		return err
	}
	s.recordAudit(ctx, "permission.revoke", "role", roleID, map[string]any{"permission_id": permissionID})
	return nil
}

// ReplacePermissionsOfRole atomically replaces a role's grants and returns
// the resulting set.
func (s *Service) ReplacePermissionsOfRole(ctx context.Context, roleID int64, permissionIDs []int64) ([]Permission, error) {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return nil, notFoundAsValidation(err, "role", roleID)
	}
	permissionIDs = dedupeIDs(permissionIDs)
	for _, permissionID := range permissionIDs {
		if _, err := s.repo.GetPermission(ctx, permissionID); err != nil {
			return nil, notFoundAsValidation(err, "permission", permissionID)
		}
	}
	if err := s.repo.ReplacePermissionsOfRole(ctx, roleID, permissionIDs); err != nil {
		return nil, err
	}
	s.recordAudit(ctx, "permission.replace_all", "role", roleID, map[string]any{"permission_ids": permissionIDs})
	return s.repo.PermissionsOfRole(ctx, roleID)
}

func (s *Service) requireUser(ctx context.Context, userID int64) error {
	exists, err := s.repo.UserExists(ctx, userID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: user %d does not exist", shared.ErrValidation, userID)
	}
	return nil
}

func (s *Service) recordAudit(ctx context.Context, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	var actorID int64
	if p, ok := shared.PrincipalFromContext(ctx); ok {
		actorID = p.ID
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta,
	})
	if err != nil {
		s.logger.Warn("rbac audit record", slog.String("action", action), slog.Any("error", err))
	}
}

func isReservedRole(name string) bool {
	return name == authz.RoleAdmin || name == authz.RoleCompanyAdmin
}

func notFoundAsValidation(err error, entity string, id int64) error {
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %s %d does not exist", shared.ErrValidation, entity, id)
	}
	return err
}

func dedupeIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
