// Package rbac holds the role/permission store and its administration
// surface. The authz engine reads from it; the admin endpoints mutate it.
package rbac

import (
	"fmt"
	"time"

	"github.com/helios-saas/helios/internal/shared"
)

// Role represents a named trust/capability label.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Permission represents an atomic capability, identified by name and
// decomposable into resource + action (e.g. "settings_read" = settings/read).
type Permission struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PermissionName derives the canonical permission name from resource+action.
func PermissionName(resource, action string) string {
	return resource + "_" + action
}

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = fmt.Errorf("rbac: %w", shared.ErrNotFound)

// ErrReservedRole rejects mutations that would strip the reserved roles of
// their semantic meaning.
var ErrReservedRole = fmt.Errorf("%w: reserved role cannot be renamed or deleted", shared.ErrValidation)
