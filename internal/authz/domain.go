// Package authz implements the tiered role/permission authorization engine.
//
// Every protected action declares a static Policy (required roles, required
// permissions). The engine classifies the authenticated principal into a
// trust tier from its assigned roles and decides allow or deny. The decision
// never falls back to allow or deny on storage failure; backend errors are
// propagated so callers can distinguish "policy says no" from "could not
// determine".
package authz

import (
	"errors"
	"fmt"
)

// Reserved role names. "admin" bypasses every check; "company_admin" gets the
// elevated tier. "manager" is accepted in required-role inputs as a legacy
// alias for "company_admin" but is never rewritten in storage.
const (
	RoleAdmin        = "admin"
	RoleCompanyAdmin = "company_admin"
	RoleManagerAlias = "manager"
)

// Tier is the trust classification derived from a principal's roles.
type Tier int

const (
	// TierStandard requires both a matching role and a matching permission.
	TierStandard Tier = iota
	// TierElevated holds company_admin: permissions are checked when the
	// policy names any, and the role requirement always applies.
	TierElevated
	// TierBypass holds admin: every action is allowed, no permission check.
	TierBypass
)

// String returns the tier name for logs and metrics.
func (t Tier) String() string {
	switch t {
	case TierBypass:
		return "bypass"
	case TierElevated:
		return "elevated"
	default:
		return "standard"
	}
}

// ClassifyTier returns the highest tier conferred by the given role names.
func ClassifyTier(roleNames []string) Tier {
	tier := TierStandard
	for _, name := range roleNames {
		switch name {
		case RoleAdmin:
			return TierBypass
		case RoleCompanyAdmin:
			tier = TierElevated
		}
	}
	return tier
}

// Policy is the static (requiredRoles, requiredPermissions) pair declared by
// a protected action. Empty slices mean "no constraint of this kind".
type Policy struct {
	Roles       []string
	Permissions []string
}

// RequireRoles builds a policy constraining roles only.
func RequireRoles(roles ...string) Policy {
	return Policy{Roles: roles}
}

// RequirePermissions builds a policy constraining permissions only.
func RequirePermissions(perms ...string) Policy {
	return Policy{Permissions: perms}
}

// Require builds a policy constraining both roles and permissions.
func Require(roles []string, perms []string) Policy {
	return Policy{Roles: roles, Permissions: perms}
}

// RoleRef is the engine's read-model of an assigned role.
type RoleRef struct {
	ID   int64
	Name string
}

// ErrNotAuthenticated indicates no valid principal was supplied. Mapped to
// HTTP 401 by the dispatch layer.
var ErrNotAuthenticated = errors.New("authz: not authenticated")

// Deny reasons, preserved for audit logging.
const (
	ReasonMissingPermission = "missing specific permission"
	ReasonMissingRole       = "missing required role"
	ReasonInsufficient      = "insufficient role or permission"
)

// DenyError is a policy denial. It carries the audit context of the decision;
// the dispatch layer maps it to HTTP 403 with a generic message.
type DenyError struct {
	Reason      string
	PrincipalID int64
	Tier        Tier
	Policy      Policy
}

func (e *DenyError) Error() string {
	return fmt.Sprintf("authz: denied: %s", e.Reason)
}
