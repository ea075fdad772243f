package authz

import (
	"context"
	"fmt"
	"log/slog"
)

// Repository is the read-only lookup surface the engine decides against.
// Empty results are not errors; an error always means the backend failed.
type Repository interface {
	// RolesOf returns every role currently assigned to the principal.
	RolesOf(ctx context.Context, principalID int64) ([]RoleRef, error)
	// PermissionNamesOf returns the deduplicated permission names reachable
	// from the given roles.
	PermissionNamesOf(ctx context.Context, roleIDs []int64) ([]string, error)
}

// DecisionObserver receives the outcome of each decision, keyed by tier.
type DecisionObserver interface {
	ObserveDecision(tier, outcome string)
}

// Engine makes allow/deny decisions for protected actions.
type Engine struct {
	repo   Repository
	logger *slog.Logger
	obs    DecisionObserver
}

// NewEngine constructs an Engine. The observer may be nil.
func NewEngine(repo Repository, logger *slog.Logger, obs DecisionObserver) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{repo: repo, logger: logger, obs: obs}
}

// Authorize decides whether the principal may perform an action guarded by
// pol. It returns nil on allow, ErrNotAuthenticated when no principal was
// supplied, *DenyError on a policy denial, and a wrapped storage error when
// the repository failed. The check order is load-bearing: the admin bypass
// is evaluated before any permission load, and elevated principals are
// checked for permissions before roles.
func (e *Engine) Authorize(ctx context.Context, principalID int64, pol Policy) error {
	if principalID <= 0 {
		e.observe(TierStandard, "unauthenticated")
		return ErrNotAuthenticated
	}

	roles, err := e.repo.RolesOf(ctx, principalID)
	if err != nil {
		e.observe(TierStandard, "error")
		return fmt.Errorf("authz: load roles for principal %d: %w", principalID, err)
	}

	roleNames := make([]string, len(roles))
	roleIDs := make([]int64, len(roles))
	for i, r := range roles {
		roleNames[i] = r.Name
		roleIDs[i] = r.ID
	}

	tier := ClassifyTier(roleNames)
	if tier == TierBypass {
		// Full override: no permission check for admin, intentionally.
		e.observe(tier, "allow")
		return nil
	}

	required := mapManagerAlias(pol.Roles)
	hasRequiredRole := len(required) == 0 || intersects(roleNames, required)

	if tier == TierElevated {
		if len(pol.Permissions) > 0 {
			granted, err := e.repo.PermissionNamesOf(ctx, roleIDs)
			if err != nil {
				e.observe(tier, "error")
				return fmt.Errorf("authz: load permissions for principal %d: %w", principalID, err)
			}
			if !intersects(granted, pol.Permissions) {
				return e.deny(principalID, tier, pol, ReasonMissingPermission)
			}
		}
		if !hasRequiredRole {
			return e.deny(principalID, tier, pol, ReasonMissingRole)
		}
		e.observe(tier, "allow")
		return nil
	}

	hasRequiredPermission := true
	if len(pol.Permissions) > 0 {
		granted, err := e.repo.PermissionNamesOf(ctx, roleIDs)
		if err != nil {
			e.observe(tier, "error")
			return fmt.Errorf("authz: load permissions for principal %d: %w", principalID, err)
		}
		hasRequiredPermission = intersects(granted, pol.Permissions)
	}

	if hasRequiredRole && hasRequiredPermission {
		e.observe(tier, "allow")
		return nil
	}
	return e.deny(principalID, tier, pol, ReasonInsufficient)
}

func (e *Engine) deny(principalID int64, tier Tier, pol Policy, reason string) error {
	e.logger.Warn("authorization denied",
		slog.Int64("principal_id", principalID),
		slog.String("tier", tier.String()),
		slog.String("reason", reason),
		slog.Any("required_roles", pol.Roles),
		slog.Any("required_permissions", pol.Permissions),
	)
	e.observe(tier, "deny")
	return &DenyError{Reason: reason, PrincipalID: principalID, Tier: tier, Policy: pol}
}

func (e *Engine) observe(tier Tier, outcome string) {
	if e.obs != nil {
		e.obs.ObserveDecision(tier.String(), outcome)
	}
}

// mapManagerAlias rewrites the legacy "manager" role name to "company_admin"
// in the required-roles input. Stored role names are never rewritten, so a
// role literally named "manager" in storage can never satisfy a role
// requirement. That matches the historical behaviour this engine replaces.
func mapManagerAlias(required []string) []string {
	mapped := make([]string, len(required))
	for i, name := range required {
		if name == RoleManagerAlias {
			mapped[i] = RoleCompanyAdmin
			continue
		}
		mapped[i] = name
	}
	return mapped
}

func intersects(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	set := make(map[string]struct{}, len(have))
	for _, h := range have {
		set[h] = struct{}{}
	}
	for _, w := range want {
		if _, ok := set[w]; ok {
			return true
		}
	}
	return false
}
