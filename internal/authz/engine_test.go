package authz

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	roles map[int64][]RoleRef
	perms map[int64][]string // roleID -> permission names

	rolesErr error
	permsErr error

	permissionLoads int
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		roles: make(map[int64][]RoleRef),
		perms: make(map[int64][]string),
	}
}

func (m *mockRepository) RolesOf(ctx context.Context, principalID int64) ([]RoleRef, error) {
	if m.rolesErr != nil {
		return nil, m.rolesErr
	}
	return m.roles[principalID], nil
}

func (m *mockRepository) PermissionNamesOf(ctx context.Context, roleIDs []int64) ([]string, error) {
	m.permissionLoads++
	if m.permsErr != nil {
		return nil, m.permsErr
	}
	seen := make(map[string]struct{})
	var names []string
	for _, id := range roleIDs {
		for _, p := range m.perms[id] {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			names = append(names, p)
		}
	}
	return names, nil
}

func newTestEngine(repo Repository) *Engine {
	return NewEngine(repo, slog.Default(), nil)
}

func TestAuthorizeUnauthenticated(t *testing.T) {
	engine := newTestEngine(newMockRepository())

	err := engine.Authorize(context.Background(), 0, Policy{})
	require.ErrorIs(t, err, ErrNotAuthenticated)

	err = engine.Authorize(context.Background(), -5, RequireRoles("user"))
	require.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestAuthorizeAdminBypass(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 10, Name: "admin"}}
	engine := newTestEngine(repo)

	policies := []Policy{
		{},
		RequireRoles("company_admin"),
		RequirePermissions("settings_read", "payments_write"),
		Require([]string{"user"}, []string{"anything_at_all"}),
	}
	for _, pol := range policies {
		require.NoError(t, engine.Authorize(context.Background(), 1, pol))
	}

	// The bypass never touches the permission store.
	assert.Zero(t, repo.permissionLoads)
}

func TestAuthorizeAdminBypassAmongMultipleRoles(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{
		{ID: 20, Name: "user"},
		{ID: 10, Name: "admin"},
	}
	engine := newTestEngine(repo)

	err := engine.Authorize(context.Background(), 1, Require([]string{"company_admin"}, []string{"settings_read"}))
	require.NoError(t, err)
}

func TestAuthorizeNoRoles(t *testing.T) {
	repo := newMockRepository()
	engine := newTestEngine(repo)

	// Unconstrained actions are open to any authenticated principal.
	require.NoError(t, engine.Authorize(context.Background(), 7, Policy{}))

	err := engine.Authorize(context.Background(), 7, RequireRoles("user"))
	var denyErr *DenyError
	require.ErrorAs(t, err, &denyErr)
	assert.Equal(t, ReasonInsufficient, denyErr.Reason)
	assert.Equal(t, TierStandard, denyErr.Tier)
}

func TestAuthorizeManagerAliasEquivalence(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 30, Name: "company_admin"}}
	repo.perms[30] = []string{"settings_read"}
	engine := newTestEngine(repo)

	for _, required := range []string{"manager", "company_admin"} {
		err := engine.Authorize(context.Background(), 1, Require([]string{required}, []string{"settings_read"}))
		require.NoError(t, err, "required role %q", required)
	}
}

func TestAuthorizeAliasIsInputSideOnly(t *testing.T) {
	// A role literally named "manager" in storage never matches: the alias
	// rewrites the required-roles input, not stored assignments.
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 40, Name: "manager"}}
	engine := newTestEngine(repo)

	err := engine.Authorize(context.Background(), 1, RequireRoles("manager"))
	var denyErr *DenyError
	require.ErrorAs(t, err, &denyErr)
}

func TestAuthorizeElevatedPermissionGate(t *testing.T) {
	// company_admin with zero grants is denied even though the role matches.
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 30, Name: "company_admin"}}
	engine := newTestEngine(repo)

	err := engine.Authorize(context.Background(), 1, Require([]string{"company_admin"}, []string{"settings_read"}))
	var denyErr *DenyError
	require.ErrorAs(t, err, &denyErr)
	assert.Equal(t, ReasonMissingPermission, denyErr.Reason)
	assert.Equal(t, TierElevated, denyErr.Tier)
}

func TestAuthorizeElevatedRoleGate(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 30, Name: "company_admin"}}
	repo.perms[30] = []string{"settings_read"}
	engine := newTestEngine(repo)

	// Permission matches but the declared role set does not include the
	// principal's roles: the role requirement still applies for elevated.
	err := engine.Authorize(context.Background(), 1, Require([]string{"auditor"}, []string{"settings_read"}))
	var denyErr *DenyError
	require.ErrorAs(t, err, &denyErr)
	assert.Equal(t, ReasonMissingRole, denyErr.Reason)

	// No permission constraint: role check alone decides.
	require.NoError(t, engine.Authorize(context.Background(), 1, RequireRoles("company_admin")))
	err = engine.Authorize(context.Background(), 1, RequireRoles("auditor"))
	require.ErrorAs(t, err, &denyErr)
	assert.Equal(t, ReasonMissingRole, denyErr.Reason)
}

func TestAuthorizeStandardConjunctive(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 20, Name: "user"}}
	engine := newTestEngine(repo)

	pol := Require([]string{"admin", "manager", "user"}, []string{"settings_read"})

	// Has the required role but role "user" grants nothing yet.
	err := engine.Authorize(context.Background(), 1, pol)
	var denyErr *DenyError
	require.ErrorAs(t, err, &denyErr)
	assert.Equal(t, ReasonInsufficient, denyErr.Reason)

	// Granting settings_read to role "user" flips the same call to allow.
	repo.perms[20] = []string{"settings_read"}
	require.NoError(t, engine.Authorize(context.Background(), 1, pol))
}

func TestAuthorizeStandardRoleMismatch(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 20, Name: "user"}}
	repo.perms[20] = []string{"settings_read"}
	engine := newTestEngine(repo)

	// Permission satisfied, role not: standard tier needs both.
	err := engine.Authorize(context.Background(), 1, Require([]string{"auditor"}, []string{"settings_read"}))
	var denyErr *DenyError
	require.ErrorAs(t, err, &denyErr)
	assert.Equal(t, ReasonInsufficient, denyErr.Reason)
}

func TestAuthorizeStandardSkipsPermissionLoadWhenUnconstrained(t *testing.T) {
	repo := newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 20, Name: "user"}}
	engine := newTestEngine(repo)

	require.NoError(t, engine.Authorize(context.Background(), 1, RequireRoles("user")))
	assert.Zero(t, repo.permissionLoads)
}

func TestAuthorizeStorageFailureIsNotADenial(t *testing.T) {
	backendErr := errors.New("connection refused")

	repo := newMockRepository()
	repo.rolesErr = backendErr
	engine := newTestEngine(repo)

	err := engine.Authorize(context.Background(), 1, Policy{})
	require.ErrorIs(t, err, backendErr)
	var denyErr *DenyError
	assert.False(t, errors.As(err, &denyErr))
	assert.NotErrorIs(t, err, ErrNotAuthenticated)

	// Same for a failure during the permission load.
	repo = newMockRepository()
	repo.roles[1] = []RoleRef{{ID: 20, Name: "user"}}
	repo.permsErr = backendErr
	engine = newTestEngine(repo)

	err = engine.Authorize(context.Background(), 1, RequirePermissions("settings_read"))
	require.ErrorIs(t, err, backendErr)
	assert.False(t, errors.As(err, &denyErr))
}

func TestClassifyTier(t *testing.T) {
	assert.Equal(t, TierStandard, ClassifyTier(nil))
	assert.Equal(t, TierStandard, ClassifyTier([]string{"user", "auditor"}))
	assert.Equal(t, TierElevated, ClassifyTier([]string{"user", "company_admin"}))
	assert.Equal(t, TierBypass, ClassifyTier([]string{"company_admin", "admin"}))
	// "manager" in storage is ordinary data, not an elevated tier.
	assert.Equal(t, TierStandard, ClassifyTier([]string{"manager"}))
}
