package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/shared"
)

type guardRepo struct {
	roles    map[int64][]authz.RoleRef
	perms    map[int64][]string
	rolesErr error
}

func (g *guardRepo) RolesOf(ctx context.Context, principalID int64) ([]authz.RoleRef, error) {
	if g.rolesErr != nil {
		return nil, g.rolesErr
	}
	return g.roles[principalID], nil
}

func (g *guardRepo) PermissionNamesOf(ctx context.Context, roleIDs []int64) ([]string, error) {
	var out []string
	for _, id := range roleIDs {
		out = append(out, g.perms[id]...)
	}
	return out, nil
}

func newGuardedServer(repo authz.Repository, pol authz.Policy) http.Handler {
	engine := authz.NewEngine(repo, slog.Default(), nil)
	guard := Middleware{Engine: engine}
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(guard.Require(pol))
		r.Get("/protected", func(w http.ResponseWriter, _ *http.Request) {
			httpx.OK(w, "reached")
		})
	})
	return r
}

func doRequest(t *testing.T, handler http.Handler, principalID int64) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if principalID > 0 {
		ctx := shared.ContextWithPrincipal(req.Context(), shared.Principal{ID: principalID})
		req = req.WithContext(ctx)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) httpx.Envelope {
	t.Helper()
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestGuardUnauthenticated(t *testing.T) {
	handler := newGuardedServer(&guardRepo{}, authz.RequireRoles("user"))

	rec := doRequest(t, handler, 0)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.NotEmpty(t, env.Message)
}

func TestGuardDenied(t *testing.T) {
	repo := &guardRepo{roles: map[int64][]authz.RoleRef{
		7: {{ID: 1, Name: "user"}},
	}}
	handler := newGuardedServer(repo, authz.RequireRoles("auditor"))

	rec := doRequest(t, handler, 7)
	require.Equal(t, http.StatusForbidden, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	// Deny specifics stay in the audit log, not the response.
	assert.Equal(t, "access denied", env.Message)
}

func TestGuardAllowed(t *testing.T) {
	repo := &guardRepo{
		roles: map[int64][]authz.RoleRef{7: {{ID: 1, Name: "user"}}},
		perms: map[int64][]string{1: {"settings_read"}},
	}
	handler := newGuardedServer(repo, authz.Require([]string{"user"}, []string{"settings_read"}))

	rec := doRequest(t, handler, 7)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
}

func TestGuardBackendFailure(t *testing.T) {
	repo := &guardRepo{rolesErr: errors.New("connection refused")}
	handler := newGuardedServer(repo, authz.RequireRoles("user"))

	rec := doRequest(t, handler, 7)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.NotContains(t, env.Message, "connection refused")
}
