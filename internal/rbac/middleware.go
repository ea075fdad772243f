package rbac

import (
	"net/http"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/shared"
)

// Middleware adapts the authz engine to chi route guards. Each protected
// route declares its static policy at registration time; the guard resolves
// the principal from context and asks the engine.
type Middleware struct {
	Engine *authz.Engine
}

// Require returns a guard enforcing the given policy. Unauthenticated
// requests get 401, policy denials 403, backend failures 500; the engine
// never converts a backend failure into a policy outcome.
func (m Middleware) Require(pol authz.Policy) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var principalID int64
			if p, ok := shared.PrincipalFromContext(r.Context()); ok {
				principalID = p.ID
			}
			if err := m.Engine.Authorize(r.Context(), principalID, pol); err != nil {
				httpx.RespondError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireRoles is shorthand for a roles-only policy guard.
func (m Middleware) RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return m.Require(authz.RequireRoles(roles...))
}

// RequirePermissions is shorthand for a permissions-only policy guard.
func (m Middleware) RequirePermissions(perms ...string) func(http.Handler) http.Handler {
	return m.Require(authz.RequirePermissions(perms...))
}
