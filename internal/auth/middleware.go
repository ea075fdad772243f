package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/shared"
)

// Middleware resolves the Authorization bearer token into a principal and
// attaches it to the request context. Requests without a token pass through
// unauthenticated; the authz guards decide whether that matters.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Principal returns the context-injection middleware.
func (m Middleware) Principal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		userID, err := m.Service.Resolve(r.Context(), token)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Error("resolve bearer token", slog.Any("error", err))
			}
			httpx.Fail(w, http.StatusInternalServerError, "internal error")
			return
		}
		if userID == 0 {
			// Stale or revoked token: proceed unauthenticated.
			next.ServeHTTP(w, r)
			return
		}
		ctx := shared.ContextWithPrincipal(r.Context(), shared.Principal{ID: userID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
