package auth

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/rbac"
	"github.com/helios-saas/helios/internal/shared"
)

// Handler exposes login/logout and session administration endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	guard   rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard}
}

// MountRoutes registers auth routes. Login is open; everything else requires
// at least an authenticated principal.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/login", h.login)
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Policy{}))
		r.Post("/logout", h.logout)
		r.Get("/me", h.me)
	})
	r.Route("/sessions", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Require(
				[]string{authz.RoleAdmin, authz.RoleCompanyAdmin},
				[]string{shared.PermSessionsRead},
			)))
			r.Get("/user/{userID}", h.listSessions)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.guard.Require(authz.Require(
				[]string{authz.RoleAdmin, authz.RoleCompanyAdmin},
				[]string{shared.PermSessionsWrite},
			)))
			r.Delete("/{sessionID}", h.revokeSession)
		})
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	user, token, expiresAt, err := h.service.Login(r.Context(), req.Email, req.Password, clientIP(r), r.UserAgent())
	if err != nil {
		h.logger.Warn("login failed", slog.String("email", req.Email), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, loginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		UserID:    user.ID,
		Email:     user.Email,
		Name:      user.Name,
	})
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		httpx.Fail(w, http.StatusBadRequest, "missing bearer token")
		return
	}
	if err := h.service.Logout(r.Context(), token); err != nil {
		h.logger.Error("logout", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	p, _ := shared.PrincipalFromContext(r.Context())
	httpx.OK(w, map[string]any{"user_id": p.ID})
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	userID, err := pathInt64(r, "userID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	sessions, err := h.service.Sessions(r.Context(), userID)
	if err != nil {
		h.logger.Error("list sessions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, sessions)
}

func (h *Handler) revokeSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	if id == "" {
		httpx.RespondError(w, shared.ErrValidation)
		return
	}
	if err := h.service.RevokeSession(r.Context(), id); err != nil {
		h.logger.Error("revoke session", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.NoContent(w)
}

func pathInt64(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
