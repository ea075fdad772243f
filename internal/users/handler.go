package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/rbac"
	"github.com/helios-saas/helios/internal/shared"
)

// Handler manages user management endpoints.
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

// MountRoutes registers user management routes.
func (h *Handler) MountRoutes(r chi.Router) {
	admins := []string{authz.RoleAdmin, authz.RoleCompanyAdmin}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(admins, []string{shared.PermUsersRead})))
		r.Get("/", h.list)
		r.Get("/{userID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(admins, []string{shared.PermUsersWrite})))
		r.Post("/", h.create)
		r.Put("/{userID}", h.update)
		r.Put("/{userID}/password", h.changePassword)
		r.Delete("/{userID}", h.remove)
	})
}

type createRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Password string `json:"password" validate:"required,min=8"`
}

type updateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	IsActive bool   `json:"is_active"`
}

type passwordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type listResponse struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filters := ListFilters{
		Search:  r.URL.Query().Get("search"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active := raw == "true"
		filters.IsActive = &active
	}
	users, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, listResponse{Users: users, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, user)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.service.Create(r.Context(), req.Email, req.Name, req.Password)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, user)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req updateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	user, err := h.service.Update(r.Context(), id, req.Name, req.IsActive)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, user)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req passwordRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.ChangePassword(r.Context(), id, req.Password); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("users", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
