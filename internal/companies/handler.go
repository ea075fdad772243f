package companies

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

// Handler manages company endpoints.
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

// MountRoutes registers company routes.
func (h *Handler) MountRoutes(r chi.Router) {
	staff := []string{authz.RoleAdmin, authz.RoleCompanyAdmin, "user"}
	admins := []string{authz.RoleAdmin, authz.RoleCompanyAdmin}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(staff, []string{shared.PermCompaniesRead})))
		r.Get("/", h.list)
		r.Get("/{companyID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(admins, []string{shared.PermCompaniesWrite})))
		r.Post("/", h.create)
		r.Put("/{companyID}", h.update)
		r.Delete("/{companyID}", h.remove)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(staff, []string{shared.PermSettingsRead})))
		r.Get("/{companyID}/settings", h.getSettings)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(admins, []string{shared.PermSettingsWrite})))
		r.Put("/{companyID}/settings", h.updateSettings)
	})
}

type companyRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Slug  string `json:"slug" validate:"omitempty,max=100"`
	Email string `json:"email" validate:"omitempty,email"`
}

type companyUpdateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"omitempty,email"`
	IsActive bool   `json:"is_active"`
}

type listResponse struct {
	Companies  []Company         `json:"companies"`
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
	companies, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, listResponse{Companies: companies, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	company, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, company)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req companyRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	company, err := h.service.Create(r.Context(), req.Name, req.Slug, req.Email)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, company)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var req companyUpdateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	company, err := h.service.Update(r.Context(), id, req.Name, req.Email, req.IsActive)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, company)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
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

func (h *Handler) getSettings(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	settings, err := h.service.GetSettings(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, settings)
}

func (h *Handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	id, err := companyID(r)
	if err != nil {
		h.fail(w, err)
		return
	}
	var settings Settings
	if err := httpx.DecodeJSON(r, &settings); err != nil {
		h.fail(w, shared.ErrValidation)
		return
	}
	updated, err := h.service.UpdateSettings(r.Context(), id, settings)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, updated)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("companies", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func companyID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "companyID"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
