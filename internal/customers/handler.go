package customers

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

// Handler manages customer endpoints.
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

// MountRoutes registers customer routes under /companies/{companyID}/customers.
func (h *Handler) MountRoutes(r chi.Router) {
	staff := []string{authz.RoleAdmin, authz.RoleCompanyAdmin, "user"}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(staff, []string{shared.PermCustomersRead})))
		r.Get("/", h.list)
		r.Get("/{customerID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(staff, []string{shared.PermCustomersWrite})))
		r.Post("/", h.create)
		r.Put("/{customerID}", h.update)
		r.Delete("/{customerID}", h.remove)
	})
}

type customerRequest struct {
	Name  string `json:"name" validate:"required,max=255"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
}

type customerUpdateRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"omitempty,max=50"`
	IsActive bool   `json:"is_active"`
}

type listResponse struct {
	Customers  []Customer        `json:"customers"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathInt64(r, "companyID")
	if err != nil {
		h.fail(w, err)
		return
	}
	page, perPage := shared.PageParams(r)
	filters := ListFilters{
		CompanyID: companyID,
		Search:    r.URL.Query().Get("search"),
		Page:      page,
		PerPage:   perPage,
	}
	if raw := r.URL.Query().Get("is_active"); raw != "" {
		active := raw == "true"
		filters.IsActive = &active
	}
	customers, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, listResponse{Customers: customers, Pagination: pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "customerID")
	if err != nil {
		h.fail(w, err)
		return
	}
	customer, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, customer)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	companyID, err := pathInt64(r, "companyID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req customerRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	customer, err := h.service.Create(r.Context(), companyID, req.Name, req.Email, req.Phone)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, customer)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "customerID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req customerUpdateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	customer, err := h.service.Update(r.Context(), id, req.Name, req.Email, req.Phone, req.IsActive)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, customer)
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "customerID")
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
	h.logger.Error("customers", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathInt64(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
