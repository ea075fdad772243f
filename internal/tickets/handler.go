package tickets

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

// Handler exposes ticket desk endpoints.
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

// MountRoutes registers ticket routes.
func (h *Handler) MountRoutes(r chi.Router) {
	staff := []string{authz.RoleAdmin, authz.RoleManagerAlias, "user"}
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(staff, []string{shared.PermTicketsRead})))
		r.Get("/", h.list)
		r.Get("/{ticketID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(staff, []string{shared.PermTicketsWrite})))
		r.Post("/", h.open)
		r.Post("/{ticketID}/messages", h.reply)
		r.Put("/{ticketID}/assign", h.assign)
		r.Post("/{ticketID}/close", h.close)
	})
}

type openRequest struct {
	CompanyID  int64  `json:"company_id" validate:"required,gt=0"`
	CustomerID *int64 `json:"customer_id" validate:"omitempty,gt=0"`
	Subject    string `json:"subject" validate:"required,max=500"`
	Body       string `json:"body" validate:"required"`
	Priority   string `json:"priority" validate:"omitempty,oneof=low normal high"`
}

type replyRequest struct {
	Body string `json:"body" validate:"required"`
}

type assignRequest struct {
	AssigneeID *int64 `json:"assignee_id" validate:"omitempty,gt=0"`
}

type ticketResponse struct {
	Ticket   Ticket    `json:"ticket"`
	Messages []Message `json:"messages"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, perPage := shared.PageParams(r)
	filters := ListFilters{
		Status:  r.URL.Query().Get("status"),
		Page:    page,
		PerPage: perPage,
	}
	if raw := r.URL.Query().Get("company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.fail(w, shared.ErrValidation)
			return
		}
		filters.CompanyID = id
	}
	if raw := r.URL.Query().Get("assigned_to"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.fail(w, shared.ErrValidation)
			return
		}
		filters.AssignedTo = id
	}
	tickets, pagination, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, map[string]any{"tickets": tickets, "pagination": pagination})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "ticketID")
	if err != nil {
		h.fail(w, err)
		return
	}
	ticket, messages, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, ticketResponse{Ticket: ticket, Messages: messages})
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	ticket, err := h.service.Open(r.Context(), req.CompanyID, principal.ID, req.CustomerID, req.Subject, req.Body, req.Priority)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, ticket)
}

func (h *Handler) reply(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "ticketID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req replyRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	message, err := h.service.Reply(r.Context(), id, principal.ID, req.Body)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, message)
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "ticketID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req assignRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	ticket, err := h.service.Assign(r.Context(), id, req.AssigneeID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, ticket)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "ticketID")
	if err != nil {
		h.fail(w, err)
		return
	}
	ticket, err := h.service.Close(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, ticket)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("tickets", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathInt64(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
