package billing

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

// Handler exposes plan, subscription and payment endpoints.
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

// Billing administration accepts the legacy "manager" role name; the
// engine treats it as company_admin.
var billingAdmins = []string{authz.RoleAdmin, authz.RoleManagerAlias}

// MountPlanRoutes registers plan routes.
func (h *Handler) MountPlanRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(
			[]string{authz.RoleAdmin, authz.RoleManagerAlias, "user"},
			[]string{shared.PermPlansRead})))
		r.Get("/", h.listPlans)
		r.Get("/{planID}", h.getPlan)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(billingAdmins, []string{shared.PermPlansWrite})))
		r.Post("/", h.createPlan)
		r.Put("/{planID}", h.updatePlan)
		r.Delete("/{planID}", h.deletePlan)
	})
}

// MountSubscriptionRoutes registers subscription and payment routes.
func (h *Handler) MountSubscriptionRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(
			[]string{authz.RoleAdmin, authz.RoleManagerAlias, "user"},
			[]string{shared.PermSubscriptionsRead})))
		r.Get("/", h.listSubscriptions)
		r.Get("/{subscriptionID}", h.getSubscription)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(billingAdmins, []string{shared.PermSubscriptionsWrite})))
		r.Post("/", h.subscribe)
		r.Post("/{subscriptionID}/cancel", h.cancel)
		r.Post("/{subscriptionID}/renew", h.renew)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(billingAdmins, []string{shared.PermPaymentsRead})))
		r.Get("/{subscriptionID}/payments", h.listPayments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(billingAdmins, []string{shared.PermPaymentsWrite})))
		r.Post("/{subscriptionID}/payments", h.recordPayment)
	})
}

type planRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description" validate:"max=2000"`
	PriceCents  int64  `json:"price_cents" validate:"min=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Interval    string `json:"interval" validate:"required,oneof=month year"`
	IsActive    *bool  `json:"is_active"`
}

type subscribeRequest struct {
	CompanyID int64 `json:"company_id" validate:"required,gt=0"`
	PlanID    int64 `json:"plan_id" validate:"required,gt=0"`
}

type paymentRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"min=0"`
	Currency    string `json:"currency" validate:"required,len=3"`
	Status      string `json:"status" validate:"required,oneof=pending succeeded failed"`
}

func (h *Handler) listPlans(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("include_inactive") != "true"
	plans, err := h.service.ListPlans(r.Context(), activeOnly)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, map[string]any{"plans": plans})
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "planID")
	if err != nil {
		h.fail(w, err)
		return
	}
	plan, err := h.service.GetPlan(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, plan)
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	plan, err := h.service.CreatePlan(r.Context(), Plan{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Interval:    req.Interval,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, plan)
}

func (h *Handler) updatePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "planID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req planRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	plan, err := h.service.UpdatePlan(r.Context(), Plan{
		ID:          id,
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Currency:    req.Currency,
		Interval:    req.Interval,
		IsActive:    isActive,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, plan)
}

func (h *Handler) deletePlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "planID")
	if err != nil {
		h.fail(w, err)
		return
	}
	if err := h.service.DeletePlan(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	httpx.NoContent(w)
}

func (h *Handler) listSubscriptions(w http.ResponseWriter, r *http.Request) {
	var companyID int64
	if raw := r.URL.Query().Get("company_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			h.fail(w, shared.ErrValidation)
			return
		}
		companyID = id
	}
	page, perPage := shared.PageParams(r)
	subs, pagination, err := h.service.ListSubscriptions(r.Context(), companyID, page, perPage)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, map[string]any{"subscriptions": subs, "pagination": pagination})
}

func (h *Handler) getSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "subscriptionID")
	if err != nil {
		h.fail(w, err)
		return
	}
	sub, err := h.service.GetSubscription(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, sub)
}

func (h *Handler) subscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	sub, err := h.service.Subscribe(r.Context(), req.CompanyID, req.PlanID)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, sub)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "subscriptionID")
	if err != nil {
		h.fail(w, err)
		return
	}
	sub, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, sub)
}

func (h *Handler) renew(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "subscriptionID")
	if err != nil {
		h.fail(w, err)
		return
	}
	sub, err := h.service.Renew(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, sub)
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "subscriptionID")
	if err != nil {
		h.fail(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	payment, err := h.service.RecordPayment(r.Context(), id, req.AmountCents, req.Currency, req.Status)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.Created(w, payment)
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt64(r, "subscriptionID")
	if err != nil {
		h.fail(w, err)
		return
	}
	payments, err := h.service.ListPayments(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	httpx.OK(w, map[string]any{"payments": payments})
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	h.logger.Error("billing", slog.Any("error", err))
	httpx.RespondError(w, err)
}

func pathInt64(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.ErrValidation
	}
	return id, nil
}
