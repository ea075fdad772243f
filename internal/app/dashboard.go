package app

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/billing"
	"github.com/helios-saas/helios/internal/platform/httpx"
	"github.com/helios-saas/helios/internal/rbac"
	"github.com/helios-saas/helios/internal/shared"
	"github.com/helios-saas/helios/internal/tickets"
)

// DashboardSummary aggregates the headline numbers shown on the back
// office landing screen.
type DashboardSummary struct {
	Users               int64 `json:"users"`
	Companies           int64 `json:"companies"`
	Customers           int64 `json:"customers"`
	ActiveSubscriptions int64 `json:"active_subscriptions"`
	OpenTickets         int64 `json:"open_tickets"`
}

// DashboardHandler serves the aggregate summary endpoint.
type DashboardHandler struct {
	logger *slog.Logger
	pool   *pgxpool.Pool
	guard  rbac.Middleware
}

// NewDashboardHandler builds DashboardHandler instance.
func NewDashboardHandler(logger *slog.Logger, pool *pgxpool.Pool, guard rbac.Middleware) *DashboardHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &DashboardHandler{logger: logger, pool: pool, guard: guard}
}

// MountRoutes registers the dashboard routes.
func (h *DashboardHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.Require(authz.Require(
			[]string{authz.RoleAdmin, authz.RoleCompanyAdmin},
			[]string{shared.PermDashboardRead})))
		r.Get("/summary", h.summary)
	})
}

// The counts are independent, so they run concurrently against the pool.
func (h *DashboardHandler) summary(w http.ResponseWriter, r *http.Request) {
	var s DashboardSummary
	g, ctx := errgroup.WithContext(r.Context())

	g.Go(h.count(ctx, `SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`, &s.Users))
	g.Go(h.count(ctx, `SELECT COUNT(*) FROM companies WHERE deleted_at IS NULL`, &s.Companies))
	g.Go(h.count(ctx, `SELECT COUNT(*) FROM customers WHERE deleted_at IS NULL`, &s.Customers))
	g.Go(func() error {
		return h.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM subscriptions WHERE status = $1 AND deleted_at IS NULL`,
			billing.StatusActive).Scan(&s.ActiveSubscriptions)
	})
	g.Go(func() error {
		return h.pool.QueryRow(ctx,
			`SELECT COUNT(*) FROM tickets WHERE status <> $1 AND deleted_at IS NULL`,
			tickets.StatusClosed).Scan(&s.OpenTickets)
	})

	if err := g.Wait(); err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.OK(w, s)
}

func (h *DashboardHandler) count(ctx context.Context, query string, dst *int64) func() error {
	return func() error {
		return h.pool.QueryRow(ctx, query).Scan(dst)
	}
}
