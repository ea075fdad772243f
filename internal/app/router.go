package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/helios-saas/helios/internal/auth"
	"github.com/helios-saas/helios/internal/billing"
	"github.com/helios-saas/helios/internal/companies"
	"github.com/helios-saas/helios/internal/content"
	"github.com/helios-saas/helios/internal/customers"
	"github.com/helios-saas/helios/internal/observability"
	"github.com/helios-saas/helios/internal/rbac"
	"github.com/helios-saas/helios/internal/tickets"
	"github.com/helios-saas/helios/internal/users"
	"github.com/helios-saas/helios/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger *slog.Logger
	Config *Config

	AuthMiddleware *auth.Middleware

	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	CompaniesHandler *companies.Handler
	CustomersHandler *customers.Handler
	RBACHandler      *rbac.Handler
	BillingHandler   *billing.Handler
	TicketsHandler   *tickets.Handler
	ContentHandler   *content.Handler
	DashboardHandler *DashboardHandler
	JobHandler       *jobs.Handler

	Metrics *observability.Metrics
}

// NewRouter constructs the chi.Router with Helios defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Auth:    params.AuthMiddleware,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", func(r chi.Router) {
		// Credential endpoints get a tighter per-IP budget than the
		// global limiter.
		loginLimit := 10
		if params.Config != nil && params.Config.LoginRateLimit > 0 {
			loginLimit = params.Config.LoginRateLimit
		}
		r.Use(httprate.Limit(loginLimit, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
		params.AuthHandler.MountRoutes(r)
	})
	r.Route("/users", func(r chi.Router) {
		params.UsersHandler.MountRoutes(r)
		r.Route("/{userID}/roles", params.RBACHandler.MountUserRoleRoutes)
	})
	r.Route("/companies", func(r chi.Router) {
		params.CompaniesHandler.MountRoutes(r)
		r.Route("/{companyID}/customers", params.CustomersHandler.MountRoutes)
	})
	params.RBACHandler.MountRoutes(r)
	r.Route("/plans", params.BillingHandler.MountPlanRoutes)
	r.Route("/subscriptions", params.BillingHandler.MountSubscriptionRoutes)
	r.Route("/tickets", params.TicketsHandler.MountRoutes)
	r.Route("/pages", params.ContentHandler.MountPageRoutes)
	r.Route("/settings", params.ContentHandler.MountSettingRoutes)
	r.Route("/dashboard", params.DashboardHandler.MountRoutes)
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}
