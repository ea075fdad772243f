package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/helios-saas/helios/internal/app"
	"github.com/helios-saas/helios/internal/auth"
	"github.com/helios-saas/helios/internal/authz"
	"github.com/helios-saas/helios/internal/billing"
	"github.com/helios-saas/helios/internal/companies"
	"github.com/helios-saas/helios/internal/content"
	"github.com/helios-saas/helios/internal/customers"
	"github.com/helios-saas/helios/internal/observability"
	"github.com/helios-saas/helios/internal/platform/cache"
	"github.com/helios-saas/helios/internal/platform/db"
	"github.com/helios-saas/helios/internal/rbac"
	"github.com/helios-saas/helios/internal/shared"
	"github.com/helios-saas/helios/internal/tickets"
	"github.com/helios-saas/helios/internal/users"
	"github.com/helios-saas/helios/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	auditLogger := shared.NewAuditLogger(pool)

	rbacRepo := rbac.NewRepository(pool)
	engine := authz.NewEngine(rbacRepo, logger, metrics)
	guard := rbac.Middleware{Engine: engine}
	rbacService := rbac.NewService(rbacRepo, auditLogger, logger)
	rbacHandler := rbac.NewHandler(logger, rbacService, guard)

	tokens := auth.NewTokenStore(redisClient, cfg.TokenTTL)
	authRepo := auth.NewRepository(pool)
	authService := auth.NewService(authRepo, tokens)
	authMiddleware := &auth.Middleware{Service: authService, Logger: logger}
	authHandler := auth.NewHandler(logger, authService, guard)

	usersService := users.NewService(users.NewRepository(pool))
	usersHandler := users.NewHandler(logger, usersService, guard)

	companiesService := companies.NewService(companies.NewRepository(pool))
	companiesHandler := companies.NewHandler(logger, companiesService, guard)

	customersService := customers.NewService(customers.NewRepository(pool))
	customersHandler := customers.NewHandler(logger, customersService, guard)

	billingService := billing.NewService(billing.NewRepository(pool), logger)
	billingHandler := billing.NewHandler(logger, billingService, guard)

	jobsClient, err := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := jobsClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()

	ticketNotifier := jobs.NewTicketNotifier(jobsClient, logger)
	ticketsService := tickets.NewService(tickets.NewRepository(pool), ticketNotifier, logger)
	ticketsHandler := tickets.NewHandler(logger, ticketsService, guard)

	contentService := content.NewService(content.NewRepository(pool))
	contentHandler := content.NewHandler(logger, contentService, guard)

	dashboardHandler := app.NewDashboardHandler(logger, pool, guard)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		AuthMiddleware:   authMiddleware,
		AuthHandler:      authHandler,
		UsersHandler:     usersHandler,
		CompaniesHandler: companiesHandler,
		CustomersHandler: customersHandler,
		RBACHandler:      rbacHandler,
		BillingHandler:   billingHandler,
		TicketsHandler:   ticketsHandler,
		ContentHandler:   contentHandler,
		DashboardHandler: dashboardHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", slog.Any("error", err))
	}
}
