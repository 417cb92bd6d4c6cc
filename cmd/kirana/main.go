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

	"github.com/kirana-event/kirana/internal/app"
	"github.com/kirana-event/kirana/internal/audit"
	audithttp "github.com/kirana-event/kirana/internal/audit/http"
	"github.com/kirana-event/kirana/internal/auth"
	"github.com/kirana-event/kirana/internal/cms"
	"github.com/kirana-event/kirana/internal/dashboard"
	"github.com/kirana-event/kirana/internal/health"
	"github.com/kirana-event/kirana/internal/invitations"
	"github.com/kirana-event/kirana/internal/observability"
	"github.com/kirana-event/kirana/internal/platform/cache"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/settings"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/internal/users"
	"github.com/kirana-event/kirana/internal/view"
	"github.com/kirana-event/kirana/jobs"
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
	logger.Info("starting", slog.String("version", app.BuildVersion()), slog.String("env", cfg.AppEnv))

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if redisClient == nil {
		logger.Error("configure redis", slog.Any("error", err))
		os.Exit(1)
	}
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "kirana_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	templates, err := view.NewEngine()
	if err != nil {
		logger.Error("parse templates", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := observability.NewMetrics()

	rbacService := rbac.NewService(rbac.NewRepository(dbpool))
	rbacMiddleware := rbac.Middleware{Service: rbacService, Logger: logger, Observer: metrics}

	redisOpts := cache.AsynqOptions(redisClient.Options())
	jobClient := jobs.NewClient(redisOpts)
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("job client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	invitationService := invitations.NewService(invitations.NewRepository(dbpool), jobClient, invitations.Config{
		BaseURL: cfg.PublicBaseURL,
		TTL:     cfg.InvitationTTL,
	}, logger)

	authService := auth.NewService(auth.NewRepository(dbpool))
	authHandler := auth.NewHandler(logger, authService, invitationService, templates, sessionManager, csrfManager)

	usersService := users.NewService(users.NewRepository(dbpool))

	contentCache := cms.NewCache(redisClient, cfg.ContentCacheTTL, metrics, logger)
	cmsService := cms.NewService(cms.NewRepository(dbpool), contentCache, logger)

	settingsService := settings.NewService(settings.NewRepository(dbpool), logger)

	healthService := health.NewService(health.StandardProbes(dbpool, redisClient, inspector, jobs.QueueMail), redisClient, metrics)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		CSRFManager:    csrfManager,
		Metrics:        metrics,
		RBACMiddleware: rbacMiddleware,

		AuthHandler:        authHandler,
		DashboardHandler:   dashboard.NewHandler(logger, cmsService, templates, csrfManager),
		ProfileHandler:     users.NewProfileHandler(logger, usersService, templates, csrfManager),
		UsersHandler:       users.NewHandler(logger, usersService, templates, csrfManager, rbacMiddleware),
		PermissionsHandler: rbac.NewPermissionsHandler(logger, rbacService, templates, csrfManager),
		InvitationsHandler: invitations.NewHandler(logger, invitationService, templates, csrfManager, rbacMiddleware),
		CMSHandler:         cms.NewHandler(logger, cmsService, templates, csrfManager),
		SettingsHandler:    settings.NewHandler(logger, settingsService, templates, csrfManager),
		AuditHandler:       audithttp.NewHandler(logger, audit.NewService(audit.NewRepository(dbpool)), templates, csrfManager),
		HealthHandler:      health.NewHandler(logger, healthService, templates, csrfManager),

		ContentAPI:  cms.NewAPIHandler(logger, cmsService),
		SettingsAPI: settings.NewAPIHandler(logger, settingsService),
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
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
