package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kirana-event/kirana/internal/app"
	"github.com/kirana-event/kirana/internal/health"
	jobmetrics "github.com/kirana-event/kirana/internal/jobs"
	"github.com/kirana-event/kirana/internal/observability"
	"github.com/kirana-event/kirana/internal/platform/cache"
	"github.com/kirana-event/kirana/internal/platform/db"
	"github.com/kirana-event/kirana/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))
	logger.Info("starting", slog.String("version", app.BuildVersion()), slog.String("env", cfg.AppEnv))

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

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

	redisOpts := cache.AsynqOptions(redisClient.Options())
	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	healthService := health.NewService(health.StandardProbes(pool, redisClient, inspector, jobs.QueueMail), redisClient, metrics)

	mailer := jobs.SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, From: cfg.SMTPFrom}
	invitationJob := jobs.NewInvitationSendJob(mailer, logger, jobMetrics)
	snapshotJob := jobs.NewHealthSnapshotJob(healthService, logger, jobMetrics)

	snapshotTask, err := jobs.NewHealthSnapshotTask(cfg.HealthSnapshotTTL)
	if err != nil {
		logger.Error("build health snapshot task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   redisOpts,
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskInvitationSend, Handler: invitationJob.Handle},
			{Type: jobs.TaskHealthSnapshot, Handler: snapshotJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: cfg.HealthSnapshotCron, Task: snapshotTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	metricsServer := &http.Server{Addr: cfg.WorkerMetricsAddr, Handler: metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		logger.Info("starting worker metrics server", slog.String("addr", cfg.WorkerMetricsAddr))
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("worker metrics server", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}()

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
