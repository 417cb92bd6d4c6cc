package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"
)

// Worker runs the asynq server and, when cron entries exist, the scheduler.
type Worker struct {
	server    *asynq.Server
	mux       *asynq.ServeMux
	scheduler *asynq.Scheduler
	logger    *slog.Logger
}

// TaskHandler binds a task type to its handler.
type TaskHandler struct {
	Type    string
	Handler asynq.HandlerFunc
}

// CronRegistration enqueues Task on the Spec schedule (UTC).
type CronRegistration struct {
	Spec    string
	Task    *asynq.Task
	Options []asynq.Option
}

// WorkerConfig collects what NewWorker needs.
type WorkerConfig struct {
	RedisOpts   asynq.RedisClientOpt
	Logger      *slog.Logger
	Concurrency int
	Handlers    []TaskHandler
	Cron        []CronRegistration
}

// queuePriorities weights mail over housekeeping when both have backlog.
var queuePriorities = map[string]int{
	QueueMail:    6,
	QueueDefault: 3,
}

// NewWorker builds the server, the mux and the scheduler. A cron spec that
// does not parse is an error.
func NewWorker(cfg WorkerConfig) (*Worker, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 5
	}
	w := &Worker{logger: logger, mux: asynq.NewServeMux()}
	w.server = asynq.NewServer(cfg.RedisOpts, asynq.Config{
		Concurrency:     concurrency,
		Queues:          queuePriorities,
		Logger:          newAsynqLogger(logger),
		ErrorHandler:    asynq.ErrorHandlerFunc(w.reportFailure),
		ShutdownTimeout: 10 * time.Second,
	})
	w.mux.Use(w.instrument)
	for _, h := range cfg.Handlers {
		if h.Type == "" || h.Handler == nil {
			continue
		}
		w.mux.HandleFunc(h.Type, h.Handler)
	}

	if len(cfg.Cron) > 0 {
		w.scheduler = asynq.NewScheduler(cfg.RedisOpts, &asynq.SchedulerOpts{Location: time.UTC, Logger: newAsynqLogger(logger)})
		for _, entry := range cfg.Cron {
			if entry.Task == nil {
				continue
			}
			if _, err := w.scheduler.Register(entry.Spec, entry.Task, entry.Options...); err != nil {
				return nil, fmt.Errorf("jobs: register %s at %q: %w", entry.Task.Type(), entry.Spec, err)
			}
		}
	}
	return w, nil
}

// Run processes tasks until ctx is cancelled, then drains both components.
func (w *Worker) Run(ctx context.Context) error {
	if w == nil || w.server == nil {
		return errors.New("jobs: worker not configured")
	}
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("jobs: start server: %w", err)
	}
	g, ctx := errgroup.WithContext(ctx)
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			w.server.Shutdown()
			return fmt.Errorf("jobs: start scheduler: %w", err)
		}
		g.Go(func() error {
			<-ctx.Done()
			w.scheduler.Shutdown()
			return nil
		})
	}
	g.Go(func() error {
		<-ctx.Done()
		w.server.Shutdown()
		return nil
	})
	w.logger.Info("worker started", slog.Any("queues", queuePriorities))
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// instrument logs each attempt and turns a handler panic into an error so
// asynq retries the task instead of losing it.
func (w *Worker) instrument(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) (err error) {
		id, _ := asynq.GetTaskID(ctx)
		retry, _ := asynq.GetRetryCount(ctx)
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("jobs: %s panicked: %v", t.Type(), r)
			}
			attrs := []slog.Attr{
				slog.String("task", t.Type()),
				slog.String("task_id", id),
				slog.Int("retry", retry),
				slog.Duration("duration", time.Since(start)),
			}
			if err != nil {
				attrs = append(attrs, slog.Any("error", err))
				w.logger.LogAttrs(ctx, slog.LevelWarn, "task failed", attrs...)
				return
			}
			w.logger.LogAttrs(ctx, slog.LevelDebug, "task done", attrs...)
		}()
		return next.ProcessTask(ctx, t)
	})
}

// reportFailure logs tasks that exhausted their retries.
func (w *Worker) reportFailure(ctx context.Context, t *asynq.Task, err error) {
	retry, _ := asynq.GetRetryCount(ctx)
	maxRetry, _ := asynq.GetMaxRetry(ctx)
	if retry < maxRetry && !errors.Is(err, asynq.SkipRetry) {
		return
	}
	id, _ := asynq.GetTaskID(ctx)
	w.logger.Error("task archived", slog.String("task", t.Type()), slog.String("task_id", id), slog.Any("error", err))
}

// asynqLogger adapts slog to asynq.Logger.
type asynqLogger struct {
	logger *slog.Logger
}

func newAsynqLogger(logger *slog.Logger) asynq.Logger {
	return asynqLogger{logger: logger.With(slog.String("component", "asynq"))}
}

func (l asynqLogger) Debug(args ...any) { l.logger.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.logger.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.logger.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.logger.Error(fmt.Sprint(args...)) }
