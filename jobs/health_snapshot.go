package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/kirana-event/kirana/internal/health"
	jobmetrics "github.com/kirana-event/kirana/internal/jobs"
)

const defaultSnapshotTTL = 15 * time.Minute

// SnapshotStorer is satisfied by *health.Service.
type SnapshotStorer interface {
	StoreSnapshot(ctx context.Context, ttl time.Duration) (health.Snapshot, error)
}

// HealthSnapshotJob stores the latest system health snapshot in Redis.
type HealthSnapshotJob struct {
	Health  SnapshotStorer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewHealthSnapshotJob wires dependencies for the snapshot handler.
func NewHealthSnapshotJob(svc SnapshotStorer, logger *slog.Logger, metrics *jobmetrics.Metrics) *HealthSnapshotJob {
	return &HealthSnapshotJob{Health: svc, Logger: logger, Metrics: metrics}
}

// Handle processes TaskHealthSnapshot tasks.
func (j *HealthSnapshotJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Health == nil {
		return errors.New("health snapshot: handler not configured")
	}
	var payload HealthSnapshotPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("health snapshot: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	ttl := time.Duration(payload.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = defaultSnapshotTTL
	}

	tracker := j.Metrics.Track(TaskHealthSnapshot)
	defer func() { err = tracker.End(err) }()

	snap, err := j.Health.StoreSnapshot(ctx, ttl)
	if err != nil {
		return err
	}
	logger := j.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("health snapshot stored", slog.String("status", string(snap.Status)), slog.Int("score", snap.Score))
	return nil
}
