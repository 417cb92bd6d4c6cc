package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

// SnapshotKey is the Redis key holding the latest snapshot.
const SnapshotKey = "kirana:health:snapshot"

// Observer receives per-probe scores, e.g. Prometheus gauges.
type Observer interface {
	ObserveHealth(probe string, score int)
}

// Service runs health probes.
type Service struct {
	probes   []Probe
	timeout  time.Duration
	redis    redis.UniversalClient
	observer Observer
	now      func() time.Time
}

// NewService creates a Service. client stores snapshots and may be nil.
func NewService(probes []Probe, client redis.UniversalClient, observer Observer) *Service {
	return &Service{
		probes:   probes,
		timeout:  5 * time.Second,
		redis:    client,
		observer: observer,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Metrics runs every probe in parallel. A probe that fails or times out scores 0.
func (s *Service) Metrics(ctx context.Context) Snapshot {
	results := make([]ProbeResult, len(s.probes))
	var g errgroup.Group
	for i, p := range s.probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			start := time.Now()
			score, detail, err := p.Check(pctx)
			res := ProbeResult{Name: p.Name, Label: p.Label, Score: score, Detail: detail, Latency: time.Since(start)}
			if err != nil {
				res.Score = 0
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, r := range results {
		total += r.Score
		if s.observer != nil {
			s.observer.ObserveHealth(r.Name, r.Score)
		}
	}
	avg := 0
	if len(results) > 0 {
		avg = total / len(results)
	}
	return Snapshot{Status: StatusForScore(avg), Score: avg, Probes: results, TakenAt: s.now()}
}

// StoreSnapshot runs the probes and saves the result in Redis for ttl.
func (s *Service) StoreSnapshot(ctx context.Context, ttl time.Duration) (Snapshot, error) {
	if s.redis == nil {
		return Snapshot{}, errors.New("health: redis not configured")
	}
	snap := s.Metrics(ctx)
	data, err := json.Marshal(snap)
	if err != nil {
		return Snapshot{}, err
	}
	if err := s.redis.Set(ctx, SnapshotKey, data, ttl).Err(); err != nil {
		return Snapshot{}, fmt.Errorf("health: store snapshot: %w", err)
	}
	return snap, nil
}

// LatestSnapshot returns the stored snapshot, if any.
func (s *Service) LatestSnapshot(ctx context.Context) (Snapshot, bool, error) {
	if s.redis == nil {
		return Snapshot{}, false, nil
	}
	data, err := s.redis.Get(ctx, SnapshotKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("health: decode snapshot: %w", err)
	}
	return snap, true, nil
}
