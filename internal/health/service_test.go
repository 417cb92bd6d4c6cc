package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedProbe(name string, score int, err error) Probe {
	return Probe{Name: name, Label: name, Check: func(ctx context.Context) (int, string, error) {
		return score, "ok", err
	}}
}

type recordingObserver struct {
	mu     sync.Mutex
	scores map[string]int
}

func (o *recordingObserver) ObserveHealth(probe string, score int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.scores == nil {
		o.scores = map[string]int{}
	}
	o.scores[probe] = score
}

func TestStatusForScore(t *testing.T) {
	assert.Equal(t, StatusHealthy, StatusForScore(80))
	assert.Equal(t, StatusDegraded, StatusForScore(79))
	assert.Equal(t, StatusDegraded, StatusForScore(50))
	assert.Equal(t, StatusCritical, StatusForScore(49))
}

func TestScoreHelpers(t *testing.T) {
	assert.Equal(t, 100, LatencyScore(5*time.Millisecond))
	assert.Equal(t, 20, LatencyScore(3*time.Second))
	assert.Equal(t, 100, BacklogScore(0))
	assert.Equal(t, 50, BacklogScore(500))
	assert.Equal(t, 75, UsageScore(25))
	assert.Equal(t, 0, UsageScore(140))
}

func TestMetricsAveragesAndZeroesFailures(t *testing.T) {
	obs := &recordingObserver{}
	svc := NewService([]Probe{
		fixedProbe("database", 100, nil),
		fixedProbe("redis", 80, nil),
		fixedProbe("queue", 90, errors.New("queue down")),
	}, nil, obs)

	snap := svc.Metrics(context.Background())
	require.Len(t, snap.Probes, 3)
	assert.Equal(t, "database", snap.Probes[0].Name)
	assert.Equal(t, 0, snap.Probes[2].Score)
	assert.Equal(t, "queue down", snap.Probes[2].Error)
	assert.Equal(t, 60, snap.Score)
	assert.Equal(t, StatusDegraded, snap.Status)
	assert.Equal(t, 0, obs.scores["queue"])
}

func TestMetricsTimesOutSlowProbe(t *testing.T) {
	slow := Probe{Name: "slow", Check: func(ctx context.Context) (int, string, error) {
		<-ctx.Done()
		return 100, "", ctx.Err()
	}}
	svc := NewService([]Probe{slow}, nil, nil)
	svc.timeout = 10 * time.Millisecond

	snap := svc.Metrics(context.Background())
	assert.Equal(t, 0, snap.Score)
	assert.Equal(t, StatusCritical, snap.Status)
}

func TestMetricsWithoutProbesIsCritical(t *testing.T) {
	snap := NewService(nil, nil, nil).Metrics(context.Background())
	assert.Equal(t, StatusCritical, snap.Status)
	assert.Empty(t, snap.Probes)
}

func TestSnapshotRoundTripThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc := NewService([]Probe{RedisProbe(client)}, client, nil)

	_, ok, err := svc.LatestSnapshot(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)

	stored, err := svc.StoreSnapshot(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StatusHealthy, stored.Status)
	assert.Equal(t, time.Minute, mr.TTL(SnapshotKey))

	latest, ok, err := svc.LatestSnapshot(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, stored.Score, latest.Score)
	assert.Equal(t, "redis", latest.Probes[0].Name)
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

func TestQueueProbe(t *testing.T) {
	score, detail, err := QueueProbe(stubInspector{info: &asynq.QueueInfo{Pending: 40, Retry: 2, Failed: 1}}, "default").Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 80, score)
	assert.Contains(t, detail, "42 menunggu")

	_, _, err = QueueProbe(stubInspector{err: errors.New("no redis")}, "default").Check(context.Background())
	assert.Error(t, err)

	score, _, err = QueueProbe(stubInspector{err: fmt.Errorf("inspect: %w", asynq.ErrQueueNotFound)}, "mail").Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, score)
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(ctx context.Context) error { return s.err }

func TestDatabaseProbe(t *testing.T) {
	score, _, err := DatabaseProbe(stubPinger{}).Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, score)

	_, _, err = DatabaseProbe(stubPinger{err: errors.New("refused")}).Check(context.Background())
	assert.Error(t, err)
}
