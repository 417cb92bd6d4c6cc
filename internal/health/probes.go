package health

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/kirana-event/kirana/internal/platform/db"
)

// Probe measures one dependency and returns a 0-100 score.
type Probe struct {
	Name  string
	Label string
	Check func(ctx context.Context) (score int, detail string, err error)
}

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueInspector is satisfied by *asynq.Inspector.
type QueueInspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
}

// DatabaseProbe pings Postgres and scores the latency.
func DatabaseProbe(p Pinger) Probe {
	return Probe{Name: "database", Label: "Database", Check: func(ctx context.Context) (int, string, error) {
		start := time.Now()
		if err := p.Ping(ctx); err != nil {
			return 0, "", err
		}
		elapsed := time.Since(start)
		return LatencyScore(elapsed), fmt.Sprintf("ping %s", elapsed.Round(time.Millisecond)), nil
	}}
}

// RedisProbe pings Redis and scores the latency.
func RedisProbe(client redis.UniversalClient) Probe {
	return Probe{Name: "redis", Label: "Redis", Check: func(ctx context.Context) (int, string, error) {
		start := time.Now()
		if err := client.Ping(ctx).Err(); err != nil {
			return 0, "", err
		}
		elapsed := time.Since(start)
		return LatencyScore(elapsed), fmt.Sprintf("ping %s", elapsed.Round(time.Millisecond)), nil
	}}
}

// CountsProbe reports user and published content counts. It scores 100 when
// the queries succeed.
func CountsProbe(q db.Querier) Probe {
	return Probe{Name: "data", Label: "Data", Check: func(ctx context.Context) (int, string, error) {
		var users, active, published int
		err := q.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM users),
  (SELECT COUNT(*) FROM users WHERE is_active),
  (SELECT COUNT(*) FROM cms_contents WHERE status = 'published')`).Scan(&users, &active, &published)
		if err != nil {
			return 0, "", err
		}
		return 100, fmt.Sprintf("%d pengguna (%d aktif), %d halaman terbit", users, active, published), nil
	}}
}

// QueueProbe scores the pending and retry backlog of a queue.
func QueueProbe(inspector QueueInspector, queue string) Probe {
	return Probe{Name: "queue", Label: "Antrian Job", Check: func(ctx context.Context) (int, string, error) {
		info, err := inspector.GetQueueInfo(queue)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return 100, "antrian belum dipakai", nil
		}
		if err != nil {
			return 0, "", err
		}
		waiting := info.Pending + info.Retry
		return BacklogScore(waiting), fmt.Sprintf("%d menunggu, %d gagal hari ini", waiting, info.Failed), nil
	}}
}

// CPUProbe samples host CPU utilisation.
func CPUProbe(sample time.Duration) Probe {
	return Probe{Name: "cpu", Label: "CPU", Check: func(ctx context.Context) (int, string, error) {
		percents, err := cpu.PercentWithContext(ctx, sample, false)
		if err != nil {
			return 0, "", err
		}
		if len(percents) == 0 {
			return 0, "", fmt.Errorf("health: no cpu sample")
		}
		return UsageScore(percents[0]), fmt.Sprintf("%.1f%% terpakai", percents[0]), nil
	}}
}

// MemoryProbe reads host memory utilisation.
func MemoryProbe() Probe {
	return Probe{Name: "memory", Label: "Memori", Check: func(ctx context.Context) (int, string, error) {
		vm, err := mem.VirtualMemoryWithContext(ctx)
		if err != nil {
			return 0, "", err
		}
		return UsageScore(vm.UsedPercent), fmt.Sprintf("%.1f%% dari %d MiB", vm.UsedPercent, vm.Total>>20), nil
	}}
}

// Store is satisfied by *pgxpool.Pool.
type Store interface {
	Pinger
	db.Querier
}

// StandardProbes is the probe set shared by the dashboard page and the
// snapshot job. A nil inspector drops the queue probe.
func StandardProbes(store Store, client redis.UniversalClient, inspector QueueInspector, queue string) []Probe {
	probes := []Probe{
		DatabaseProbe(store),
		RedisProbe(client),
		CountsProbe(store),
	}
	if inspector != nil {
		probes = append(probes, QueueProbe(inspector, queue))
	}
	return append(probes, CPUProbe(200*time.Millisecond), MemoryProbe())
}
