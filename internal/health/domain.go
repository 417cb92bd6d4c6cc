package health

import "time"

// Status is the overall health bucket.
type Status string

// Health buckets by average probe score.
const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusCritical Status = "critical"
)

// ProbeResult is the outcome of one probe.
type ProbeResult struct {
	Name    string        `json:"name"`
	Label   string        `json:"label"`
	Score   int           `json:"score"`
	Detail  string        `json:"detail,omitempty"`
	Error   string        `json:"error,omitempty"`
	Latency time.Duration `json:"latency_ns"`
}

// Snapshot aggregates every probe at one point in time.
type Snapshot struct {
	Status  Status        `json:"status"`
	Score   int           `json:"score"`
	Probes  []ProbeResult `json:"probes"`
	TakenAt time.Time     `json:"taken_at"`
}

// StatusForScore maps an average score to a bucket.
func StatusForScore(score int) Status {
	switch {
	case score >= 80:
		return StatusHealthy
	case score >= 50:
		return StatusDegraded
	default:
		return StatusCritical
	}
}

// LatencyScore grades a round-trip time.
func LatencyScore(d time.Duration) int {
	switch {
	case d < 50*time.Millisecond:
		return 100
	case d < 200*time.Millisecond:
		return 80
	case d < 500*time.Millisecond:
		return 60
	case d < time.Second:
		return 40
	default:
		return 20
	}
}

// BacklogScore grades the number of waiting jobs.
func BacklogScore(waiting int) int {
	switch {
	case waiting <= 10:
		return 100
	case waiting <= 100:
		return 80
	case waiting <= 1000:
		return 50
	default:
		return 20
	}
}

// UsageScore grades a utilisation percentage; lower usage scores higher.
func UsageScore(percent float64) int {
	score := int(100 - percent + 0.5)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
