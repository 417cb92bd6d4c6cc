// Package jobmetrics instruments the asynq worker: task outcomes, task
// latency, tasks in progress and email delivery.
package jobmetrics

import (
	"errors"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcome labels.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
	StatusSkipped = "skipped"
)

// Metrics holds the job collectors. A nil *Metrics records nothing.
type Metrics struct {
	runs       *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	inProgress *prometheus.GaugeVec
	emails     *prometheus.CounterVec
}

// NewMetrics registers the collectors on reg. A nil reg leaves them
// unregistered, which suits unit tests that only read them back.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kirana_jobs_total",
			Help: "Task executions by task type and outcome.",
		}, []string{"job", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kirana_job_duration_seconds",
			Help:    "Task execution time by task type.",
			Buckets: []float64{.01, .05, .1, .5, 1, 2.5, 5, 10, 30},
		}, []string{"job"}),
		inProgress: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kirana_jobs_in_progress",
			Help: "Tasks currently executing by task type.",
		}, []string{"job"}),
		emails: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kirana_emails_total",
			Help: "Outgoing emails by kind and delivery status.",
		}, []string{"kind", "status"}),
	}
}

// Tracker measures one task execution.
type Tracker struct {
	metrics *Metrics
	job     string
	start   time.Time
}

// Track starts timing job.
func (m *Metrics) Track(job string) *Tracker {
	if m != nil {
		m.inProgress.WithLabelValues(job).Inc()
	}
	return &Tracker{metrics: m, job: job, start: time.Now()}
}

// End records the outcome of the run and returns err unchanged, so a handler
// can finish with `return tracker.End(err)`. Errors wrapping asynq.SkipRetry
// count as skipped rather than failed.
func (t *Tracker) End(err error) error {
	if t == nil || t.metrics == nil {
		return err
	}
	m := t.metrics
	m.inProgress.WithLabelValues(t.job).Dec()
	m.runs.WithLabelValues(t.job, Outcome(err)).Inc()
	m.duration.WithLabelValues(t.job).Observe(time.Since(t.start).Seconds())
	return err
}

// Outcome maps a handler result to its status label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return StatusSuccess
	case errors.Is(err, asynq.SkipRetry):
		return StatusSkipped
	default:
		return StatusFailure
	}
}

// EmailSent counts a delivered or failed email by kind.
func (m *Metrics) EmailSent(kind string, err error) {
	if m == nil {
		return
	}
	status := "sent"
	if err != nil {
		status = "failed"
	}
	m.emails.WithLabelValues(kind, status).Inc()
}
