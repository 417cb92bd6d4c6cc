package jobmetrics

import (
	"errors"
	"fmt"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	tracker := m.Track("health:snapshot")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inProgress.WithLabelValues("health:snapshot")))
	assert.NoError(t, tracker.End(nil))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.inProgress.WithLabelValues("health:snapshot")))

	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("health:snapshot").End(boom), boom)
	skip := fmt.Errorf("bad payload: %w", asynq.SkipRetry)
	assert.ErrorIs(t, m.Track("health:snapshot").End(skip), asynq.SkipRetry)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("health:snapshot", StatusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("health:snapshot", StatusFailure)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("health:snapshot", StatusSkipped)))
}

func TestRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.EmailSent("invitation", nil)
	_ = m.Track("invitation:send").End(nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Subset(t, names, []string{"kirana_jobs_total", "kirana_job_duration_seconds", "kirana_emails_total", "kirana_jobs_in_progress"})
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.EmailSent("invitation", nil)

	unregistered := NewMetrics(nil)
	assert.NoError(t, unregistered.Track("x").End(nil))
}

func TestEmailSent(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.EmailSent("invitation", nil)
	m.EmailSent("invitation", errors.New("smtp down"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("invitation", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.emails.WithLabelValues("invitation", "failed")))
}
