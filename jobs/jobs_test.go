package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirana-event/kirana/internal/health"
	jobmetrics "github.com/kirana-event/kirana/internal/jobs"
)

type sentMail struct {
	to, subject, body string
}

type stubMailer struct {
	sent []sentMail
	err  error
}

func (m *stubMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent = append(m.sent, sentMail{to, subject, body})
	return m.err
}

func TestInvitationSendTaskPayload(t *testing.T) {
	payload := InvitationSendPayload{InvitationID: "abc", Email: "new@kirana.local", Role: "admin", AcceptURL: "https://kirana.local/auth/invite/tok"}
	task, err := NewInvitationSendTask(payload)
	require.NoError(t, err)
	assert.Equal(t, TaskInvitationSend, task.Type())

	var decoded InvitationSendPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &decoded))
	assert.Equal(t, payload.AcceptURL, decoded.AcceptURL)
}

func TestInvitationSendJobMailsLink(t *testing.T) {
	mailer := &stubMailer{}
	job := NewInvitationSendJob(mailer, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	task, err := NewInvitationSendTask(InvitationSendPayload{
		InvitationID: "abc",
		Email:        "new@kirana.local",
		Role:         "admin",
		AcceptURL:    "https://kirana.local/auth/invite/tok",
		ExpiresAt:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "new@kirana.local", mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].body, "https://kirana.local/auth/invite/tok")
	assert.Contains(t, mailer.sent[0].body, "01 May 2026 09:00")
}

func TestInvitationSendJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewInvitationSendJob(&stubMailer{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskInvitationSend, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskInvitationSend, []byte(`{"email":""}`)))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestInvitationSendJobReturnsMailerError(t *testing.T) {
	boom := errors.New("relay down")
	job := NewInvitationSendJob(&stubMailer{err: boom}, nil, nil)
	task, err := NewInvitationSendTask(InvitationSendPayload{Email: "a@kirana.local", AcceptURL: "https://x/auth/invite/t"})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Handle(context.Background(), task), boom)
}

type stubStorer struct {
	ttl time.Duration
}

func (s *stubStorer) StoreSnapshot(ctx context.Context, ttl time.Duration) (health.Snapshot, error) {
	s.ttl = ttl
	return health.Snapshot{Status: health.StatusHealthy, Score: 95}, nil
}

func TestHealthSnapshotJobUsesPayloadTTL(t *testing.T) {
	storer := &stubStorer{}
	job := NewHealthSnapshotJob(storer, nil, nil)

	task, err := NewHealthSnapshotTask(5 * time.Minute)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 5*time.Minute, storer.ttl)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskHealthSnapshot, nil)))
	assert.Equal(t, defaultSnapshotTTL, storer.ttl)
}
