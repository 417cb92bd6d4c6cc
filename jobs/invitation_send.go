package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/kirana-event/kirana/internal/jobs"
)

// InvitationSendJob mails the invitation link.
type InvitationSendJob struct {
	Mailer  Mailer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewInvitationSendJob wires dependencies for the invitation email handler.
func NewInvitationSendJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *InvitationSendJob {
	return &InvitationSendJob{Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes TaskInvitationSend tasks.
func (j *InvitationSendJob) Handle(ctx context.Context, t *asynq.Task) (err error) {
	if j == nil || j.Mailer == nil {
		return errors.New("invitation send: handler not configured")
	}
	var payload InvitationSendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invitation send: decode payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Email == "" || payload.AcceptURL == "" {
		return fmt.Errorf("invitation send: incomplete payload: %w", asynq.SkipRetry)
	}
	tracker := j.Metrics.Track(TaskInvitationSend)
	defer func() { err = tracker.End(err) }()

	subject, body := InvitationEmail(payload)
	err = j.Mailer.Send(ctx, payload.Email, subject, body)
	j.Metrics.EmailSent("invitation", err)
	logger := j.logger().With(slog.String("invitation_id", payload.InvitationID))
	if err != nil {
		logger.Warn("invitation email failed", slog.Any("error", err))
		return err
	}
	logger.Info("invitation email sent")
	return nil
}

// InvitationEmail renders the subject and body of the invitation email.
func InvitationEmail(p InvitationSendPayload) (string, string) {
	var b strings.Builder
	b.WriteString("Halo,\n\n")
	fmt.Fprintf(&b, "Anda diundang sebagai %s di dashboard Kirana.\n", p.Role)
	b.WriteString("Buka tautan berikut untuk membuat akun:\n\n")
	b.WriteString(p.AcceptURL + "\n\n")
	if !p.ExpiresAt.IsZero() {
		fmt.Fprintf(&b, "Tautan berlaku sampai %s UTC.\n", p.ExpiresAt.UTC().Format("02 Jan 2006 15:04"))
	}
	return "Undangan Dashboard Kirana", b.String()
}

func (j *InvitationSendJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
