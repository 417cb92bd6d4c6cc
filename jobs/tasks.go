package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueMail carries outgoing email and is polled first.
	QueueMail = "mail"
	// QueueDefault carries housekeeping such as health snapshots.
	QueueDefault = "default"
	// TaskInvitationSend mails an admin invitation link.
	TaskInvitationSend = "invitation:send"
	// TaskHealthSnapshot stores the latest system health snapshot.
	TaskHealthSnapshot = "health:snapshot"
)

// InvitationSendPayload describes the invitation email.
type InvitationSendPayload struct {
	InvitationID string    `json:"invitation_id"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	AcceptURL    string    `json:"accept_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// NewInvitationSendTask constructs an Asynq task.
func NewInvitationSendTask(payload InvitationSendPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskInvitationSend, data, asynq.MaxRetry(5), asynq.Queue(QueueMail)), nil
}

// HealthSnapshotPayload configures the snapshot task.
type HealthSnapshotPayload struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// NewHealthSnapshotTask constructs the periodic snapshot task.
func NewHealthSnapshotTask(ttl time.Duration) (*asynq.Task, error) {
	data, err := json.Marshal(HealthSnapshotPayload{TTLSeconds: int(ttl.Seconds())})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHealthSnapshot, data, asynq.Queue(QueueDefault)), nil
}
