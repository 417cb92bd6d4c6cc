package jobs

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
)

type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
	Close() error
}

// Client enqueues tasks for the worker.
type Client struct {
	client enqueuer
}

// NewClient connects an asynq client.
func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	return &Client{client: asynq.NewClient(redisOpts)}
}

// EnqueueInvitation queues the invitation email. The task id is derived from
// the invitation, so a repeated call while the task is pending is a no-op.
func (c *Client) EnqueueInvitation(ctx context.Context, payload InvitationSendPayload) error {
	task, err := NewInvitationSendTask(payload)
	if err != nil {
		return err
	}
	_, err = c.client.EnqueueContext(ctx, task, asynq.TaskID(TaskInvitationSend+":"+payload.InvitationID))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// Close releases the redis connection.
func (c *Client) Close() error {
	return c.client.Close()
}
