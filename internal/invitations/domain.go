package invitations

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/kirana-event/kirana/internal/access"
)

var (
	// ErrInvitationInvalid covers unknown, expired, revoked and already used tokens.
	ErrInvitationInvalid = errors.New("invitations: invitation invalid or expired")
	// ErrEmailTaken indicates an account already exists for the address.
	ErrEmailTaken = errors.New("invitations: email already registered")
	// ErrPending indicates an open invitation already exists for the address.
	ErrPending = errors.New("invitations: pending invitation exists")
)

// Status values derived from the invitation timestamps.
const (
	StatusPending  = "pending"
	StatusAccepted = "accepted"
	StatusRevoked  = "revoked"
	StatusExpired  = "expired"
)

// Invitation is an admin invitation sent by a superadmin.
type Invitation struct {
	ID         uuid.UUID
	Email      string
	Token      string
	Role       access.Role
	InvitedBy  int64
	ExpiresAt  time.Time
	AcceptedAt *time.Time
	RevokedAt  *time.Time
	CreatedAt  time.Time
}

// Status reports the invitation state at now.
func (i Invitation) Status(now time.Time) string {
	switch {
	case i.AcceptedAt != nil:
		return StatusAccepted
	case i.RevokedAt != nil:
		return StatusRevoked
	case !now.Before(i.ExpiresAt):
		return StatusExpired
	default:
		return StatusPending
	}
}

// Usable reports whether the token may still be redeemed.
func (i Invitation) Usable(now time.Time) bool {
	return i.Status(now) == StatusPending
}

// NewAccount carries the fields captured on the acceptance form.
type NewAccount struct {
	Name     string
	Password string
}
