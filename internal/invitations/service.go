package invitations

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
	"github.com/kirana-event/kirana/jobs"
)

// Enqueuer hands the invitation email to the worker.
type Enqueuer interface {
	EnqueueInvitation(ctx context.Context, payload jobs.InvitationSendPayload) error
}

// Config holds invitation settings.
type Config struct {
	BaseURL string
	TTL     time.Duration
}

// Service implements the invitation workflow.
type Service struct {
	repo   Repository
	queue  Enqueuer
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. queue may be nil, in which case no email is sent.
func NewService(repo Repository, queue Enqueuer, cfg Config, logger *slog.Logger) *Service {
	if cfg.TTL <= 0 {
		cfg.TTL = 72 * time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, queue: queue, cfg: cfg, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Create issues an invitation for email and enqueues the email task. A failed
// enqueue is logged; the invitation stays valid and can be resent by revoking
// and inviting again.
func (s *Service) Create(ctx context.Context, actorID int64, email string, role access.Role) (Invitation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !role.Valid() {
		role = access.RoleAdmin
	}
	taken, err := s.repo.EmailRegistered(ctx, email)
	if err != nil {
		return Invitation{}, err
	}
	if taken {
		return Invitation{}, ErrEmailTaken
	}
	now := s.now()
	pending, err := s.repo.HasPending(ctx, email, now)
	if err != nil {
		return Invitation{}, err
	}
	if pending {
		return Invitation{}, ErrPending
	}
	token, err := newToken()
	if err != nil {
		return Invitation{}, err
	}
	inv := Invitation{
		ID:        uuid.New(),
		Email:     email,
		Token:     token,
		Role:      role,
		InvitedBy: actorID,
		ExpiresAt: now.Add(s.cfg.TTL),
		CreatedAt: now,
	}
	if err := s.repo.Create(ctx, inv); err != nil {
		return Invitation{}, err
	}
	if s.queue != nil {
		payload := jobs.InvitationSendPayload{
			InvitationID: inv.ID.String(),
			Email:        inv.Email,
			Role:         string(inv.Role),
			AcceptURL:    s.AcceptURL(inv.Token),
			ExpiresAt:    inv.ExpiresAt,
		}
		if err := s.queue.EnqueueInvitation(ctx, payload); err != nil {
			s.logger.Warn("enqueue invitation email", slog.Any("error", err), slog.String("invitation_id", inv.ID.String()))
		}
	}
	return inv, nil
}

// List returns every invitation.
func (s *Service) List(ctx context.Context) ([]Invitation, error) {
	return s.repo.List(ctx)
}

// Revoke cancels an open invitation.
func (s *Service) Revoke(ctx context.Context, actorID int64, id uuid.UUID) error {
	return s.repo.Revoke(ctx, actorID, id, s.now())
}

// Lookup returns the invitation behind token when it can still be used.
func (s *Service) Lookup(ctx context.Context, token string) (Invitation, error) {
	inv, err := s.repo.FindByToken(ctx, strings.TrimSpace(token))
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return Invitation{}, ErrInvitationInvalid
		}
		return Invitation{}, err
	}
	if !inv.Usable(s.now()) {
		return Invitation{}, ErrInvitationInvalid
	}
	return inv, nil
}

// Accept redeems token and creates the account. It returns the new user id.
func (s *Service) Accept(ctx context.Context, token string, account NewAccount) (int64, error) {
	if _, err := s.Lookup(ctx, token); err != nil {
		return 0, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(account.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("invitations: hash password: %w", err)
	}
	return s.repo.Accept(ctx, strings.TrimSpace(token), strings.TrimSpace(account.Name), string(hash), s.now())
}

// AcceptURL is the link mailed to the invitee.
func (s *Service) AcceptURL(token string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + "/auth/invite/" + token
}

func newToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("invitations: token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
