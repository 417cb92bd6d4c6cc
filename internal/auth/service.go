package auth

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-event/kirana/internal/shared"
)

// decoyHash is compared against when the account does not exist so unknown
// emails cost the same bcrypt work as wrong passwords.
var decoyHash, _ = bcrypt.GenerateFromPassword([]byte("kirana-decoy-password"), bcrypt.DefaultCost)

// SessionRecord is the login row kept next to the redis session.
type SessionRecord struct {
	ID        string
	UserID    int64
	ExpiresAt time.Time
	IP        string
	UserAgent string
}

// Service checks credentials and tracks login sessions.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService constructs a Service over repo.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Authenticate returns the account matching the credentials when it may sign
// in. Unknown emails, disabled accounts and wrong passwords all yield
// ErrInvalidCredentials; store failures are returned wrapped.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	switch {
	case errors.Is(err, shared.ErrNotFound):
		_ = bcrypt.CompareHashAndPassword(decoyHash, []byte(password))
		return nil, shared.ErrInvalidCredentials
	case err != nil:
		return nil, fmt.Errorf("auth: find user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil || !user.CanSignIn() {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// StartSession records a login. A zero ExpiresAt falls back to ttl from now.
func (s *Service) StartSession(ctx context.Context, rec SessionRecord, ttl time.Duration) error {
	if rec.ID == "" || rec.UserID == 0 {
		return errors.New("auth: session record incomplete")
	}
	if rec.ExpiresAt.IsZero() {
		rec.ExpiresAt = s.now().Add(ttl)
	}
	return s.repo.CreateSession(ctx, rec.ID, rec.UserID, rec.ExpiresAt, clientIP(rec.IP), rec.UserAgent)
}

// EndSession drops the login row for a session id.
func (s *Service) EndSession(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	return s.repo.DeleteSession(ctx, id)
}

// clientIP strips the port from a RemoteAddr style value.
func clientIP(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}
