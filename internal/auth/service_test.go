package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

type fakeRepo struct {
	user     *User
	findErr  error
	lookedUp string
	created  []SessionRecord
	deleted  []string
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*User, error) {
	f.lookedUp = email
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.user == nil || f.user.Email != email {
		return nil, shared.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeRepo) CreateSession(_ context.Context, id string, userID int64, expiresAt time.Time, ip, ua string) error {
	f.created = append(f.created, SessionRecord{ID: id, UserID: userID, ExpiresAt: expiresAt, IP: ip, UserAgent: ua})
	return nil
}

func (f *fakeRepo) DeleteSession(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func userWithPassword(t *testing.T, password string, active bool) *User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &User{ID: 3, Email: "ops@kirana.id", Role: access.RoleAdmin, PasswordHash: string(hash), IsActive: active}
}

func TestAuthenticateNormalisesEmail(t *testing.T) {
	repo := &fakeRepo{user: userWithPassword(t, "rahasia123", true)}
	svc := NewService(repo)

	user, err := svc.Authenticate(context.Background(), "  OPS@Kirana.id ", "rahasia123")
	require.NoError(t, err)
	assert.Equal(t, int64(3), user.ID)
	assert.Equal(t, "ops@kirana.id", repo.lookedUp)
}

func TestAuthenticateFailures(t *testing.T) {
	cases := map[string]*fakeRepo{
		"unknown":  {},
		"wrong":    {user: userWithPassword(t, "rahasia123", true)},
		"inactive": {user: userWithPassword(t, "salah12345", false)},
	}
	for name, repo := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewService(repo).Authenticate(context.Background(), "ops@kirana.id", "salah12345")
			assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
		})
	}
}

func TestAuthenticateSurfacesStoreErrors(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewService(&fakeRepo{findErr: boom}).Authenticate(context.Background(), "ops@kirana.id", "x")
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestStartSessionDefaultsExpiryAndStripsPort(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	err := svc.StartSession(context.Background(), SessionRecord{ID: "abc", UserID: 3, IP: "10.0.0.7:51234", UserAgent: "curl"}, 2*time.Hour)
	require.NoError(t, err)
	require.Len(t, repo.created, 1)
	assert.Equal(t, fixed.Add(2*time.Hour), repo.created[0].ExpiresAt)
	assert.Equal(t, "10.0.0.7", repo.created[0].IP)

	assert.Error(t, svc.StartSession(context.Background(), SessionRecord{UserID: 3}, time.Hour))
}

func TestEndSessionIgnoresEmptyID(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo)
	require.NoError(t, svc.EndSession(context.Background(), ""))
	require.NoError(t, svc.EndSession(context.Background(), "abc"))
	assert.Equal(t, []string{"abc"}, repo.deleted)
}

func TestUnknownRoleCannotSignIn(t *testing.T) {
	user := userWithPassword(t, "rahasia123", true)
	user.Role = access.Role("owner")
	_, err := NewService(&fakeRepo{user: user}).Authenticate(context.Background(), "ops@kirana.id", "rahasia123")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	assert.Equal(t, "ops@kirana.id", user.DisplayName())
	user.Name = "Ops"
	assert.Equal(t, "Ops", user.DisplayName())
	var none *User
	assert.False(t, none.CanSignIn())
}
