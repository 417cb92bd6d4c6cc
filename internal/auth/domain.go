package auth

import (
	"time"

	"github.com/kirana-event/kirana/internal/access"
)

// User is the account row read at login. PasswordHash is a bcrypt hash.
type User struct {
	ID           int64
	Email        string
	Name         string
	Role         access.Role
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// DisplayName is the name shown in greetings, falling back to the email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// CanSignIn reports whether the account may open a session: active and
// carrying a role the dashboard knows.
func (u *User) CanSignIn() bool {
	if u == nil || !u.IsActive {
		return false
	}
	_, ok := access.ParseRole(string(u.Role))
	return ok
}
