package users

import (
	"errors"
	"time"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

var (
	// ErrSelfChange blocks changing one's own role or activity.
	ErrSelfChange = errors.New("users: cannot change own role or status")
	// ErrWrongPassword indicates the current password did not match.
	ErrWrongPassword = errors.New("users: current password mismatch")
	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("users: invalid role")
)

// User represents a user account for management.
type User struct {
	ID         int64
	Email      string
	Name       string
	Role       access.Role
	IsActive   bool
	GrantCount int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// ListFilter narrows the user listing.
type ListFilter struct {
	Query string
	Role  access.Role
	Page  int
}

// ListResult is one page of users.
type ListResult struct {
	Users      []User
	Pagination shared.Pagination
	Filter     ListFilter
}
