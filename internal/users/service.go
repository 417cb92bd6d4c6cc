package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filter ListFilter, limit, offset int) ([]User, error)
	CountUsers(ctx context.Context, filter ListFilter) (int, error)
	FindUser(ctx context.Context, id int64) (User, error)
	UpdateRole(ctx context.Context, actorID, id int64, from, to access.Role) error
	SetActive(ctx context.Context, actorID, id int64, active bool) error
	UpdateName(ctx context.Context, id int64, name string) error
	PasswordHash(ctx context.Context, id int64) (string, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, filter ListFilter) (ListResult, error) {
	total, err := s.repo.CountUsers(ctx, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("users: count: %w", err)
	}
	page := shared.NewPagination(filter.Page, shared.DefaultPerPage, total)
	list, err := s.repo.ListUsers(ctx, filter, page.PerPage, page.Offset())
	if err != nil {
		return ListResult{}, fmt.Errorf("users: list: %w", err)
	}
	filter.Page = page.Page
	return ListResult{Users: list, Pagination: page, Filter: filter}, nil
}

// Find returns a single user.
func (s *Service) Find(ctx context.Context, id int64) (User, error) {
	return s.repo.FindUser(ctx, id)
}

// ChangeRole assigns a new role. Only superadmins change roles, and never their own.
func (s *Service) ChangeRole(ctx context.Context, actor rbac.Principal, userID int64, role access.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	if !actor.IsSuperadmin() {
		return shared.ErrForbidden
	}
	if actor.ID == userID {
		return ErrSelfChange
	}
	target, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == role {
		return nil
	}
	return s.repo.UpdateRole(ctx, actor.ID, userID, target.Role, role)
}

// SetActive enables or disables an account. Nobody disables themselves or an
// account ranked above them.
func (s *Service) SetActive(ctx context.Context, actor rbac.Principal, userID int64, active bool) error {
	if actor.ID == userID {
		return ErrSelfChange
	}
	target, err := s.repo.FindUser(ctx, userID)
	if err != nil {
		return err
	}
	if !actor.Role.AtLeast(target.Role) {
		return shared.ErrForbidden
	}
	if target.IsActive == active {
		return nil
	}
	return s.repo.SetActive(ctx, actor.ID, userID, active)
}

// UpdateName changes the signed-in user's display name.
func (s *Service) UpdateName(ctx context.Context, actor rbac.Principal, name string) error {
	return s.repo.UpdateName(ctx, actor.ID, strings.TrimSpace(name))
}

// ChangePassword replaces the signed-in user's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, actor rbac.Principal, current, next string) error {
	hash, err := s.repo.PasswordHash(ctx, actor.ID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(current)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrWrongPassword
		}
		return err
	}
	newHash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("users: hash password: %w", err)
	}
	return s.repo.UpdatePassword(ctx, actor.ID, string(newHash))
}
