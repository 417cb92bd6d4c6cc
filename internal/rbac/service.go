package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

var (
	// ErrUserInactive indicates the account behind a session was disabled.
	ErrUserInactive = errors.New("rbac: user inactive")
	// ErrUnknownTemplate indicates an unknown permission template id.
	ErrUnknownTemplate = errors.New("rbac: unknown permission template")
)

// Service resolves what a user may see and edits their grants.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// LoadAccess reads the user's role and grants and resolves the navigation.
func (s *Service) LoadAccess(ctx context.Context, userID int64) (Principal, access.Access, error) {
	p, err := s.repo.FindPrincipal(ctx, userID)
	if err != nil {
		return Principal{}, access.Access{}, err
	}
	if !p.IsActive {
		return Principal{}, access.Access{}, ErrUserInactive
	}
	grants, err := s.repo.ListGrants(ctx, userID)
	if err != nil {
		return Principal{}, access.Access{}, fmt.Errorf("rbac: list grants: %w", err)
	}
	return p, access.DeriveAccessibleNavigation(p.Role, grants), nil
}

// Principal returns a user by id regardless of activity.
func (s *Service) Principal(ctx context.Context, userID int64) (Principal, error) {
	return s.repo.FindPrincipal(ctx, userID)
}

// Grants returns the stored grants of a user.
func (s *Service) Grants(ctx context.Context, userID int64) ([]access.PermissionGrant, error) {
	return s.repo.ListGrants(ctx, userID)
}

// Users lists every account for the permission editor.
func (s *Service) Users(ctx context.Context) ([]UserSummary, error) {
	return s.repo.ListUsers(ctx)
}

// CanEdit reports whether actor may change target's grants. Only a superadmin
// edits their own grants, and nobody edits an account ranked above them.
func CanEdit(actor, target Principal) bool {
	if actor.ID == target.ID {
		return actor.IsSuperadmin()
	}
	return actor.Role.AtLeast(target.Role)
}

// ApplyTemplate expands templateID, merges custom on top and replaces the
// user's grants. An empty templateID stores only the custom grants.
func (s *Service) ApplyTemplate(ctx context.Context, actor Principal, userID int64, templateID string, custom []access.PermissionGrant) ([]access.PermissionGrant, error) {
	target, err := s.repo.FindPrincipal(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !CanEdit(actor, target) {
		return nil, shared.ErrForbidden
	}
	var base []access.PermissionGrant
	if templateID != "" {
		if _, ok := access.LookupTemplate(templateID); !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, templateID)
		}
		base = access.ResolveTemplatePermissions(templateID)
	}
	merged := access.MergePermissions(base, custom)
	meta := map[string]any{
		"template": templateID,
		"grants":   len(merged),
		"custom":   len(custom),
	}
	if err := s.repo.ReplaceGrants(ctx, actor.ID, userID, merged, meta); err != nil {
		return nil, err
	}
	return merged, nil
}
