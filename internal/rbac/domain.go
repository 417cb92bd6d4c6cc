package rbac

import (
	"context"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/view"
)

// Principal describes the authenticated actor.
type Principal struct {
	ID       int64
	Email    string
	Name     string
	Role     access.Role
	IsActive bool
}

// IsSuperadmin reports whether the principal holds the top role.
func (p Principal) IsSuperadmin() bool {
	return p.Role == access.RoleSuperadmin
}

// Badge converts the principal for the layout header.
func (p Principal) Badge() *view.UserBadge {
	return &view.UserBadge{ID: p.ID, Name: p.Name, Email: p.Email, Role: p.Role}
}

// UserSummary is a row in the permission editor's user picker.
type UserSummary struct {
	ID         int64
	Email      string
	Name       string
	Role       access.Role
	IsActive   bool
	GrantCount int
}

type principalKey struct{}

type accessKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal stored by Guard.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

// ContextWithAccess stores the resolved navigation in context.
func ContextWithAccess(ctx context.Context, acc access.Access) context.Context {
	return context.WithValue(ctx, accessKey{}, acc)
}

// AccessFromContext returns the navigation resolved for this request.
func AccessFromContext(ctx context.Context) (access.Access, bool) {
	acc, ok := ctx.Value(accessKey{}).(access.Access)
	return acc, ok
}
