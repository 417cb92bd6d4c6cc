package access

import "strings"

// Role is the coarse privilege tier stored on a user record.
type Role string

const (
	RoleUser       Role = "user"
	RoleAdmin      Role = "admin"
	RoleSuperadmin Role = "superadmin"
)

var roleLevels = map[Role]int{
	RoleUser:       1,
	RoleAdmin:      2,
	RoleSuperadmin: 3,
}

// ParseRole normalises a stored role value. Unknown values report false.
func ParseRole(raw string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := roleLevels[role]; !ok {
		return "", false
	}
	return role, true
}

// Roles lists every role from least to most privileged.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleSuperadmin}
}

// Valid reports whether the role is one of the known tiers.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// AtLeast reports whether r is as privileged as min.
func (r Role) AtLeast(min Role) bool {
	level, ok := roleLevels[r]
	if !ok {
		return false
	}
	return level >= roleLevels[min]
}

// IsAdmin is true for admin and superadmin.
func (r Role) IsAdmin() bool {
	return r.AtLeast(RoleAdmin)
}

func (r Role) String() string {
	return string(r)
}

// PermissionGrant is one explicit allow or deny override for a user.
type PermissionGrant struct {
	PageKey       *string `json:"page_key"`
	FeatureKey    *string `json:"feature_key"`
	AccessGranted bool    `json:"access_granted"`
}

// NewGrant builds a grant from plain strings; empty keys become nil.
func NewGrant(pageKey, featureKey string, granted bool) PermissionGrant {
	return PermissionGrant{PageKey: optional(pageKey), FeatureKey: optional(featureKey), AccessGranted: granted}
}

// Page returns the page key or "" when unset.
func (g PermissionGrant) Page() string {
	if g.PageKey == nil {
		return ""
	}
	return *g.PageKey
}

// Feature returns the feature key or "" when unset.
func (g PermissionGrant) Feature() string {
	if g.FeatureKey == nil {
		return ""
	}
	return *g.FeatureKey
}

// NavigationItem is one entry in the dashboard sidebar.
type NavigationItem struct {
	Title      string
	Href       string
	Icon       string
	PageKey    string
	FeatureKey string
	// Roles restricts the item when non-nil; an empty list hides it from everyone.
	Roles      []Role
}

// NavigationSection groups sidebar entries under a heading.
type NavigationSection struct {
	Title string
	Items []NavigationItem
}

// PermissionDefinition is one grantable permission.
type PermissionDefinition struct {
	ID          string
	PageKey     string
	FeatureKey  string
	Label       string
	Description string
}

// Grant converts the definition into an allowing grant.
func (d PermissionDefinition) Grant() PermissionGrant {
	return NewGrant(d.PageKey, d.FeatureKey, true)
}

// PermissionTemplate is a named bundle of permission definitions.
type PermissionTemplate struct {
	ID            string
	Label         string
	Description   string
	PermissionIDs []string
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
