// Package access derives what a dashboard user may see and visit from their
// role and explicit permission grants, and expands permission templates.
//
// Everything here is pure over static catalogs and caller-supplied grants.
package access

import "strings"

// Access is the resolved navigation for one user.
type Access struct {
	Role         Role
	Sections     []NavigationSection
	AllowedPaths []string
}

// DeriveAccessibleNavigation filters the dashboard catalog for role and grants.
func DeriveAccessibleNavigation(role Role, grants []PermissionGrant) Access {
	return Resolve(dashboardSections, role, grants)
}

// Resolve filters sections for role and grants. Sections left without items are
// dropped. AllowedPaths is never empty.
func Resolve(sections []NavigationSection, role Role, grants []PermissionGrant) Access {
	granted := newGrantIndex(grants)

	out := make([]NavigationSection, 0, len(sections))
	paths := newPathSet()
	for _, section := range sections {
		items := make([]NavigationItem, 0, len(section.Items))
		for _, item := range section.Items {
			if !itemVisible(item, role, granted) {
				continue
			}
			items = append(items, item)
			paths.add(item.Href)
		}
		if len(items) == 0 {
			continue
		}
		out = append(out, NavigationSection{Title: section.Title, Items: items})
	}

	allowed := paths.list()
	if len(allowed) > 0 && !paths.has(DashboardPath) {
		allowed = append(allowed, DashboardPath)
	}
	if len(allowed) == 0 {
		allowed = []string{DashboardPath}
	}
	return Access{Role: role, Sections: out, AllowedPaths: allowed}
}

func itemVisible(item NavigationItem, role Role, granted grantIndex) bool {
	if item.Roles != nil {
		return containsRole(item.Roles, role)
	}
	if role.IsAdmin() {
		return true
	}
	if item.PageKey == "" && item.FeatureKey == "" {
		return true
	}
	return granted.features[EffectiveFeatureKey(item)] ||
		granted.pages[EffectivePageKey(item)] ||
		granted.pages[item.Href]
}

// DeriveKey turns a dashboard href into a permission key: the first
// "/dashboard/" segment is removed and an empty remainder becomes "dashboard".
func DeriveKey(href string) string {
	key := strings.Replace(href, DashboardPath+"/", "", 1)
	if key == "" {
		return "dashboard"
	}
	return key
}

// EffectiveFeatureKey is the item's feature key, or the key derived from its href.
func EffectiveFeatureKey(item NavigationItem) string {
	if item.FeatureKey != "" {
		return item.FeatureKey
	}
	return DeriveKey(item.Href)
}

// EffectivePageKey is the item's page key, or the key derived from its href.
func EffectivePageKey(item NavigationItem) string {
	if item.PageKey != "" {
		return item.PageKey
	}
	return DeriveKey(item.Href)
}

// Allows reports whether path is reachable. A path matches an allowed entry when
// it is equal to it or nested below it; the dashboard root only matches itself.
func (a Access) Allows(path string) bool {
	path = normalizePath(path)
	for _, allowed := range a.AllowedPaths {
		if path == allowed {
			return true
		}
		if allowed == DashboardPath {
			continue
		}
		if strings.HasPrefix(path, allowed+"/") {
			return true
		}
	}
	return false
}

// FallbackPath is where a disallowed navigation is redirected.
func (a Access) FallbackPath() string {
	if len(a.AllowedPaths) == 0 {
		return DashboardPath
	}
	return a.AllowedPaths[0]
}

// HasItem reports whether an item with href survived filtering.
func (a Access) HasItem(href string) bool {
	for _, section := range a.Sections {
		for _, item := range section.Items {
			if item.Href == href {
				return true
			}
		}
	}
	return false
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return path
}

func containsRole(roles []Role, role Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

type grantIndex struct {
	pages    map[string]bool
	features map[string]bool
}

func newGrantIndex(grants []PermissionGrant) grantIndex {
	idx := grantIndex{pages: make(map[string]bool), features: make(map[string]bool)}
	for _, g := range grants {
		if !g.AccessGranted {
			continue
		}
		if page := g.Page(); page != "" {
			idx.pages[page] = true
		}
		if feature := g.Feature(); feature != "" {
			idx.features[feature] = true
		}
	}
	return idx
}

type pathSet struct {
	seen  map[string]struct{}
	order []string
}

func newPathSet() *pathSet {
	return &pathSet{seen: make(map[string]struct{})}
}

func (s *pathSet) add(path string) {
	if _, ok := s.seen[path]; ok {
		return
	}
	s.seen[path] = struct{}{}
	s.order = append(s.order, path)
}

func (s *pathSet) has(path string) bool {
	_, ok := s.seen[path]
	return ok
}

func (s *pathSet) list() []string {
	return append([]string(nil), s.order...)
}
