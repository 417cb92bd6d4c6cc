package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveAdminTemplate(t *testing.T) {
	grants := ResolveTemplatePermissions("admin")
	require.Len(t, grants, 6)

	tpl, ok := LookupTemplate("admin")
	require.True(t, ok)
	for i, id := range tpl.PermissionIDs {
		def, ok := LookupDefinition(id)
		require.True(t, ok, id)
		assert.True(t, grants[i].AccessGranted)
		assert.Equal(t, def.PageKey, grants[i].Page())
		assert.Equal(t, def.FeatureKey, grants[i].Feature())
	}
}

func TestResolveUnknownTemplate(t *testing.T) {
	grants := ResolveTemplatePermissions("nonexistent-id")
	assert.NotNil(t, grants)
	assert.Empty(t, grants)
}

func TestEveryTemplateReferencesKnownDefinitions(t *testing.T) {
	for _, tpl := range Templates() {
		assert.Len(t, ResolveTemplatePermissions(tpl.ID), len(tpl.PermissionIDs), tpl.ID)
	}
}

func TestEveryKeyedItemHasADefinition(t *testing.T) {
	defs := make(map[string]bool)
	for _, def := range Definitions() {
		defs[def.PageKey+":"+def.FeatureKey] = true
	}
	for _, section := range Sections() {
		for _, item := range section.Items {
			if item.PageKey == "" && item.FeatureKey == "" {
				continue
			}
			assert.Truef(t, defs[item.PageKey+":"+item.FeatureKey], "no definition for %s", item.Href)
		}
	}
}

func TestContentEditorTemplateOpensCMSPages(t *testing.T) {
	acc := DeriveAccessibleNavigation(RoleUser, ResolveTemplatePermissions("content-editor"))
	assert.Equal(t, []string{"Dashboard", "Konten"}, sectionTitles(acc.Sections))
	assert.True(t, acc.Allows("/dashboard/cms/about"))
	assert.False(t, acc.Allows("/dashboard/users"))
}

func TestMergeCustomOverridesTemplate(t *testing.T) {
	template := ResolveTemplatePermissions("admin")
	custom := []PermissionGrant{
		NewGrant("users", "manage-users", false),
		NewGrant("cms-about", "cms-about-edit", true),
	}
	merged := MergePermissions(template, custom)

	require.Len(t, merged, 7)
	byKey := make(map[string]PermissionGrant, len(merged))
	for _, g := range merged {
		byKey[GrantKey(g)] = g
	}
	assert.False(t, byKey["users:manage-users"].AccessGranted)
	assert.True(t, byKey["cms-about:cms-about-edit"].AccessGranted)
	assert.True(t, byKey["profile:edit"].AccessGranted)
	// Key order follows first appearance.
	assert.Equal(t, "profile:edit", GrantKey(merged[0]))
	assert.Equal(t, "cms-about:cms-about-edit", GrantKey(merged[6]))
}

func TestMergeTemplateAfterCustomIsNotImplied(t *testing.T) {
	custom := []PermissionGrant{NewGrant("users", "manage-users", false)}
	merged := MergePermissions(nil, custom)
	require.Len(t, merged, 1)
	assert.False(t, merged[0].AccessGranted)
}

func TestMergeKeysNilPageAsEmpty(t *testing.T) {
	a := PermissionGrant{FeatureKey: NewGrant("", "view-audit", true).FeatureKey, AccessGranted: true}
	b := NewGrant("", "view-audit", false)
	merged := MergePermissions([]PermissionGrant{a}, []PermissionGrant{b})
	require.Len(t, merged, 1)
	assert.Equal(t, ":view-audit", GrantKey(merged[0]))
	assert.False(t, merged[0].AccessGranted)
}

func TestMergeIsIdempotent(t *testing.T) {
	template := ResolveTemplatePermissions("event-manager")
	custom := []PermissionGrant{NewGrant("cms-product", "cms-product-edit", false)}

	once := MergePermissions(template, custom)
	twice := MergePermissions(template, custom)
	assert.Equal(t, once, twice)

	reapplied := MergePermissions(once, custom)
	assert.Equal(t, once, reapplied)
}

func TestMergeDoesNotAliasInputs(t *testing.T) {
	custom := []PermissionGrant{NewGrant("users", "manage-users", true)}
	merged := MergePermissions(nil, custom)
	*merged[0].PageKey = "changed"
	assert.Equal(t, "users", custom[0].Page())
}
