package access

// ResolveTemplatePermissions expands a template into allowing grants. Unknown
// templates yield an empty slice; definition ids that do not resolve are skipped.
func ResolveTemplatePermissions(templateID string) []PermissionGrant {
	tpl, ok := LookupTemplate(templateID)
	if !ok {
		return []PermissionGrant{}
	}
	grants := make([]PermissionGrant, 0, len(tpl.PermissionIDs))
	for _, id := range tpl.PermissionIDs {
		def, ok := LookupDefinition(id)
		if !ok {
			continue
		}
		grants = append(grants, def.Grant())
	}
	return grants
}

// GrantKey identifies a grant by page and feature: "<page>:<feature>".
func GrantKey(g PermissionGrant) string {
	return g.Page() + ":" + g.Feature()
}

// MergePermissions combines template grants with custom overrides. Custom
// grants are applied after the template, so on a shared key the custom
// AccessGranted value wins. Output keeps the order in which keys first appear.
func MergePermissions(templateGrants, customGrants []PermissionGrant) []PermissionGrant {
	merged := make(map[string]PermissionGrant, len(templateGrants)+len(customGrants))
	order := make([]string, 0, len(templateGrants)+len(customGrants))
	apply := func(grants []PermissionGrant) {
		for _, g := range grants {
			key := GrantKey(g)
			if _, seen := merged[key]; !seen {
				order = append(order, key)
			}
			merged[key] = clone(g)
		}
	}
	apply(templateGrants)
	apply(customGrants)

	out := make([]PermissionGrant, 0, len(order))
	for _, key := range order {
		out = append(out, merged[key])
	}
	return out
}

func clone(g PermissionGrant) PermissionGrant {
	return NewGrant(g.Page(), g.Feature(), g.AccessGranted)
}
