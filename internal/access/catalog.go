package access

// DashboardPath is the root of the dashboard and always reachable by a logged-in user.
const DashboardPath = "/dashboard"

// dashboardSections is the sidebar catalog. Order is render order.
var dashboardSections = []NavigationSection{
	{
		Title: "Dashboard",
		Items: []NavigationItem{
			{Title: "Ringkasan", Href: DashboardPath, Icon: "layout-dashboard"},
			{Title: "Profil", Href: "/dashboard/profile", Icon: "user-circle", PageKey: "profile", FeatureKey: "edit"},
		},
	},
	{
		Title: "Konten",
		Items: []NavigationItem{
			{Title: "Beranda", Href: "/dashboard/cms/home", Icon: "home", PageKey: "cms-home", FeatureKey: "cms-home-edit"},
			{Title: "Tentang Kami", Href: "/dashboard/cms/about", Icon: "info", PageKey: "cms-about", FeatureKey: "cms-about-edit"},
			{Title: "Produk", Href: "/dashboard/cms/product", Icon: "package", PageKey: "cms-product", FeatureKey: "cms-product-edit"},
			{Title: "Layanan", Href: "/dashboard/cms/services", Icon: "briefcase", PageKey: "cms-services", FeatureKey: "cms-services-edit"},
			{Title: "Kolaborasi", Href: "/dashboard/cms/collaboration", Icon: "handshake", PageKey: "cms-collaboration", FeatureKey: "cms-collaboration-edit"},
		},
	},
	{
		Title: "Manajemen",
		Items: []NavigationItem{
			{Title: "Pengguna", Href: "/dashboard/users", Icon: "users", PageKey: "users", FeatureKey: "manage-users"},
			{Title: "Hak Akses", Href: "/dashboard/permissions", Icon: "shield-check", PageKey: "permissions", FeatureKey: "manage-permissions"},
			{Title: "Undangan Admin", Href: "/dashboard/invitations", Icon: "mail-plus", Roles: []Role{RoleSuperadmin}},
		},
	},
	{
		Title: "Sistem",
		Items: []NavigationItem{
			{Title: "Log Audit", Href: "/dashboard/audit", Icon: "history", PageKey: "audit", FeatureKey: "view-audit"},
			{Title: "Pengaturan", Href: "/dashboard/settings", Icon: "settings", PageKey: "settings", FeatureKey: "manage-settings"},
			{Title: "Kesehatan Sistem", Href: "/dashboard/system-health", Icon: "activity", Roles: []Role{RoleAdmin, RoleSuperadmin}},
		},
	},
}

var permissionDefinitions = []PermissionDefinition{
	{ID: "profile-edit", PageKey: "profile", FeatureKey: "edit", Label: "Ubah Profil", Description: "Mengubah nama dan kata sandi akun sendiri."},
	{ID: "cms-home", PageKey: "cms-home", FeatureKey: "cms-home-edit", Label: "Konten Beranda", Description: "Menyunting konten halaman beranda."},
	{ID: "cms-about", PageKey: "cms-about", FeatureKey: "cms-about-edit", Label: "Konten Tentang Kami", Description: "Menyunting konten halaman tentang kami."},
	{ID: "cms-product", PageKey: "cms-product", FeatureKey: "cms-product-edit", Label: "Konten Produk", Description: "Menyunting konten halaman produk."},
	{ID: "cms-services", PageKey: "cms-services", FeatureKey: "cms-services-edit", Label: "Konten Layanan", Description: "Menyunting konten halaman layanan."},
	{ID: "cms-collaboration", PageKey: "cms-collaboration", FeatureKey: "cms-collaboration-edit", Label: "Konten Kolaborasi", Description: "Menyunting konten halaman kolaborasi."},
	{ID: "users-manage", PageKey: "users", FeatureKey: "manage-users", Label: "Kelola Pengguna", Description: "Melihat dan mengaktifkan atau menonaktifkan pengguna."},
	{ID: "permissions-manage", PageKey: "permissions", FeatureKey: "manage-permissions", Label: "Kelola Hak Akses", Description: "Memberikan atau mencabut hak akses pengguna."},
	{ID: "audit-view", PageKey: "audit", FeatureKey: "view-audit", Label: "Lihat Log Audit", Description: "Melihat riwayat perubahan."},
	{ID: "settings-manage", PageKey: "settings", FeatureKey: "manage-settings", Label: "Kelola Pengaturan", Description: "Mengubah kontak dan informasi situs."},
}

var permissionTemplates = []PermissionTemplate{
	{
		ID:          "admin",
		Label:       "Admin",
		Description: "Pengelolaan pengguna, hak akses, pengaturan dan beranda.",
		PermissionIDs: []string{
			"profile-edit", "users-manage", "permissions-manage", "audit-view", "settings-manage", "cms-home",
		},
	},
	{
		ID:          "content-editor",
		Label:       "Editor Konten",
		Description: "Menyunting seluruh halaman pemasaran.",
		PermissionIDs: []string{
			"profile-edit", "cms-home", "cms-about", "cms-product", "cms-services", "cms-collaboration",
		},
	},
	{
		ID:            "event-manager",
		Label:         "Event Manager",
		Description:   "Menyunting halaman produk, layanan dan kolaborasi.",
		PermissionIDs: []string{"profile-edit", "cms-product", "cms-services", "cms-collaboration"},
	},
	{
		ID:            "viewer",
		Label:         "Viewer",
		Description:   "Hanya profil sendiri.",
		PermissionIDs: []string{"profile-edit"},
	},
}

// Sections returns a copy of the sidebar catalog.
func Sections() []NavigationSection {
	out := make([]NavigationSection, len(dashboardSections))
	for i, section := range dashboardSections {
		out[i] = NavigationSection{Title: section.Title, Items: append([]NavigationItem(nil), section.Items...)}
	}
	return out
}

// Definitions returns a copy of the permission catalog.
func Definitions() []PermissionDefinition {
	return append([]PermissionDefinition(nil), permissionDefinitions...)
}

// Templates returns a copy of the template catalog.
func Templates() []PermissionTemplate {
	out := make([]PermissionTemplate, len(permissionTemplates))
	for i, tpl := range permissionTemplates {
		tpl.PermissionIDs = append([]string(nil), tpl.PermissionIDs...)
		out[i] = tpl
	}
	return out
}

// LookupDefinition finds a permission definition by exact id.
func LookupDefinition(id string) (PermissionDefinition, bool) {
	for _, def := range permissionDefinitions {
		if def.ID == id {
			return def, true
		}
	}
	return PermissionDefinition{}, false
}

// LookupTemplate finds a template by exact id.
func LookupTemplate(id string) (PermissionTemplate, bool) {
	for _, tpl := range permissionTemplates {
		if tpl.ID == id {
			tpl.PermissionIDs = append([]string(nil), tpl.PermissionIDs...)
			return tpl, true
		}
	}
	return PermissionTemplate{}, false
}
