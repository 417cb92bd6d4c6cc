package audit

import "time"

// Aksi yang dicatat ke audit_logs.
const (
	ActionRoleChanged       = "user.role_changed"
	ActionUserActivated     = "user.activated"
	ActionUserDeactivated   = "user.deactivated"
	ActionGrantsReplaced    = "user.grants_replaced"
	ActionInvitationCreated = "invitation.created"
	ActionInvitationRevoked = "invitation.revoked"
	ActionInvitationUsed    = "invitation.accepted"
	ActionContentCreated    = "cms.draft_created"
	ActionContentUpdated    = "cms.draft_updated"
	ActionContentTransition = "cms.transition"
	ActionSettingsUpdated   = "settings.updated"
	ActionSuperadminSeeded  = "user.superadmin_seeded"
)

// Entity types.
const (
	EntityUser       = "user"
	EntityInvitation = "invitation"
	EntityContent    = "cms_content"
	EntitySettings   = "site_settings"
)

// Entry mewakili satu baris audit_logs.
type Entry struct {
	ID         int64
	ActorID    int64
	ActorEmail string
	Action     string
	Entity     string
	EntityID   string
	Meta       map[string]any
	OccurredAt time.Time
}

// Filters menampung filter listing audit.
type Filters struct {
	Action  string
	Entity  string
	ActorID int64
	Page    int
	PerPage int
}
