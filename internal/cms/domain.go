package cms

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirana-event/kirana/internal/access"
	"github.com/kirana-event/kirana/internal/shared"
)

var (
	// ErrInvalidTransition indicates a status change outside the workflow.
	ErrInvalidTransition = errors.New("cms: invalid status transition")
	// ErrNotEditable indicates an attempt to edit a version that is not a draft.
	ErrNotEditable = errors.New("cms: only drafts are editable")
	// ErrConflict indicates the version changed status concurrently.
	ErrConflict = errors.New("cms: version changed concurrently")
	// ErrUnknownPage indicates a page key outside the managed pages.
	ErrUnknownPage = errors.New("cms: unknown page")
	// ErrNothingPublished indicates the page has no published version.
	ErrNothingPublished = errors.New("cms: page has no published version")
)

// Page identifies a managed marketing page.
type Page string

// Managed pages.
const (
	PageHome          Page = "home"
	PageAbout         Page = "about"
	PageProduct       Page = "product"
	PageServices      Page = "services"
	PageCollaboration Page = "collaboration"
)

var pages = []Page{PageHome, PageAbout, PageProduct, PageServices, PageCollaboration}

// Pages lists every managed page in navigation order.
func Pages() []Page {
	out := make([]Page, len(pages))
	copy(out, pages)
	return out
}

// ParsePage validates a page key.
func ParsePage(s string) (Page, error) {
	p := Page(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range pages {
		if p == known {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPage, s)
}

// Href is the dashboard path of the page editor.
func (p Page) Href() string {
	return access.DashboardPath + "/cms/" + string(p)
}

// Status is the lifecycle state of a content version.
type Status string

// Content statuses.
const (
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// ParseStatus validates a status value.
func ParseStatus(s string) (Status, bool) {
	switch st := Status(strings.TrimSpace(s)); st {
	case StatusDraft, StatusReview, StatusPublished, StatusArchived:
		return st, true
	}
	return "", false
}

// transitions holds the minimum role for each allowed move.
var transitions = map[Status]map[Status]access.Role{
	StatusDraft: {
		StatusReview:    access.RoleUser,
		StatusPublished: access.RoleSuperadmin,
	},
	StatusReview: {
		StatusDraft:     access.RoleAdmin,
		StatusPublished: access.RoleAdmin,
	},
	StatusPublished: {
		StatusArchived: access.RoleAdmin,
	},
	StatusArchived: {
		StatusDraft: access.RoleAdmin,
	},
}

// CheckTransition returns ErrInvalidTransition for moves outside the
// workflow and shared.ErrForbidden when role is below the required minimum.
func CheckTransition(from, to Status, role access.Role) error {
	need, ok := transitions[from][to]
	if !ok {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	if !role.AtLeast(need) {
		return fmt.Errorf("%w: %s -> %s needs %s", shared.ErrForbidden, from, to, need)
	}
	return nil
}

// NextStatuses lists the moves role may make from status, in a stable order.
func NextStatuses(from Status, role access.Role) []Status {
	var out []Status
	for _, to := range []Status{StatusDraft, StatusReview, StatusPublished, StatusArchived} {
		if CheckTransition(from, to, role) == nil {
			out = append(out, to)
		}
	}
	return out
}

// ImageItem is one hero grid image. URLs point at already-hosted images.
type ImageItem struct {
	URL string `json:"url" validate:"required,url,startswith=https://|startswith=http://,max=2048"`
	Alt string `json:"alt" validate:"required,max=200"`
}

// DetailBlock is a heading and body paragraph.
type DetailBlock struct {
	Heading string `json:"heading" validate:"required,max=160"`
	Body    string `json:"body" validate:"required,max=5000"`
}

// Body is the editable payload of a version.
type Body struct {
	Hero    []ImageItem   `json:"hero" validate:"max=12,dive"`
	Details []DetailBlock `json:"details" validate:"max=20,dive"`
}

// Content is one version of a page.
type Content struct {
	ID          uuid.UUID
	Page        Page
	Version     int
	Status      Status
	Title       string
	Body        Body
	CreatedBy   int64
	UpdatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
	PublishedAt *time.Time
}

// Editable reports whether the version can still be changed.
func (c Content) Editable() bool {
	return c.Status == StatusDraft
}

// PublicContent is the JSON served to the marketing site.
type PublicContent struct {
	Page        Page          `json:"page"`
	Version     int           `json:"version"`
	Title       string        `json:"title"`
	Hero        []ImageItem   `json:"hero"`
	Details     []DetailBlock `json:"details"`
	PublishedAt time.Time     `json:"published_at"`
}

// Public converts a published version for the API.
func (c Content) Public() PublicContent {
	pc := PublicContent{
		Page:    c.Page,
		Version: c.Version,
		Title:   c.Title,
		Hero:    c.Body.Hero,
		Details: c.Body.Details,
	}
	if pc.Hero == nil {
		pc.Hero = []ImageItem{}
	}
	if pc.Details == nil {
		pc.Details = []DetailBlock{}
	}
	if c.PublishedAt != nil {
		pc.PublishedAt = *c.PublishedAt
	}
	return pc
}
