package cms

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/kirana-event/kirana/internal/rbac"
	"github.com/kirana-event/kirana/internal/shared"
)

// ErrInvalidContent wraps field validation failures.
var ErrInvalidContent = errors.New("cms: invalid content")

// ValidationError lists field problems keyed by their path, e.g. "Hero[0].URL".
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("cms: %d invalid field(s)", len(e.Fields))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidContent }

// PageSummary is the per-page line on the dashboard home.
type PageSummary struct {
	Page     Page
	Live     *Content
	Latest   *Content
	InReview int
}

// Service implements the content workflow.
type Service struct {
	repo     Repository
	cache    *Cache
	validate *validator.Validate
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs a Service. cache may be nil.
func NewService(repo Repository, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    cache,
		validate: validator.New(),
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

type draftInput struct {
	Title string `validate:"required,max=200"`
	Body  Body
}

func (s *Service) check(title string, body Body) error {
	err := s.validate.Struct(draftInput{Title: title, Body: body})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		key := strings.TrimPrefix(strings.TrimPrefix(fe.Namespace(), "draftInput."), "Body.")
		switch fe.Tag() {
		case "required":
			fields[key] = "Wajib diisi"
		case "max":
			fields[key] = "Maksimal " + fe.Param()
		case "url", "startswith":
			fields[key] = "URL gambar harus diawali http:// atau https://"
		default:
			fields[key] = "Nilai tidak valid"
		}
	}
	return &ValidationError{Fields: fields}
}

// Overview summarises every managed page.
func (s *Service) Overview(ctx context.Context) ([]PageSummary, error) {
	out := make([]PageSummary, 0, len(pages))
	for _, page := range pages {
		versions, err := s.repo.Versions(ctx, page)
		if err != nil {
			return nil, err
		}
		sum := PageSummary{Page: page}
		for i := range versions {
			v := versions[i]
			if i == 0 {
				sum.Latest = &v
			}
			switch v.Status {
			case StatusPublished:
				sum.Live = &v
			case StatusReview:
				sum.InReview++
			}
		}
		out = append(out, sum)
	}
	return out, nil
}

// Versions lists the versions of page, newest first.
func (s *Service) Versions(ctx context.Context, page Page) ([]Content, error) {
	return s.repo.Versions(ctx, page)
}

// Version loads one version and checks it belongs to page.
func (s *Service) Version(ctx context.Context, page Page, id uuid.UUID) (Content, error) {
	c, err := s.repo.Find(ctx, id)
	if err != nil {
		return Content{}, err
	}
	if c.Page != page {
		return Content{}, shared.ErrNotFound
	}
	return c, nil
}

// CreateDraft starts a new version seeded from the newest existing one.
func (s *Service) CreateDraft(ctx context.Context, actor rbac.Principal, page Page) (Content, error) {
	versions, err := s.repo.Versions(ctx, page)
	if err != nil {
		return Content{}, err
	}
	var title string
	var body Body
	if len(versions) > 0 {
		title, body = versions[0].Title, versions[0].Body
	}
	c, err := s.repo.CreateDraft(ctx, actor.ID, page, title, body)
	if err != nil {
		return Content{}, err
	}
	s.logger.InfoContext(ctx, "cms draft created", slog.String("page", string(page)), slog.Int("version", c.Version), slog.Int64("actor_id", actor.ID))
	return c, nil
}

// SaveDraft validates and stores a draft's title and body.
func (s *Service) SaveDraft(ctx context.Context, actor rbac.Principal, page Page, id uuid.UUID, title string, body Body) error {
	title = strings.TrimSpace(title)
	if err := s.check(title, body); err != nil {
		return err
	}
	c, err := s.Version(ctx, page, id)
	if err != nil {
		return err
	}
	if !c.Editable() {
		return ErrNotEditable
	}
	return s.repo.UpdateDraft(ctx, actor.ID, id, title, body)
}

// Transition moves a version along the workflow. Moves that change what is
// live invalidate the public cache.
func (s *Service) Transition(ctx context.Context, actor rbac.Principal, page Page, id uuid.UUID, to Status) (Content, error) {
	c, err := s.Version(ctx, page, id)
	if err != nil {
		return Content{}, err
	}
	if err := CheckTransition(c.Status, to, actor.Role); err != nil {
		return Content{}, err
	}
	if to == StatusReview || to == StatusPublished {
		if err := s.check(c.Title, c.Body); err != nil {
			return Content{}, err
		}
	}
	at := s.now()
	if err := s.repo.Transition(ctx, actor.ID, c, to, at); err != nil {
		return Content{}, err
	}
	if to == StatusPublished || c.Status == StatusPublished {
		if err := s.cache.Invalidate(ctx, page); err != nil {
			s.logger.WarnContext(ctx, "cms cache invalidate failed", slog.String("page", string(page)), slog.Any("error", err))
		}
	}
	s.logger.InfoContext(ctx, "cms transition",
		slog.String("page", string(page)),
		slog.Int("version", c.Version),
		slog.String("from", string(c.Status)),
		slog.String("to", string(to)),
		slog.Int64("actor_id", actor.ID),
	)
	c.Status = to
	c.UpdatedBy = actor.ID
	c.UpdatedAt = at
	if to == StatusPublished {
		c.PublishedAt = &at
	}
	return c, nil
}

// PublicContent returns the live version of page for the marketing site.
func (s *Service) PublicContent(ctx context.Context, page Page) (PublicContent, error) {
	return s.cache.Get(ctx, page, func(ctx context.Context) (PublicContent, error) {
		c, err := s.repo.Published(ctx, page)
		if err != nil {
			return PublicContent{}, err
		}
		return c.Public(), nil
	})
}
