package audit

import (
	"context"
	"fmt"

	"github.com/kirana-event/kirana/internal/shared"
)

const maxPerPage = 100

// Result berisi satu halaman audit log.
type Result struct {
	Entries    []Entry
	Pagination shared.Pagination
	Filters    Filters
}

// Service menyediakan listing audit log.
type Service struct {
	repo Repository
}

// NewService membuat Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List mengambil satu halaman audit log sesuai filter.
func (s *Service) List(ctx context.Context, filters Filters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	if filters.PerPage > maxPerPage {
		filters.PerPage = maxPerPage
	}
	total, err := s.repo.Count(ctx, filters)
	if err != nil {
		return Result{}, fmt.Errorf("audit: count: %w", err)
	}
	page := shared.NewPagination(filters.Page, filters.PerPage, total)
	entries, err := s.repo.List(ctx, filters, page.PerPage, page.Offset())
	if err != nil {
		return Result{}, fmt.Errorf("audit: list: %w", err)
	}
	filters.Page, filters.PerPage = page.Page, page.PerPage
	return Result{Entries: entries, Pagination: page, Filters: filters}, nil
}
