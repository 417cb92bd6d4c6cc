package shared

import (
	"math"
	"net/url"
	"strconv"
)

// DefaultPerPage is used when a listing does not ask for a page size.
const DefaultPerPage = 20

// Pagination contains metadata for paginated listings.
type Pagination struct {
	Page       int
	PerPage    int
	Total      int
	TotalPages int
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = DefaultPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// PageFromQuery reads ?page= with a floor of 1.
func PageFromQuery(values url.Values) int {
	page, err := strconv.Atoi(values.Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}

// Offset is the number of rows to skip for the current page.
func (p Pagination) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.PerPage
}

// HasPrev reports whether a previous page exists.
func (p Pagination) HasPrev() bool { return p.Page > 1 }

// HasNext reports whether a further page exists.
func (p Pagination) HasNext() bool { return p.Page < p.TotalPages }
