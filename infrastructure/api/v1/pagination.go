package v1

import (
	"net/http"
	"strconv"
)

// DefaultPageSize is the default number of items per page.
const DefaultPageSize = 20

// MaxPageSize is the maximum allowed page size.
const MaxPageSize = 100

// PaginationParams holds pagination parameters parsed from query strings.
type PaginationParams struct {
	page     int
	pageSize int
}

// ParsePagination reads page and page_size. Invalid values fall back to
// page 1 and DefaultPageSize; page_size is capped at MaxPageSize.
func ParsePagination(r *http.Request) PaginationParams {
	params := PaginationParams{page: 1, pageSize: DefaultPageSize}

	if page, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && page >= 1 {
		params.page = page
	}
	if size, err := strconv.Atoi(r.URL.Query().Get("page_size")); err == nil && size >= 1 {
		params.pageSize = min(size, MaxPageSize)
	}

	return params
}

// Page returns the page number (1-indexed).
func (p PaginationParams) Page() int { return p.page }

// PageSize returns the page size.
func (p PaginationParams) PageSize() int { return p.pageSize }

// Offset returns the offset for database queries.
func (p PaginationParams) Offset() int { return (p.page - 1) * p.pageSize }

// Limit returns the limit for database queries.
func (p PaginationParams) Limit() int { return p.pageSize }

// Meta builds the response meta object for a page out of totalCount items.
func (p PaginationParams) Meta(totalCount int64) map[string]any {
	totalPages := (int(totalCount) + p.pageSize - 1) / p.pageSize
	return map[string]any{
		"page":        p.page,
		"page_size":   p.pageSize,
		"total_count": totalCount,
		"total_pages": totalPages,
	}
}
