package shared

import (
	"context"

	"github.com/google/uuid"
)

// Repository is the CRUD surface shared by the catalog and ledger
// repositories. The trade repositories add their own transactional
// operations on top of it.
type Repository[T any] interface {
	FindByID(ctx context.Context, id uuid.UUID) (*T, error)
	FindAll(ctx context.Context, filter Filter) ([]T, error)
	Save(ctx context.Context, entity *T) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context, filter Filter) (int64, error)
}

// Filter carries list-endpoint query options from the HTTP layer down to
// the repositories. Filters holds endpoint-specific flags such as
// low_stock or a sales channel.
type Filter struct {
	Page     int
	PageSize int
	OrderBy  string
	OrderDir string
	Search   string
	Filters  map[string]any
}

// DefaultFilter lists newest first, twenty per page.
func DefaultFilter() Filter {
	return Filter{
		Page:     1,
		PageSize: 20,
		OrderBy:  "created_at",
		OrderDir: "desc",
		Filters:  make(map[string]any),
	}
}

// Paged reports whether the filter asks for pagination at all.
func (f Filter) Paged() bool {
	return f.Page > 0 && f.PageSize > 0
}

// Offset returns the row offset of the requested page, zero when the
// filter is unpaged.
func (f Filter) Offset() int {
	if !f.Paged() {
		return 0
	}
	return (f.Page - 1) * f.PageSize
}

// Paginated wraps one page of results with the counts list responses carry.
type Paginated[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginated assembles a result page. A non-positive page size counts as
// a single page so callers never divide by zero.
func NewPaginated[T any](items []T, total int64, page, pageSize int) Paginated[T] {
	totalPages := 1
	if pageSize > 0 {
		totalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return Paginated[T]{
		Items:      items,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	}
}
