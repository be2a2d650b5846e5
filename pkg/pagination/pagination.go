package pagination

import "math"

const (
	// DefaultPage is the first page number.
	DefaultPage = 1
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 10
	// MaxLimit caps how many rows any page can request.
	MaxLimit = 100
)

// Params holds page based pagination inputs from controllers or services.
type Params struct {
	Page  int
	Limit int
}

// Normalize enforces the default page and the limit bounds.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	p.Limit = NormalizeLimit(p.Limit)
	return p
}

// Offset is the number of rows to skip for the page.
func (p Params) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// Meta is the pagination block returned alongside list items.
type Meta struct {
	CurrentPage  int  `json:"currentPage"`
	ItemsPerPage int  `json:"itemsPerPage"`
	TotalItems   int  `json:"totalItems"`
	TotalPages   int  `json:"totalPages"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
}

// NewMeta computes page metadata for total rows.
func NewMeta(params Params, total int) Meta {
	n := params.Normalize()
	pages := int(math.Ceil(float64(total) / float64(n.Limit)))
	return Meta{
		CurrentPage:  n.Page,
		ItemsPerPage: n.Limit,
		TotalItems:   total,
		TotalPages:   pages,
		HasNextPage:  n.Page < pages,
		HasPrevPage:  n.Page > 1,
	}
}

// Page is the list payload shape shared by every paginated endpoint.
type Page[T any] struct {
	Items      []T  `json:"items"`
	Pagination Meta `json:"pagination"`
}

// Slice cuts one page out of rows already sorted in display order.
func Slice[T any](rows []T, params Params) Page[T] {
	n := params.Normalize()
	total := len(rows)
	start := n.Offset()
	if start > total {
		start = total
	}
	end := start + n.Limit
	if end > total {
		end = total
	}
	items := make([]T, 0, end-start)
	items = append(items, rows[start:end]...)
	return Page[T]{Items: items, Pagination: NewMeta(n, total)}
}
