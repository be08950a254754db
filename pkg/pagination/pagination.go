package pagination

import (
	"gorm.io/gorm"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 25
	// MaxLimit caps how many rows any list query can request.
	MaxLimit = 100
)

// Params holds limit/offset pagination inputs from controllers or services.
type Params struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Page wraps one page of results with the paging metadata callers need
// to fetch the next one.
type Page[T any] struct {
	Items   []T   `json:"items"`
	Limit   int   `json:"limit"`
	Offset  int   `json:"offset"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
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

// Normalize returns params with the limit bounded and negative offsets
// zeroed.
func (p Params) Normalize() Params {
	p.Limit = NormalizeLimit(p.Limit)
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// Apply scopes a GORM query to the page with the default
// creation-descending order.
func Apply(q *gorm.DB, p Params) *gorm.DB {
	p = p.Normalize()
	return q.Order("created_at DESC").Limit(p.Limit).Offset(p.Offset)
}

// NewPage assembles page metadata from a result slice and the total
// matching row count.
func NewPage[T any](items []T, p Params, total int64) Page[T] {
	p = p.Normalize()
	return Page[T]{
		Items:   items,
		Limit:   p.Limit,
		Offset:  p.Offset,
		Total:   total,
		HasMore: int64(p.Offset+len(items)) < total,
	}
}
