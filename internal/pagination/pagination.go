// Package pagination converts page requests into offsets and shapes result
// pages with navigation flags.
package pagination

import (
	"github.com/rotisserie/eris"
	"github.com/samber/mo"

	"github.com/sells-group/promoter-service/internal/resilience"
)

const (
	// DefaultLimit is used when a request carries no positive limit.
	DefaultLimit = 10
	// MaxLimit is the largest page size the HTTP and CLI surfaces accept.
	MaxLimit = 1000
)

// Params is a 1-based page request. An explicit Offset overrides the one
// derived from Page and Limit.
type Params struct {
	Page   int
	Limit  int
	Offset mo.Option[int]
}

// New returns params for the given page and limit.
func New(page, limit int) Params {
	return Params{Page: page, Limit: limit}.Normalize()
}

// CheckLimit rejects a requested page size above MaxLimit. Zero and negative
// values are left to Normalize.
func CheckLimit(limit int) error {
	if limit > MaxLimit {
		return eris.Errorf("invalid input: limit must be at most %d, got %d", MaxLimit, limit)
	}
	return nil
}

// Normalize raises page and limit to their minimums. Limit has no upper
// bound here, so totalPages always follows the requested limit.
func (p Params) Normalize() Params {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	if off, ok := p.Offset.Get(); ok && off < 0 {
		p.Offset = mo.Some(0)
	}
	return p
}

// ResolvedOffset returns Offset if set, else (Page-1)*Limit.
func (p Params) ResolvedOffset() int {
	return p.Offset.OrElse((p.Page - 1) * p.Limit)
}

// Range returns the inclusive row window [from, to].
func (p Params) Range() (from, to int) {
	from = p.ResolvedOffset()
	return from, from + p.Limit - 1
}

// Result is a page of rows with navigation metadata. On failure Data is
// empty, every count is zero and Error is set.
type Result[T any] struct {
	Data       []T                      `json:"data"`
	Total      int                      `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"totalPages"`
	HasNext    bool                     `json:"hasNext"`
	HasPrev    bool                     `json:"hasPrev"`
	Error      *resilience.ServiceError `json:"error,omitempty"`
}

// Paginate wraps rows and the backend's total count into a Result.
func Paginate[T any](rows []T, total int, p Params) Result[T] {
	if rows == nil {
		rows = []T{}
	}
	if total < 0 {
		total = 0
	}
	totalPages := TotalPages(total, p.Limit)
	return Result[T]{
		Data:       rows,
		Total:      total,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalPages: totalPages,
		HasNext:    p.Page < totalPages,
		HasPrev:    p.Page > 1,
	}
}

// Failed returns the error-shaped envelope.
func Failed[T any](err *resilience.ServiceError) Result[T] {
	return Result[T]{Data: []T{}, Error: err}
}

// TotalPages returns ceil(total/limit), or 0 when limit is not positive.
func TotalPages(total, limit int) int {
	if limit <= 0 || total <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
