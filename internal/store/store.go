// Package store executes composed queries and remote procedure calls against
// the relational backend that owns promoter records.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"github.com/samber/mo"

	"github.com/sells-group/promoter-service/internal/query"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Result holds the rows of a select and, when requested, the exact count of
// rows matching its filters (ignoring any row window).
type Result struct {
	Rows  []Row
	Count mo.Option[int64]
}

// Store is the table, RPC and lifecycle capability of the backend.
type Store interface {
	Select(ctx context.Context, q *query.Query) (*Result, error)
	Insert(ctx context.Context, table string, rows []Row) ([]Row, error)
	Update(ctx context.Context, q *query.Query, values Row) (int64, error)
	Delete(ctx context.Context, q *query.Query) (int64, error)
	RPC(ctx context.Context, fn string, args map[string]any) ([]Row, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Invoker runs a named background job with a JSON body and decodes its JSON
// response into out.
type Invoker interface {
	Invoke(ctx context.Context, name string, body any, out any) error
}

// Error is a structured backend failure. Code is the SQLSTATE for database
// errors and the HTTP status for job invocations.
type Error struct {
	Op      string `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ErrorCode implements the classifier's coded-error contract.
func (e *Error) ErrorCode() string {
	return e.Code
}

// ErrorDetails implements the classifier's detailed-error contract.
func (e *Error) ErrorDetails() string {
	return e.Details
}

// Total returns the exact count, or 0 when none was requested.
func (r *Result) Total() int {
	if r == nil {
		return 0
	}
	return int(r.Count.OrElse(0))
}

// Decode converts rows into typed records through their JSON field names.
func Decode[T any](rows []Row) ([]T, error) {
	out := make([]T, 0, len(rows))
	if len(rows) == 0 {
		return out, nil
	}
	b, err := json.Marshal(rows)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode rows")
	}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, eris.Wrap(err, "store: decode rows")
	}
	return out, nil
}

// Encode converts a record into a Row through its JSON field names.
func Encode(v any) (Row, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode record")
	}
	var row Row
	if err := json.Unmarshal(b, &row); err != nil {
		return nil, eris.Wrap(err, "store: decode record")
	}
	return row, nil
}
