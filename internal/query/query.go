// Package query composes backend queries without executing them. A Query is
// a table, a column list, AND-ed filter clauses, ordering and an optional
// row window; backends compile it to SQL.
package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/mo"
)

// Op is a comparison operator.
type Op string

const (
	OpEq    Op = "eq"
	OpNeq   Op = "neq"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpILike Op = "ilike"
	OpIn    Op = "in"
)

// CountMode controls whether the backend also returns a total row count.
type CountMode int

const (
	CountNone CountMode = iota
	CountExact
)

// Clause is one AND-ed term of a query's filter. The only implementations
// are Cond and Or.
type Clause interface {
	isClause()
	String() string
}

// Cond is a single predicate: Column Op Value.
type Cond struct {
	Column string
	Op     Op
	Value  any
}

func (Cond) isClause() {}

// String renders the predicate as column.op.value.
func (c Cond) String() string {
	if c.Op == OpIn {
		vals := toSlice(c.Value)
		parts := make([]string, len(vals))
		for i, v := range vals {
			parts[i] = FormatValue(v)
		}
		return c.Column + ".in.(" + strings.Join(parts, ",") + ")"
	}
	return c.Column + "." + string(c.Op) + "." + FormatValue(c.Value)
}

// Or is a disjunction of predicates.
type Or struct {
	Conds []Cond
}

func (Or) isClause() {}

// String renders the disjunction as a comma-separated list of predicates.
func (o Or) String() string {
	parts := make([]string, len(o.Conds))
	for i, c := range o.Conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// Order is one ORDER BY term.
type Order struct {
	Column    string
	Ascending bool
}

// Query is a composable, not-yet-executed select, update or delete scope.
type Query struct {
	Table   string
	Columns []string
	Count   CountMode
	Head    bool
	Clauses []Clause
	Orders  []Order
	Limit   mo.Option[int]
	Offset  mo.Option[int]
}

// From starts a query over table selecting every column.
func From(table string) *Query {
	return &Query{Table: table}
}

// Select sets the column list and count mode. No columns means "*".
func (q *Query) Select(columns []string, count CountMode) *Query {
	q.Columns = columns
	q.Count = count
	return q
}

// HeadOnly requests an exact count and no rows.
func (q *Query) HeadOnly() *Query {
	q.Head = true
	q.Count = CountExact
	return q
}

func (q *Query) where(column string, op Op, value any) *Query {
	q.Clauses = append(q.Clauses, Cond{Column: column, Op: op, Value: value})
	return q
}

func (q *Query) Eq(column string, value any) *Query  { return q.where(column, OpEq, value) }
func (q *Query) Neq(column string, value any) *Query { return q.where(column, OpNeq, value) }
func (q *Query) Lt(column string, value any) *Query  { return q.where(column, OpLt, value) }
func (q *Query) Lte(column string, value any) *Query { return q.where(column, OpLte, value) }
func (q *Query) Gt(column string, value any) *Query  { return q.where(column, OpGt, value) }
func (q *Query) Gte(column string, value any) *Query { return q.where(column, OpGte, value) }

// ILike adds a case-insensitive pattern match. The pattern is used verbatim.
func (q *Query) ILike(column, pattern string) *Query { return q.where(column, OpILike, pattern) }

// In adds column IN (values...). values must be a slice.
func (q *Query) In(column string, values any) *Query { return q.where(column, OpIn, values) }

// Or adds a disjunction of conds as one clause.
func (q *Query) Or(conds ...Cond) *Query {
	q.Clauses = append(q.Clauses, Or{Conds: conds})
	return q
}

// Order appends an ORDER BY term.
func (q *Query) Order(column string, ascending bool) *Query {
	q.Orders = append(q.Orders, Order{Column: column, Ascending: ascending})
	return q
}

// Range restricts the result to rows [from, to], inclusive.
func (q *Query) Range(from, to int) *Query {
	if from < 0 {
		from = 0
	}
	n := to - from + 1
	if n < 0 {
		n = 0
	}
	q.Offset = mo.Some(from)
	q.Limit = mo.Some(n)
	return q
}

// SetLimit caps the number of rows returned.
func (q *Query) SetLimit(n int) *Query {
	q.Limit = mo.Some(n)
	return q
}

// OrClauses returns the disjunctions in q, in order.
func (q *Query) OrClauses() []Or {
	var out []Or
	for _, c := range q.Clauses {
		if o, ok := c.(Or); ok {
			out = append(out, o)
		}
	}
	return out
}

// FormatValue renders a filter value the way the backend filter syntax
// expects it. Times are UTC RFC3339.
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

func toSlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []string:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []int:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	case []int64:
		out := make([]any, len(s))
		for i, x := range s {
			out[i] = x
		}
		return out
	default:
		return []any{v}
	}
}
