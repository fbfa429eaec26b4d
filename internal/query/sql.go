package query

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"
)

// Dialect selects placeholder and operator syntax.
type Dialect int

const (
	Postgres Dialect = iota
	SQLite
)

func (d Dialect) String() string {
	switch d {
	case Postgres:
		return "postgres"
	case SQLite:
		return "sqlite"
	default:
		return "unknown"
	}
}

var comparisons = map[Op]string{
	OpEq:  "=",
	OpNeq: "<>",
	OpLt:  "<",
	OpLte: "<=",
	OpGt:  ">",
	OpGte: ">=",
}

// Ident quotes a column or table name. Schema-qualified names are split on
// the first dot.
func Ident(name string) string {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) == 2 {
		return pgx.Identifier{parts[0], parts[1]}.Sanitize()
	}
	return pgx.Identifier{name}.Sanitize()
}

type builder struct {
	dialect Dialect
	args    []any
}

func (b *builder) arg(v any) string {
	if t, ok := v.(time.Time); ok && b.dialect == SQLite {
		v = t.UTC().Format(time.RFC3339)
	}
	b.args = append(b.args, v)
	if b.dialect == SQLite {
		return "?"
	}
	return fmt.Sprintf("$%d", len(b.args))
}

func (b *builder) cond(c Cond) (string, error) {
	col := Ident(c.Column)
	switch c.Op {
	case OpILike:
		if b.dialect == SQLite {
			return fmt.Sprintf("lower(%s) LIKE lower(%s)", col, b.arg(c.Value)), nil
		}
		return fmt.Sprintf("%s ILIKE %s", col, b.arg(c.Value)), nil
	case OpIn:
		vals := toSlice(c.Value)
		if len(vals) == 0 {
			return "1=0", nil
		}
		ph := make([]string, len(vals))
		for i, v := range vals {
			ph[i] = b.arg(v)
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(ph, ", ")), nil
	}

	sym, ok := comparisons[c.Op]
	if !ok {
		return "", eris.Errorf("query: unsupported operator %q", c.Op)
	}
	if c.Value == nil {
		if c.Op == OpEq {
			return col + " IS NULL", nil
		}
		if c.Op == OpNeq {
			return col + " IS NOT NULL", nil
		}
	}
	return fmt.Sprintf("%s %s %s", col, sym, b.arg(c.Value)), nil
}

func (b *builder) where(clauses []Clause) (string, error) {
	if len(clauses) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(clauses))
	for _, cl := range clauses {
		switch c := cl.(type) {
		case Cond:
			s, err := b.cond(c)
			if err != nil {
				return "", err
			}
			terms = append(terms, s)
		case Or:
			if len(c.Conds) == 0 {
				continue
			}
			parts := make([]string, len(c.Conds))
			for i, cond := range c.Conds {
				s, err := b.cond(cond)
				if err != nil {
					return "", err
				}
				parts[i] = s
			}
			terms = append(terms, "("+strings.Join(parts, " OR ")+")")
		default:
			return "", eris.Errorf("query: unsupported clause %T", cl)
		}
	}
	if len(terms) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(terms, " AND "), nil
}

func columnList(cols []string) string {
	if len(cols) == 0 {
		return "*"
	}
	quoted := make([]string, len(cols))
	for i, c := range cols {
		if c == "*" {
			quoted[i] = c
			continue
		}
		quoted[i] = Ident(c)
	}
	return strings.Join(quoted, ", ")
}

func validate(q *Query) error {
	if q == nil || q.Table == "" {
		return eris.New("query: table is required")
	}
	return nil
}

// Compile renders the row select for q.
func Compile(q *Query, d Dialect) (string, []any, error) {
	if err := validate(q); err != nil {
		return "", nil, err
	}
	b := &builder{dialect: d}

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(columnList(q.Columns))
	sb.WriteString(" FROM ")
	sb.WriteString(Ident(q.Table))

	where, err := b.where(q.Clauses)
	if err != nil {
		return "", nil, err
	}
	sb.WriteString(where)

	if len(q.Orders) > 0 {
		terms := make([]string, len(q.Orders))
		for i, o := range q.Orders {
			dir := "DESC"
			if o.Ascending {
				dir = "ASC"
			}
			terms[i] = Ident(o.Column) + " " + dir
		}
		sb.WriteString(" ORDER BY ")
		sb.WriteString(strings.Join(terms, ", "))
	}

	if n, ok := q.Limit.Get(); ok {
		sb.WriteString(" LIMIT ")
		sb.WriteString(b.arg(n))
	} else if _, ok := q.Offset.Get(); ok && d == SQLite {
		// SQLite only accepts OFFSET after LIMIT.
		sb.WriteString(" LIMIT -1")
	}
	if off, ok := q.Offset.Get(); ok && off > 0 {
		sb.WriteString(" OFFSET ")
		sb.WriteString(b.arg(off))
	}

	return sb.String(), b.args, nil
}

// CompileCount renders SELECT count(*) over q's filters.
func CompileCount(q *Query, d Dialect) (string, []any, error) {
	if err := validate(q); err != nil {
		return "", nil, err
	}
	b := &builder{dialect: d}
	where, err := b.where(q.Clauses)
	if err != nil {
		return "", nil, err
	}
	return "SELECT count(*) FROM " + Ident(q.Table) + where, b.args, nil
}

// CompileUpdate renders UPDATE ... SET for values scoped by q's filters.
// Unscoped updates are rejected.
func CompileUpdate(q *Query, values map[string]any, d Dialect) (string, []any, error) {
	if err := validate(q); err != nil {
		return "", nil, err
	}
	if len(values) == 0 {
		return "", nil, eris.New("query: update requires at least one value")
	}
	if len(q.Clauses) == 0 {
		return "", nil, eris.New("query: update requires a filter")
	}
	b := &builder{dialect: d}

	keys := sortedKeys(values)
	sets := make([]string, len(keys))
	for i, k := range keys {
		sets[i] = Ident(k) + " = " + b.arg(values[k])
	}
	where, err := b.where(q.Clauses)
	if err != nil {
		return "", nil, err
	}
	return "UPDATE " + Ident(q.Table) + " SET " + strings.Join(sets, ", ") + where, b.args, nil
}

// CompileDelete renders DELETE scoped by q's filters. Unscoped deletes are
// rejected.
func CompileDelete(q *Query, d Dialect) (string, []any, error) {
	if err := validate(q); err != nil {
		return "", nil, err
	}
	if len(q.Clauses) == 0 {
		return "", nil, eris.New("query: delete requires a filter")
	}
	b := &builder{dialect: d}
	where, err := b.where(q.Clauses)
	if err != nil {
		return "", nil, err
	}
	return "DELETE FROM " + Ident(q.Table) + where, b.args, nil
}

// CompileInsert renders a multi-row INSERT ... RETURNING *. Every row must
// carry the same columns as the first.
func CompileInsert(table string, rows []map[string]any, d Dialect) (string, []any, error) {
	if table == "" {
		return "", nil, eris.New("query: table is required")
	}
	if len(rows) == 0 {
		return "", nil, eris.New("query: insert requires at least one row")
	}
	cols := sortedKeys(rows[0])
	if len(cols) == 0 {
		return "", nil, eris.New("query: insert requires at least one column")
	}
	b := &builder{dialect: d}

	tuples := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(cols) {
			return "", nil, eris.Errorf("query: insert row %d has %d columns, want %d", i, len(row), len(cols))
		}
		ph := make([]string, len(cols))
		for j, c := range cols {
			v, ok := row[c]
			if !ok {
				return "", nil, eris.Errorf("query: insert row %d missing column %q", i, c)
			}
			ph[j] = b.arg(v)
		}
		tuples[i] = "(" + strings.Join(ph, ", ") + ")"
	}

	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = Ident(c)
	}
	sql := "INSERT INTO " + Ident(table) + " (" + strings.Join(quoted, ", ") + ") VALUES " +
		strings.Join(tuples, ", ") + " RETURNING *"
	return sql, b.args, nil
}

// CompileCall renders SELECT * FROM fn(name => value, ...) with arguments
// ordered by name. Named notation is Postgres-only.
func CompileCall(fn string, args map[string]any) (string, []any, error) {
	if fn == "" {
		return "", nil, eris.New("query: function name is required")
	}
	b := &builder{dialect: Postgres}
	keys := sortedKeys(args)
	named := make([]string, len(keys))
	for i, k := range keys {
		named[i] = Ident(k) + " => " + b.arg(args[k])
	}
	return "SELECT * FROM " + Ident(fn) + "(" + strings.Join(named, ", ") + ")", b.args, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
