package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/samber/mo"
	_ "modernc.org/sqlite"

	"github.com/sells-group/promoter-service/internal/query"
)

// SQLiteStore implements Store using modernc.org/sqlite. It serves local
// development and tests; the analytics procedures exist only on Postgres.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; a single connection keeps them in force.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Select(ctx context.Context, q *query.Query) (*Result, error) {
	res := &Result{Rows: []Row{}}

	if q.Count == query.CountExact {
		stmt, args, err := query.CompileCount(q, query.SQLite)
		if err != nil {
			return nil, err
		}
		var n int64
		if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&n); err != nil {
			return nil, eris.Wrapf(err, "sqlite: count %s", q.Table)
		}
		res.Count = mo.Some(n)
	}
	if q.Head {
		return res, nil
	}

	stmt, args, err := query.Compile(q, query.SQLite)
	if err != nil {
		return nil, err
	}
	rows, err := s.collect(ctx, stmt, args)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: select %s", q.Table)
	}
	res.Rows = rows
	return res, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	stmt, args, err := query.CompileInsert(table, rows, query.SQLite)
	if err != nil {
		return nil, err
	}
	out, err := s.collect(ctx, stmt, args)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert %s", table)
	}
	return out, nil
}

func (s *SQLiteStore) Update(ctx context.Context, q *query.Query, values Row) (int64, error) {
	stmt, args, err := query.CompileUpdate(q, values, query.SQLite)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: update %s", q.Table)
	}
	return rowsAffected(res)
}

func (s *SQLiteStore) Delete(ctx context.Context, q *query.Query) (int64, error) {
	stmt, args, err := query.CompileDelete(q, query.SQLite)
	if err != nil {
		return 0, err
	}
	res, err := s.db.ExecContext(ctx, stmt, args...)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: delete %s", q.Table)
	}
	return rowsAffected(res)
}

// RPC always fails on SQLite. The code matches the backend's "function not
// found" code so callers treat it as permanent.
func (s *SQLiteStore) RPC(_ context.Context, fn string, _ map[string]any) ([]Row, error) {
	return nil, &Error{
		Op:      "rpc",
		Code:    "PGRST202",
		Message: fmt.Sprintf("rpc %s is not available on sqlite", fn),
	}
}

func (s *SQLiteStore) collect(ctx context.Context, stmt string, args []any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []Row{}
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(Row, len(cols))
		for i, c := range cols {
			if b, ok := vals[i].([]byte); ok {
				row[c] = string(b)
				continue
			}
			row[c] = vals[i]
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: rows affected")
	}
	return n, nil
}
