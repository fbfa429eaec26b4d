package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/samber/mo"

	"github.com/sells-group/promoter-service/internal/query"
)

// Pool is the subset of pgxpool.Pool used by PostgresStore. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool.
func NewPostgresWithPool(pool Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return s.wrap(err, "ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return s.wrap(err, "migrate")
}

func (s *PostgresStore) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

func (s *PostgresStore) Select(ctx context.Context, q *query.Query) (*Result, error) {
	res := &Result{Rows: []Row{}}

	if q.Count == query.CountExact {
		sql, args, err := query.CompileCount(q, query.Postgres)
		if err != nil {
			return nil, err
		}
		var n int64
		if err := s.pool.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
			return nil, s.wrapf(err, "count %s", q.Table)
		}
		res.Count = mo.Some(n)
	}
	if q.Head {
		return res, nil
	}

	sql, args, err := query.Compile(q, query.Postgres)
	if err != nil {
		return nil, err
	}
	rows, err := s.collect(ctx, sql, args)
	if err != nil {
		return nil, s.wrapf(err, "select %s", q.Table)
	}
	res.Rows = rows
	return res, nil
}

func (s *PostgresStore) Insert(ctx context.Context, table string, rows []Row) ([]Row, error) {
	sql, args, err := query.CompileInsert(table, rows, query.Postgres)
	if err != nil {
		return nil, err
	}
	out, err := s.collect(ctx, sql, args)
	if err != nil {
		return nil, s.wrapf(err, "insert %s", table)
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, q *query.Query, values Row) (int64, error) {
	sql, args, err := query.CompileUpdate(q, values, query.Postgres)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, s.wrapf(err, "update %s", q.Table)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Delete(ctx context.Context, q *query.Query) (int64, error) {
	sql, args, err := query.CompileDelete(q, query.Postgres)
	if err != nil {
		return 0, err
	}
	tag, err := s.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, s.wrapf(err, "delete %s", q.Table)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) RPC(ctx context.Context, fn string, args map[string]any) ([]Row, error) {
	sql, params, err := query.CompileCall(fn, args)
	if err != nil {
		return nil, err
	}
	rows, err := s.collect(ctx, sql, params)
	if err != nil {
		return nil, s.wrapf(err, "rpc %s", fn)
	}
	return rows, nil
}

func (s *PostgresStore) collect(ctx context.Context, sql string, args []any) ([]Row, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, err
	}
	out := make([]Row, len(maps))
	for i, m := range maps {
		for k, v := range m {
			m[k] = normalizeValue(v)
		}
		out[i] = m
	}
	return out, nil
}

// wrap maps database errors to *Error, keeping the SQLSTATE as the code.
// Other errors (pool, network) are wrapped with the operation name.
func (s *PostgresStore) wrap(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &Error{
			Op:      op,
			Code:    pgErr.Code,
			Message: pgErr.Message,
			Details: pgErr.Detail,
			Hint:    pgErr.Hint,
			Err:     err,
		}
	}
	return eris.Wrapf(err, "postgres: %s", op)
}

func (s *PostgresStore) wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return s.wrap(err, fmt.Sprintf(format, args...))
}

// normalizeValue converts pgx-native values into JSON-friendly ones.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case [16]byte:
		return uuid.UUID(t).String()
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	case map[string]any:
		for k, inner := range t {
			t[k] = normalizeValue(inner)
		}
		return t
	case []any:
		for i, inner := range t {
			t[i] = normalizeValue(inner)
		}
		return t
	default:
		return v
	}
}
