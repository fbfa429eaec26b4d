package promoter

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/resilience"
	"github.com/sells-group/promoter-service/internal/store"
	"github.com/sells-group/promoter-service/internal/webhook"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

// fakeStore records every call and delegates to per-operation funcs. Unset
// funcs succeed with empty results.
type fakeStore struct {
	mu sync.Mutex

	selectFn func(q *query.Query) (*store.Result, error)
	insertFn func(table string, rows []store.Row) ([]store.Row, error)
	updateFn func(q *query.Query, values store.Row) (int64, error)
	deleteFn func(q *query.Query) (int64, error)
	rpcFn    func(fn string, args map[string]any) ([]store.Row, error)

	selects []*query.Query
	inserts [][]store.Row
	updates []store.Row
	deletes []*query.Query
	rpcs    []map[string]any
	scoped  []*query.Query
}

func (f *fakeStore) Select(_ context.Context, q *query.Query) (*store.Result, error) {
	f.mu.Lock()
	f.selects = append(f.selects, q)
	fn := f.selectFn
	f.mu.Unlock()
	if fn == nil {
		return &store.Result{}, nil
	}
	return fn(q)
}

func (f *fakeStore) Insert(_ context.Context, table string, rows []store.Row) ([]store.Row, error) {
	f.mu.Lock()
	f.inserts = append(f.inserts, rows)
	fn := f.insertFn
	f.mu.Unlock()
	if fn == nil {
		return rows, nil
	}
	return fn(table, rows)
}

func (f *fakeStore) Update(_ context.Context, q *query.Query, values store.Row) (int64, error) {
	f.mu.Lock()
	f.updates = append(f.updates, values)
	f.scoped = append(f.scoped, q)
	fn := f.updateFn
	f.mu.Unlock()
	if fn == nil {
		return 1, nil
	}
	return fn(q, values)
}

func (f *fakeStore) Delete(_ context.Context, q *query.Query) (int64, error) {
	f.mu.Lock()
	f.deletes = append(f.deletes, q)
	fn := f.deleteFn
	f.mu.Unlock()
	if fn == nil {
		return 0, nil
	}
	return fn(q)
}

func (f *fakeStore) RPC(_ context.Context, name string, args map[string]any) ([]store.Row, error) {
	f.mu.Lock()
	f.rpcs = append(f.rpcs, args)
	fn := f.rpcFn
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(name, args)
}

func (f *fakeStore) Ping(context.Context) error    { return nil }
func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

// selectsOn returns the recorded selects against table.
func (f *fakeStore) selectsOn(table string) []*query.Query {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*query.Query
	for _, q := range f.selects {
		if q.Table == table {
			out = append(out, q)
		}
	}
	return out
}

type fakeInvoker struct {
	calls int
	name  string
	body  any
	out   func(out any)
	err   error
}

func (f *fakeInvoker) Invoke(_ context.Context, name string, body any, out any) error {
	f.calls++
	f.name = name
	f.body = body
	if f.err != nil {
		return f.err
	}
	if f.out != nil {
		f.out(out)
	}
	return nil
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []webhook.Event
}

func (n *fakeNotifier) Notify(_ context.Context, ev webhook.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func fastRetry() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     5 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func newTestService(st *fakeStore, opts ...Option) *Service {
	base := []Option{
		WithRetry(fastRetry()),
		WithClock(func() time.Time { return testNow }),
	}
	return New(st, nil, append(base, opts...)...)
}

// eqValue returns the value of the first equality clause on column.
func eqValue(q *query.Query, column string) (any, bool) {
	for _, c := range q.Clauses {
		if cond, ok := c.(query.Cond); ok && cond.Column == column && cond.Op == query.OpEq {
			return cond.Value, true
		}
	}
	return nil, false
}

func promoterRow(id, name string) store.Row {
	return store.Row{
		"id":             id,
		"name_en":        name,
		"name_ar":        "",
		"id_card_number": "784-" + id,
		"status":         "active",
	}
}
