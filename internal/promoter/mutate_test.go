package promoter

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/store"
	"github.com/sells-group/promoter-service/internal/webhook"
)

func inClause(t *testing.T, q *query.Query, column string) any {
	t.Helper()
	for _, c := range q.Clauses {
		if cond, ok := c.(query.Cond); ok && cond.Column == column && cond.Op == query.OpIn {
			return cond.Value
		}
	}
	t.Fatalf("no IN clause on %s", column)
	return nil
}

func TestGet(t *testing.T) {
	st := &fakeStore{
		selectFn: func(q *query.Query) (*store.Result, error) {
			if id, _ := eqValue(q, query.ColID); id == "p1" {
				return &store.Result{Rows: []store.Row{promoterRow("p1", "Alice")}}, nil
			}
			return &store.Result{}, nil
		},
	}
	svc := newTestService(st)

	p, err := svc.Get(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", p.NameEN)
	assert.Equal(t, model.StatusActive, p.Status)

	_, err = svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch promoter: promoter missing not found", err.Error())
}

func TestCreate(t *testing.T) {
	st := &fakeStore{
		insertFn: func(table string, rows []store.Row) ([]store.Row, error) {
			assert.Equal(t, query.TablePromoters, table)
			out := store.Row{"id": "new-1"}
			for k, v := range rows[0] {
				out[k] = v
			}
			return []store.Row{out}, nil
		},
	}
	n := &fakeNotifier{}
	svc := newTestService(st, WithNotifier(n))

	exp, err := model.ParseDate("2027-05-01")
	require.NoError(t, err)
	p, err := svc.Create(context.Background(), model.PromoterInput{
		NameEN:           " Alice ",
		IDCardNumber:     "784-1",
		IDCardExpiryDate: &exp,
	})
	require.NoError(t, err)
	assert.Equal(t, "new-1", p.ID)
	assert.Equal(t, "Alice", p.NameEN)
	assert.Equal(t, model.StatusActive, p.Status)
	require.NotNil(t, p.IDCardExpiryDate)
	assert.Equal(t, "2027-05-01", p.IDCardExpiryDate.String())

	require.Len(t, st.inserts, 1)
	row := st.inserts[0][0]
	assert.Equal(t, "active", row["status"])
	assert.Equal(t, "2027-05-01", row["id_card_expiry_date"])
	assert.NotContains(t, row, "passport_expiry_date")
	assert.NotContains(t, row, "active_contracts_count")

	svc.Wait()
	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventCreated, n.events[0].Type)
	assert.Equal(t, []string{"new-1"}, n.events[0].PromoterIDs)
}

func TestCreate_ValidationNotSent(t *testing.T) {
	st := &fakeStore{}
	n := &fakeNotifier{}
	svc := newTestService(st, WithNotifier(n))

	_, err := svc.Create(context.Background(), model.PromoterInput{IDCardNumber: "784-1"})
	require.Error(t, err)
	assert.Equal(t, "Failed to create promoter: invalid input: name_en is required", err.Error())
	assert.Empty(t, st.inserts)
	assert.Empty(t, n.events)
}

func TestDelete(t *testing.T) {
	st := &fakeStore{
		deleteFn: func(*query.Query) (int64, error) { return 2, nil },
	}
	n := &fakeNotifier{}
	svc := newTestService(st, WithNotifier(n))

	deleted, err := svc.Delete(context.Background(), []string{" p1 ", "p2", "p1", ""})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	require.Len(t, st.deletes, 1)
	q := st.deletes[0]
	assert.Equal(t, query.TablePromoters, q.Table)
	assert.Equal(t, []string{"p1", "p2"}, inClause(t, q, query.ColID))

	svc.Wait()
	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventDeleted, n.events[0].Type)
	assert.Equal(t, []string{"p1", "p2"}, n.events[0].PromoterIDs)
	assert.Equal(t, testNow, n.events[0].OccurredAt)
}

func TestDelete_NoIDs(t *testing.T) {
	st := &fakeStore{}
	_, err := newTestService(st).Delete(context.Background(), []string{"", "  "})
	require.Error(t, err)
	assert.Equal(t, "Failed to delete promoters: invalid input: no promoter ids given", err.Error())
	assert.Empty(t, st.deletes)
}

func TestDelete_BackendErrorNoEvent(t *testing.T) {
	st := &fakeStore{
		deleteFn: func(*query.Query) (int64, error) {
			return 0, &store.Error{Code: "42501", Message: "permission denied for table promoters"}
		},
	}
	n := &fakeNotifier{}
	_, err := newTestService(st, WithNotifier(n)).Delete(context.Background(), []string{"p1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to delete promoters: permission denied")
	assert.Len(t, st.deletes, 1)
	assert.Empty(t, n.events)
}

func TestUpdateStatus(t *testing.T) {
	st := &fakeStore{}
	n := &fakeNotifier{}
	svc := newTestService(st, WithNotifier(n))

	require.NoError(t, svc.UpdateStatus(context.Background(), "p1", model.StatusSuspended))

	require.Len(t, st.updates, 1)
	assert.Equal(t, store.Row{"status": "suspended", "updated_at": testNow}, st.updates[0])
	id, ok := eqValue(st.scoped[0], query.ColID)
	require.True(t, ok)
	assert.Equal(t, "p1", id)

	svc.Wait()
	require.Len(t, n.events, 1)
	assert.Equal(t, webhook.EventStatusUpdated, n.events[0].Type)
	assert.Equal(t, "suspended", n.events[0].Status)
}

// blockingNotifier holds every delivery until release is closed.
type blockingNotifier struct {
	release   chan struct{}
	delivered chan error
}

func (n *blockingNotifier) Notify(ctx context.Context, _ webhook.Event) {
	<-n.release
	n.delivered <- ctx.Err()
}

func TestUpdateStatus_DoesNotWaitForWebhook(t *testing.T) {
	st := &fakeStore{}
	n := &blockingNotifier{release: make(chan struct{}), delivered: make(chan error, 1)}
	svc := newTestService(st, WithNotifier(n))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.UpdateStatus(ctx, "p1", model.StatusActive) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("UpdateStatus blocked on webhook delivery")
	}

	cancel()
	close(n.release)
	svc.Wait()
	assert.NoError(t, <-n.delivered, "delivery context outlives the request")
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	st := &fakeStore{}
	err := newTestService(st).UpdateStatus(context.Background(), "p1", model.PromoterStatus("archived"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to update promoter status: invalid input")
	assert.Empty(t, st.updates)
}

func TestUpdateStatus_RetriesTransient(t *testing.T) {
	calls := 0
	st := &fakeStore{
		updateFn: func(*query.Query, store.Row) (int64, error) {
			calls++
			if calls == 1 {
				return 0, errors.New("connection refused")
			}
			return 1, nil
		},
	}
	require.NoError(t, newTestService(st).UpdateStatus(context.Background(), "p1", model.StatusInactive))
	assert.Equal(t, 2, calls)
}

func TestBulkUpdateStatus(t *testing.T) {
	st := &fakeStore{
		updateFn: func(*query.Query, store.Row) (int64, error) { return 3, nil },
	}
	n := &fakeNotifier{}
	svc := newTestService(st, WithNotifier(n))

	changed, err := svc.BulkUpdateStatus(context.Background(), []string{"p1", "p2", "p3"}, model.StatusInactive)
	require.NoError(t, err)
	assert.Equal(t, int64(3), changed)

	require.Len(t, st.scoped, 1)
	assert.Equal(t, []string{"p1", "p2", "p3"}, inClause(t, st.scoped[0], query.ColID))
	assert.Equal(t, "inactive", st.updates[0]["status"])

	svc.Wait()
	require.Len(t, n.events, 1)
	assert.Equal(t, []string{"p1", "p2", "p3"}, n.events[0].PromoterIDs)
}

func TestBulkUpdateStatus_NoIDs(t *testing.T) {
	st := &fakeStore{}
	_, err := newTestService(st).BulkUpdateStatus(context.Background(), nil, model.StatusActive)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to bulk update promoter status: invalid input")
	assert.Empty(t, st.updates)
}
