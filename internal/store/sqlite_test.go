package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/query"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedPromoters(t *testing.T, st *SQLiteStore, rows ...Row) []Row {
	t.Helper()
	out, err := st.Insert(context.Background(), query.TablePromoters, rows)
	require.NoError(t, err)
	require.Len(t, out, len(rows))
	return out
}

func TestSQLite_InsertReturnsGeneratedColumns(t *testing.T) {
	st := newTestSQLiteStore(t)

	rows := seedPromoters(t, st, Row{"name_en": "Alice", "id_card_number": "784-1"})
	assert.NotEmpty(t, rows[0]["id"])
	assert.Equal(t, "active", rows[0]["status"])

	promoters, err := Decode[model.Promoter](rows)
	require.NoError(t, err)
	require.Len(t, promoters, 1)
	assert.Equal(t, "Alice", promoters[0].NameEN)
	require.NotNil(t, promoters[0].CreatedAt)
}

func TestSQLite_SelectCountAndWindow(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedPromoters(t, st,
		Row{"name_en": "Carol", "id_card_number": "3", "status": "active"},
		Row{"name_en": "alice", "id_card_number": "1", "status": "active"},
		Row{"name_en": "Bob", "id_card_number": "2", "status": "inactive"},
	)

	q := query.From(query.TablePromoters).
		Select(nil, query.CountExact).
		Eq(query.ColStatus, "active").
		Order(query.ColNameEN, true).
		Range(1, 1)
	res, err := st.Select(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Total())
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "alice", res.Rows[0]["name_en"])
}

func TestSQLite_ILikeIsCaseInsensitive(t *testing.T) {
	st := newTestSQLiteStore(t)

	seedPromoters(t, st,
		Row{"name_en": "John Smith", "id_card_number": "1"},
		Row{"name_en": "Mary", "id_card_number": "2"},
	)

	q := query.From(query.TablePromoters).Or(
		query.Cond{Column: query.ColNameEN, Op: query.OpILike, Value: "%JOHN%"},
		query.Cond{Column: query.ColIDCardNumber, Op: query.OpILike, Value: "%JOHN%"},
	)
	res, err := st.Select(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "John Smith", res.Rows[0]["name_en"])
}

func TestSQLite_ExpiryComparison(t *testing.T) {
	st := newTestSQLiteStore(t)

	seedPromoters(t, st,
		Row{"name_en": "Soon", "id_card_number": "1", "id_card_expiry_date": "2025-06-10"},
		Row{"name_en": "Later", "id_card_number": "2", "id_card_expiry_date": "2026-01-01"},
	)

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	q := query.From(query.TablePromoters).Lte(query.ColIDCardExpiryDate, now.Add(30*24*time.Hour))
	res, err := st.Select(context.Background(), q)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Soon", res.Rows[0]["name_en"])
}

func TestSQLite_UpdateAndDelete(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rows := seedPromoters(t, st,
		Row{"name_en": "A", "id_card_number": "1"},
		Row{"name_en": "B", "id_card_number": "2"},
	)
	ids := []string{rows[0]["id"].(string), rows[1]["id"].(string)}

	n, err := st.Update(ctx, query.From(query.TablePromoters).In(query.ColID, ids),
		Row{"status": "suspended", "updated_at": time.Now()})
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	res, err := st.Select(ctx, query.From(query.TablePromoters).Eq(query.ColStatus, "suspended"))
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)

	n, err = st.Delete(ctx, query.From(query.TablePromoters).In(query.ColID, ids[:1]))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	res, err = st.Select(ctx, query.From(query.TablePromoters).Select(nil, query.CountExact))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Total())
}

func TestSQLite_DeleteCascadesToContracts(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	rows := seedPromoters(t, st, Row{"name_en": "A", "id_card_number": "1"})
	id := rows[0]["id"].(string)

	_, err := st.Insert(ctx, query.TableContracts, []Row{
		{"promoter_id": id, "status": "active"},
		{"promoter_id": id, "status": "completed"},
	})
	require.NoError(t, err)

	_, err = st.Delete(ctx, query.From(query.TablePromoters).Eq(query.ColID, id))
	require.NoError(t, err)

	res, err := st.Select(ctx, query.From(query.TableContracts).HeadOnly().Eq(query.ColPromoterID, id))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Total())
}

func TestSQLite_RPCUnavailable(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.RPC(context.Background(), "get_promoter_performance_stats", nil)
	require.Error(t, err)

	var storeErr *Error
	require.True(t, errors.As(err, &storeErr))
	assert.Equal(t, "PGRST202", storeErr.Code)
}

func TestSQLite_Ping(t *testing.T) {
	st := newTestSQLiteStore(t)
	assert.NoError(t, st.Ping(context.Background()))
}
