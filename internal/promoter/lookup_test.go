package promoter

import (
	"context"
	"errors"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/store"
)

func TestSearch_OrClause(t *testing.T) {
	st := &fakeStore{
		selectFn: func(*query.Query) (*store.Result, error) {
			return &store.Result{Rows: []store.Row{promoterRow("p1", "John Doe")}}, nil
		},
	}
	got, err := newTestService(st).Search(context.Background(), " john ")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "John Doe", got[0].NameEN)

	qs := st.selectsOn(query.TablePromoters)
	require.Len(t, qs, 1)
	ors := qs[0].OrClauses()
	require.Len(t, ors, 1)
	assert.Equal(t, "name_en.ilike.%john%,name_ar.ilike.%john%,id_card_number.ilike.%john%", ors[0].String())
	assert.Equal(t, []query.Order{{Column: query.ColNameEN, Ascending: true}}, qs[0].Orders)
	assert.True(t, qs[0].Limit.IsAbsent())
}

func TestSearch_BlankTermMatchesAll(t *testing.T) {
	st := &fakeStore{}
	_, err := newTestService(st).Search(context.Background(), "   ")
	require.NoError(t, err)
	assert.Empty(t, st.selectsOn(query.TablePromoters)[0].Clauses)
}

func TestSearch_Error(t *testing.T) {
	st := &fakeStore{
		selectFn: func(*query.Query) (*store.Result, error) {
			return nil, errors.New("dns lookup failed")
		},
	}
	_, err := newTestService(st).Search(context.Background(), "john")
	require.Error(t, err)
	assert.Equal(t, "Failed to search promoters: dns lookup failed", err.Error())
	assert.Len(t, st.selectsOn(query.TablePromoters), 3)
}

func TestExpiringDocuments(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		days    int
		wantDay int
	}{
		{name: "default window", days: 0, wantDay: 30},
		{name: "negative uses default", days: -4, wantDay: 30},
		{name: "explicit window", days: 7, wantDay: 7},
		{name: "configured default", opts: []Option{WithExpiringDays(45)}, days: 0, wantDay: 45},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := &fakeStore{}
			_, err := newTestService(st, tt.opts...).ExpiringDocuments(context.Background(), tt.days)
			require.NoError(t, err)

			q := st.selectsOn(query.TablePromoters)[0]
			cutoff := testNow.AddDate(0, 0, tt.wantDay)
			assert.Equal(t, []query.Clause{query.Or{Conds: query.ExpiringConds(cutoff)}}, q.Clauses)
			assert.Equal(t, []query.Order{{Column: query.ColIDCardExpiryDate, Ascending: true}}, q.Orders)
		})
	}
}

func TestCVData_IsolatesFailures(t *testing.T) {
	st := &fakeStore{
		selectFn: func(q *query.Query) (*store.Result, error) {
			switch q.Table {
			case query.TableSkills:
				return nil, errors.New("network error")
			case query.TableExperience:
				return &store.Result{Rows: []store.Row{{"id": "e1", "promoter_id": "p1", "company": "Acme", "role": "Promoter", "start_date": "2024-02-01"}}}, nil
			case query.TableEducation:
				return &store.Result{Rows: []store.Row{{"id": "d1", "promoter_id": "p1", "degree": "BA", "institution": "UAEU", "year": 2019}}}, nil
			case query.TableDocuments:
				return &store.Result{Rows: []store.Row{{"id": "f1", "promoter_id": "p1", "document_type": "passport"}}}, nil
			}
			return &store.Result{}, nil
		},
	}
	cv, err := newTestService(st).CVData(context.Background(), "p1")
	require.NoError(t, err)

	assert.NotNil(t, cv.Skills)
	assert.Empty(t, cv.Skills)
	require.Len(t, cv.Experience, 1)
	assert.Equal(t, "Acme", cv.Experience[0].Company)
	require.Len(t, cv.Education, 1)
	require.NotNil(t, cv.Education[0].Year)
	assert.Equal(t, 2019, *cv.Education[0].Year)
	require.Len(t, cv.Documents, 1)

	// Sub-reads are single attempt.
	assert.Len(t, st.selectsOn(query.TableSkills), 1)

	exp := st.selectsOn(query.TableExperience)[0]
	assert.Equal(t, []query.Order{{Column: "start_date", Ascending: false}}, exp.Orders)
	edu := st.selectsOn(query.TableEducation)[0]
	assert.Equal(t, []query.Order{{Column: "year", Ascending: false}}, edu.Orders)
	docs := st.selectsOn(query.TableDocuments)[0]
	assert.Equal(t, []query.Order{{Column: "uploaded_on", Ascending: false}}, docs.Orders)
	id, _ := eqValue(docs, query.ColPromoterID)
	assert.Equal(t, "p1", id)
}

func TestActivitySummary(t *testing.T) {
	st := &fakeStore{
		selectFn: func(q *query.Query) (*store.Result, error) {
			if q.Head {
				return &store.Result{Count: mo.Some(int64(9))}, nil
			}
			return &store.Result{Rows: []store.Row{
				{"id": "c2", "promoter_id": "p1", "status": "active", "created_at": "2026-03-01T00:00:00Z"},
				{"id": "c1", "promoter_id": "p1", "status": "completed", "created_at": "2026-01-01T00:00:00Z"},
			}}, nil
		},
	}
	sum, err := newTestService(st).ActivitySummary(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 9, sum.TotalContracts)
	require.Len(t, sum.RecentContracts, 2)
	assert.Equal(t, "c2", sum.RecentContracts[0].ID)

	qs := st.selectsOn(query.TableContracts)
	require.Len(t, qs, 2)
	recent := qs[1]
	assert.Equal(t, mo.Some(5), recent.Limit)
	assert.Equal(t, []query.Order{{Column: query.ColCreatedAt, Ascending: false}}, recent.Orders)
}

func TestActivitySummary_CountFailureDefaultsToZero(t *testing.T) {
	st := &fakeStore{
		selectFn: func(q *query.Query) (*store.Result, error) {
			if q.Head {
				return nil, errors.New("network error")
			}
			return &store.Result{Rows: []store.Row{{"id": "c1", "promoter_id": "p1", "status": "active"}}}, nil
		},
	}
	sum, err := newTestService(st).ActivitySummary(context.Background(), "p1")
	require.NoError(t, err)
	assert.Zero(t, sum.TotalContracts)
	assert.Len(t, sum.RecentContracts, 1)
}

func TestActivitySummary_RecentFailure(t *testing.T) {
	st := &fakeStore{
		selectFn: func(q *query.Query) (*store.Result, error) {
			if q.Head {
				return &store.Result{Count: mo.Some(int64(1))}, nil
			}
			return nil, errors.New("invalid input syntax for type uuid")
		},
	}
	_, err := newTestService(st).ActivitySummary(context.Background(), "not-a-uuid")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to fetch activity summary")
}
