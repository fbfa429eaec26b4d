package promoter

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/store"
	"github.com/sells-group/promoter-service/internal/webhook"
)

// Get returns one promoter by id.
func (s *Service) Get(ctx context.Context, id string) (*model.Promoter, error) {
	start := time.Now()
	res, err := retrying(ctx, s, "get", func(ctx context.Context) (*store.Result, error) {
		return s.store.Select(ctx, query.From(query.TablePromoters).Eq(query.ColID, id).SetLimit(1))
	})
	var promoters []model.Promoter
	if err == nil {
		promoters, err = store.Decode[model.Promoter](res.Rows)
	}
	if err == nil && len(promoters) == 0 {
		err = eris.Errorf("promoter %s not found", id)
	}
	s.metrics.Observe("get", start, err)
	if err != nil {
		return nil, fail(err, "fetch promoter")
	}
	return &promoters[0], nil
}

// Create inserts a promoter and returns the stored record. Status defaults
// to active.
func (s *Service) Create(ctx context.Context, in model.PromoterInput) (*model.Promoter, error) {
	start := time.Now()
	if in.Status == "" {
		in.Status = model.StatusActive
	}
	in.NameEN = strings.TrimSpace(in.NameEN)
	in.IDCardNumber = strings.TrimSpace(in.IDCardNumber)

	created, err := s.create(ctx, in)
	s.metrics.Observe("create", start, err)
	if err != nil {
		return nil, fail(err, "create promoter")
	}
	s.notify(ctx, webhook.EventCreated, []string{created.ID}, string(created.Status))
	return created, nil
}

func (s *Service) create(ctx context.Context, in model.PromoterInput) (*model.Promoter, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	row, err := store.Encode(in)
	if err != nil {
		return nil, err
	}
	rows, err := retrying(ctx, s, "create", func(ctx context.Context) ([]store.Row, error) {
		return s.store.Insert(ctx, query.TablePromoters, []store.Row{row})
	})
	if err != nil {
		return nil, err
	}
	promoters, err := store.Decode[model.Promoter](rows)
	if err != nil {
		return nil, err
	}
	if len(promoters) == 0 {
		return nil, eris.New("insert returned no rows")
	}
	return &promoters[0], nil
}

// Delete removes the promoters with the given ids and returns how many rows
// were deleted. Dependent rows are removed by the backend.
func (s *Service) Delete(ctx context.Context, ids []string) (int64, error) {
	start := time.Now()
	ids = cleanIDs(ids)
	var (
		n   int64
		err error
	)
	if len(ids) == 0 {
		err = eris.New("invalid input: no promoter ids given")
	} else {
		n, err = retrying(ctx, s, "delete", func(ctx context.Context) (int64, error) {
			return s.store.Delete(ctx, query.From(query.TablePromoters).In(query.ColID, ids))
		})
	}
	s.metrics.Observe("delete", start, err)
	if err != nil {
		return 0, fail(err, "delete promoters")
	}
	s.notify(ctx, webhook.EventDeleted, ids, "")
	return n, nil
}

// UpdateStatus sets the status of one promoter.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.PromoterStatus) error {
	start := time.Now()
	ids := cleanIDs([]string{id})
	_, err := s.setStatus(ctx, "update_status", ids, status)
	s.metrics.Observe("update_status", start, err)
	if err != nil {
		return fail(err, "update promoter status")
	}
	s.notify(ctx, webhook.EventStatusUpdated, ids, string(status))
	return nil
}

// BulkUpdateStatus sets the status of every listed promoter in one update
// and returns the number of rows changed.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []string, status model.PromoterStatus) (int64, error) {
	start := time.Now()
	ids = cleanIDs(ids)
	n, err := s.setStatus(ctx, "bulk_update_status", ids, status)
	s.metrics.Observe("bulk_update_status", start, err)
	if err != nil {
		return 0, fail(err, "bulk update promoter status")
	}
	s.notify(ctx, webhook.EventStatusUpdated, ids, string(status))
	return n, nil
}

func (s *Service) setStatus(ctx context.Context, op string, ids []string, status model.PromoterStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, eris.New("invalid input: no promoter ids given")
	}
	if !status.Valid() {
		return 0, eris.Errorf("invalid input: unknown promoter status %q", status)
	}
	values := store.Row{
		query.ColStatus:    string(status),
		query.ColUpdatedAt: s.now().UTC(),
	}
	return retrying(ctx, s, op, func(ctx context.Context) (int64, error) {
		q := query.From(query.TablePromoters)
		if len(ids) == 1 {
			q.Eq(query.ColID, ids[0])
		} else {
			q.In(query.ColID, ids)
		}
		return s.store.Update(ctx, q, values)
	})
}

// cleanIDs trims, drops blanks and de-duplicates ids, keeping first-seen
// order.
func cleanIDs(ids []string) []string {
	return lo.Uniq(lo.Compact(lo.Map(ids, func(id string, _ int) string {
		return strings.TrimSpace(id)
	})))
}
