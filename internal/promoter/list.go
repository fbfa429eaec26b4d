package promoter

import (
	"context"
	"strings"
	"time"

	"github.com/samber/mo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/pagination"
	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/resilience"
	"github.com/sells-group/promoter-service/internal/store"
)

// List returns one page of promoters matching search and filters, ordered
// by English name, each with its active contract count attached.
//
// List never returns an error. A failed backend read yields an empty page
// whose Error is set, so callers rendering tables always get a valid shape.
func (s *Service) List(ctx context.Context, params pagination.Params, search string, filters model.PromoterFilters) pagination.Result[model.Promoter] {
	start := time.Now()
	p := params.Normalize()
	from, to := p.Range()

	res, err := retrying(ctx, s, "list", func(ctx context.Context) (*store.Result, error) {
		q := query.From(query.TablePromoters).Select(nil, query.CountExact)
		query.BuildPromoterQuery(q, search, filters, s.now())
		q.Range(from, to).Order(query.ColNameEN, true)
		return s.store.Select(ctx, q)
	})
	var promoters []model.Promoter
	if err == nil {
		promoters, err = store.Decode[model.Promoter](res.Rows)
	}
	s.metrics.Observe("list", start, err)
	if err != nil {
		s.log.Error("promoter: list failed", zap.Error(err))
		return pagination.Failed[model.Promoter](resilience.NewServiceError(err, "Error fetching promoters"))
	}

	s.attachContractCounts(ctx, promoters)
	return pagination.Paginate(promoters, res.Total(), p)
}

// attachContractCounts fills ActiveContractsCount for every promoter. A
// failed count is logged and left at zero.
func (s *Service) attachContractCounts(ctx context.Context, promoters []model.Promoter) {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range promoters {
		g.Go(func() error {
			n, err := s.countActiveContracts(ctx, promoters[i].ID)
			if err != nil {
				s.log.Warn("promoter: active contract count failed",
					zap.String("promoter_id", promoters[i].ID),
					zap.Error(err))
				n = 0
			}
			promoters[i].ActiveContractsCount = n
			return nil
		})
	}
	_ = g.Wait()
}

func (s *Service) countActiveContracts(ctx context.Context, promoterID string) (int, error) {
	q := query.From(query.TableContracts).
		HeadOnly().
		Eq(query.ColPromoterID, promoterID).
		Eq(query.ColStatus, "active")
	res, err := s.store.Select(ctx, q)
	if err != nil {
		return 0, err
	}
	return res.Total(), nil
}

// analyticsEnvelope is the single row returned by the analytics procedure.
type analyticsEnvelope struct {
	Data       []model.PromoterAnalytics `json:"data"`
	TotalCount int                       `json:"total_count"`
	Page       int                       `json:"page"`
	Limit      int                       `json:"limit"`
	TotalPages int                       `json:"total_pages"`
}

// Analytics returns one page of promoters enriched with document and
// contract analytics, computed by the backend procedure.
func (s *Service) Analytics(ctx context.Context, params pagination.Params, search string, filters model.PromoterFilters) (pagination.Result[model.PromoterAnalytics], error) {
	start := time.Now()
	p := params.Normalize()

	rows, err := retrying(ctx, s, "analytics", func(ctx context.Context) ([]store.Row, error) {
		return s.store.RPC(ctx, fnAnalytics, analyticsArgs(p, search, filters))
	})
	var envs []analyticsEnvelope
	if err == nil && len(rows) > 0 {
		envs, err = store.Decode[analyticsEnvelope](rows[:1])
	}
	s.metrics.Observe("analytics", start, err)
	if err != nil {
		return pagination.Failed[model.PromoterAnalytics](nil), fail(err, "fetch promoter analytics")
	}
	if len(envs) == 0 {
		return pagination.Paginate([]model.PromoterAnalytics{}, 0, p), nil
	}

	env := envs[0]
	page := p
	if env.Page > 0 {
		page.Page = env.Page
	}
	if env.Limit > 0 {
		page.Limit = env.Limit
	}
	return pagination.Paginate(env.Data, env.TotalCount, page), nil
}

// analyticsArgs maps the page request and filters onto the procedure's
// named arguments. Absent filters are passed as NULL.
func analyticsArgs(p pagination.Params, search string, f model.PromoterFilters) map[string]any {
	var term any
	if t := strings.TrimSpace(search); t != "" {
		term = t
	}
	return map[string]any{
		"p_page":            p.Page,
		"p_limit":           p.Limit,
		"p_search":          term,
		"p_status":          optString(f.Status),
		"p_overall_status":  optString(f.OverallStatus),
		"p_work_location":   optString(f.WorkLocation),
		"p_document_status": optString(f.DocumentStatus),
		"p_has_contracts":   optBool(f.HasContracts),
		"p_sort_by":         query.ColNameEN,
		"p_sort_order":      "asc",
	}
}

// optString unwraps o for use as a procedure argument, as a plain string.
func optString[T ~string](o mo.Option[T]) any {
	if v, ok := o.Get(); ok {
		return string(v)
	}
	return nil
}

func optBool(o mo.Option[bool]) any {
	if v, ok := o.Get(); ok {
		return v
	}
	return nil
}

// PerformanceStats returns the dashboard aggregates. An empty procedure
// result yields a zeroed record.
func (s *Service) PerformanceStats(ctx context.Context) (*model.PerformanceStats, error) {
	start := time.Now()

	rows, err := retrying(ctx, s, "performance_stats", func(ctx context.Context) ([]store.Row, error) {
		return s.store.RPC(ctx, fnPerformanceStats, nil)
	})
	var stats []model.PerformanceStats
	if err == nil && len(rows) > 0 {
		stats, err = store.Decode[model.PerformanceStats](rows[:1])
	}
	s.metrics.Observe("performance_stats", start, err)
	if err != nil {
		return nil, fail(err, "fetch performance stats")
	}
	if len(stats) == 0 {
		return &model.PerformanceStats{}, nil
	}
	return &stats[0], nil
}
