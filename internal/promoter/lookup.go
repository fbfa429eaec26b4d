package promoter

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/query"
	"github.com/sells-group/promoter-service/internal/store"
)

// Search returns every promoter whose English name, Arabic name or ID card
// number contains term, ordered by English name.
func (s *Service) Search(ctx context.Context, term string) ([]model.Promoter, error) {
	start := time.Now()
	promoters, err := selectAll[model.Promoter](ctx, s, "search", func() *query.Query {
		q := query.From(query.TablePromoters)
		if conds := query.SearchConds(term); conds != nil {
			q.Or(conds...)
		}
		return q.Order(query.ColNameEN, true)
	})
	s.metrics.Observe("search", start, err)
	if err != nil {
		return nil, fail(err, "search promoters")
	}
	return promoters, nil
}

// ExpiringDocuments returns promoters whose ID card or passport expires
// within daysAhead days, soonest ID card first. A non-positive daysAhead
// uses the configured default.
func (s *Service) ExpiringDocuments(ctx context.Context, daysAhead int) ([]model.Promoter, error) {
	start := time.Now()
	if daysAhead <= 0 {
		daysAhead = s.expiringDays
	}
	cutoff := s.now().AddDate(0, 0, daysAhead)

	promoters, err := selectAll[model.Promoter](ctx, s, "expiring_documents", func() *query.Query {
		return query.From(query.TablePromoters).
			Or(query.ExpiringConds(cutoff)...).
			Order(query.ColIDCardExpiryDate, true)
	})
	s.metrics.Observe("expiring_documents", start, err)
	if err != nil {
		return nil, fail(err, "fetch expiring documents")
	}
	return promoters, nil
}

// CVData reads the four CV sub-resources of a promoter concurrently. A
// failed read is logged and yields an empty slice for that resource only.
func (s *Service) CVData(ctx context.Context, promoterID string) (*model.CVData, error) {
	start := time.Now()
	cv := &model.CVData{}

	var g errgroup.Group
	g.Go(func() error {
		cv.Skills = cvRead[model.Skill](ctx, s, promoterID, query.TableSkills, "")
		return nil
	})
	g.Go(func() error {
		cv.Experience = cvRead[model.Experience](ctx, s, promoterID, query.TableExperience, "start_date")
		return nil
	})
	g.Go(func() error {
		cv.Education = cvRead[model.Education](ctx, s, promoterID, query.TableEducation, "year")
		return nil
	})
	g.Go(func() error {
		cv.Documents = cvRead[model.Document](ctx, s, promoterID, query.TableDocuments, "uploaded_on")
		return nil
	})
	_ = g.Wait()

	s.metrics.Observe("cv_data", start, nil)
	return cv, nil
}

// ActivitySummary returns the promoter's total contract count and five most
// recent contracts. A failed count is logged and reported as zero.
func (s *Service) ActivitySummary(ctx context.Context, promoterID string) (*model.ActivitySummary, error) {
	start := time.Now()

	total := 0
	res, err := s.store.Select(ctx, query.From(query.TableContracts).
		HeadOnly().
		Eq(query.ColPromoterID, promoterID))
	if err != nil {
		s.log.Warn("promoter: contract count failed",
			zap.String("promoter_id", promoterID),
			zap.Error(err))
	} else {
		total = res.Total()
	}

	recent, err := selectAll[model.Contract](ctx, s, "activity_summary", func() *query.Query {
		return query.From(query.TableContracts).
			Eq(query.ColPromoterID, promoterID).
			Order(query.ColCreatedAt, false).
			SetLimit(recentContracts)
	})
	s.metrics.Observe("activity_summary", start, err)
	if err != nil {
		return nil, fail(err, "fetch activity summary")
	}
	return &model.ActivitySummary{TotalContracts: total, RecentContracts: recent}, nil
}

// cvRead is a single-attempt read of one CV table, newest first when
// orderBy is set. Failures yield an empty slice.
func cvRead[T any](ctx context.Context, s *Service, promoterID, table, orderBy string) []T {
	q := query.From(table).Eq(query.ColPromoterID, promoterID)
	if orderBy != "" {
		q.Order(orderBy, false)
	}
	res, err := s.store.Select(ctx, q)
	var out []T
	if err == nil {
		out, err = store.Decode[T](res.Rows)
	}
	if err != nil {
		s.log.Warn("promoter: cv read failed",
			zap.String("promoter_id", promoterID),
			zap.String("table", table),
			zap.Error(err))
		return []T{}
	}
	return out
}

// selectAll runs the query built by build under retry and decodes every row.
func selectAll[T any](ctx context.Context, s *Service, op string, build func() *query.Query) ([]T, error) {
	res, err := retrying(ctx, s, op, func(ctx context.Context) (*store.Result, error) {
		return s.store.Select(ctx, build())
	})
	if err != nil {
		return nil, err
	}
	return store.Decode[T](res.Rows)
}
