// Package promoter is the promoter data service: paginated listings,
// analytics, exports, status mutations and CV lookups over the backend, with
// retries and error normalization applied uniformly.
package promoter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/promoter-service/internal/metrics"
	"github.com/sells-group/promoter-service/internal/resilience"
	"github.com/sells-group/promoter-service/internal/store"
	"github.com/sells-group/promoter-service/internal/webhook"
)

// Backend procedure and job names.
const (
	fnAnalytics        = "get_promoters_with_analytics"
	fnPerformanceStats = "get_promoter_performance_stats"
	jobImportPromoters = "import-promoters"
)

const (
	defaultConcurrency  = 8
	defaultExpiringDays = 30
	recentContracts     = 5
)

// Notifier receives change events after successful mutations.
type Notifier interface {
	Notify(ctx context.Context, ev webhook.Event)
}

// Option configures a Service.
type Option func(*Service)

// WithRetry sets the retry policy for backend calls.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Service) {
		s.retry = cfg
	}
}

// WithClock overrides the time source used for expiry windows and
// timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithNotifier sets the receiver of change events.
func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithConcurrency caps the per-row contract count reads in flight for one
// listing.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithExpiringDays sets the default look-ahead for ExpiringDocuments.
func WithExpiringDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.expiringDays = days
		}
	}
}

// Service implements the promoter operations over a Store and, for bulk
// import, an Invoker.
type Service struct {
	store        store.Store
	invoker      store.Invoker
	retry        resilience.RetryConfig
	now          func() time.Time
	log          *zap.Logger
	metrics      *metrics.Metrics
	notifier     Notifier
	concurrency  int
	expiringDays int

	deliveries sync.WaitGroup
}

// New creates a Service. invoker may be nil, in which case ImportCSV fails.
func New(st store.Store, invoker store.Invoker, opts ...Option) *Service {
	s := &Service{
		store:        st,
		invoker:      invoker,
		retry:        resilience.DefaultRetryConfig(),
		now:          time.Now,
		log:          zap.L(),
		concurrency:  defaultConcurrency,
		expiringDays: defaultExpiringDays,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// retrying runs fn under the service retry policy, logging and counting
// each retry against op.
func retrying[T any](ctx context.Context, s *Service, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	cfg := s.retry
	cfg.OnRetry = resilience.Chain(cfg.OnRetry, resilience.RetryLogger("promoter", op), s.metrics.RetryHook(op))
	return resilience.DoVal(ctx, cfg, fn)
}

// fail wraps err for the caller as "Failed to {action}: {err}".
func fail(err error, action string) *resilience.ServiceError {
	return resilience.NewServiceError(err, "Failed to "+action)
}

// notify hands the event to the notifier in the background. Delivery runs on
// a context detached from the caller's cancellation, so a slow endpoint never
// delays the mutation that produced the event.
func (s *Service) notify(ctx context.Context, typ webhook.EventType, ids []string, status string) {
	if s.notifier == nil {
		return
	}
	ev := webhook.NewEvent(typ, ids, status, s.now())
	dctx := context.WithoutCancel(ctx)
	s.deliveries.Add(1)
	go func() {
		defer s.deliveries.Done()
		s.notifier.Notify(dctx, ev)
	}()
}

// Wait blocks until every pending change event has been handed off.
func (s *Service) Wait() {
	s.deliveries.Wait()
}
