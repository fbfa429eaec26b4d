// Package metrics exposes Prometheus instrumentation for promoter operations.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/promoter-service/internal/resilience"
)

const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

// Metrics records operation outcomes, latency and retries.
type Metrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	retries    *prometheus.CounterVec
	gatherer   prometheus.Gatherer
}

// New registers the promoter collectors with registerer. A nil registerer
// uses a private registry, which is what tests want.
func New(registerer prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer
	if registerer == nil {
		reg := prometheus.NewRegistry()
		registerer, gatherer = reg, reg
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}

	m := &Metrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promoter_operations_total",
			Help: "Promoter service operations by outcome.",
		}, []string{"operation", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "promoter_operation_duration_seconds",
			Help:    "Promoter service operation latency, retries included.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"operation"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promoter_retry_attempts_total",
			Help: "Backend call retries by operation.",
		}, []string{"operation"}),
		gatherer: gatherer,
	}
	registerer.MustRegister(m.operations, m.duration, m.retries)
	return m
}

// Observe records one completed operation. Safe on a nil receiver.
func (m *Metrics) Observe(operation string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, Outcome(err)).Inc()
	m.duration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RetryHook returns an OnRetry callback counting retries for operation.
func (m *Metrics) RetryHook(operation string) func(int, error) {
	if m == nil {
		return nil
	}
	counter := m.retries.WithLabelValues(operation)
	return func(int, error) {
		counter.Inc()
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Outcome labels err as success, transient or permanent.
func Outcome(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	return resilience.ClassifyError(err)
}
