// Package api serves the promoter operations over HTTP.
package api

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/promoter-service/internal/metrics"
	"github.com/sells-group/promoter-service/internal/model"
	"github.com/sells-group/promoter-service/internal/pagination"
	"github.com/sells-group/promoter-service/internal/tabular"
)

const requestTimeout = 2 * time.Minute

// Service is the promoter operation set exposed by the API.
type Service interface {
	List(ctx context.Context, params pagination.Params, search string, filters model.PromoterFilters) pagination.Result[model.Promoter]
	Analytics(ctx context.Context, params pagination.Params, search string, filters model.PromoterFilters) (pagination.Result[model.PromoterAnalytics], error)
	PerformanceStats(ctx context.Context) (*model.PerformanceStats, error)
	ExportCSV(ctx context.Context, search string, filters model.PromoterFilters) (string, error)
	ExportXLSX(ctx context.Context, w io.Writer, search string, filters model.PromoterFilters) error
	ImportCSV(ctx context.Context, rows []tabular.Record, userID string) (*model.ImportResult, error)
	Get(ctx context.Context, id string) (*model.Promoter, error)
	Create(ctx context.Context, in model.PromoterInput) (*model.Promoter, error)
	Delete(ctx context.Context, ids []string) (int64, error)
	UpdateStatus(ctx context.Context, id string, status model.PromoterStatus) error
	BulkUpdateStatus(ctx context.Context, ids []string, status model.PromoterStatus) (int64, error)
	Search(ctx context.Context, term string) ([]model.Promoter, error)
	ExpiringDocuments(ctx context.Context, daysAhead int) ([]model.Promoter, error)
	CVData(ctx context.Context, promoterID string) (*model.CVData, error)
	ActivitySummary(ctx context.Context, promoterID string) (*model.ActivitySummary, error)
}

// Options configures the router.
type Options struct {
	CORSOrigins []string
	Metrics     *metrics.Metrics
	// Health, when set, is probed by GET /health.
	Health func(ctx context.Context) error
}

// NewRouter returns the HTTP handler for the promoter API.
func NewRouter(svc Service, opts Options) http.Handler {
	r := chi.NewRouter()

	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(requestTimeout))

	r.Get("/health", healthHandler(opts.Health))
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/promoters", NewPromoterHandler(svc).Router())
	})

	return r
}

func healthHandler(probe func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if probe != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
			defer cancel()
			if err := probe(ctx); err != nil {
				zap.L().Warn("api: health probe failed", zap.Error(err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{
					"status": "unhealthy",
					"error":  err.Error(),
				})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// accessLogger writes one structured line per request.
func accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		zap.L().Info("request completed",
			zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}
