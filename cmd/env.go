package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/promoter-service/internal/metrics"
	"github.com/sells-group/promoter-service/internal/promoter"
	"github.com/sells-group/promoter-service/internal/resilience"
	"github.com/sells-group/promoter-service/internal/store"
	"github.com/sells-group/promoter-service/internal/webhook"
	"github.com/sells-group/promoter-service/pkg/functions"
)

const defaultSQLitePath = "promoters.db"

// appEnv holds the per-process dependencies of a command.
type appEnv struct {
	Store    store.Store
	Service  *promoter.Service
	Metrics  *metrics.Metrics
	Notifier *webhook.Notifier
}

// Close waits for pending webhook deliveries and releases the backend
// connection.
func (e *appEnv) Close() {
	if e == nil {
		return
	}
	if e.Service != nil {
		e.Service.Wait()
	}
	if e.Store == nil {
		return
	}
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = defaultSQLitePath
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initInvoker returns the background-job client, or nil when no functions
// endpoint is configured.
func initInvoker() store.Invoker {
	if cfg.Functions.BaseURL == "" {
		return nil
	}
	return functions.NewClient(cfg.Functions.BaseURL, cfg.Functions.APIKey,
		functions.WithTimeout(time.Duration(cfg.Functions.TimeoutSecs)*time.Second),
		functions.WithRateLimit(cfg.Functions.RatePerSec),
	)
}

// initEnv validates the configuration for mode and wires the service.
// Metrics are registered only when withMetrics is set.
func initEnv(ctx context.Context, mode string, withMetrics bool) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}

	retry := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMs, cfg.Retry.MaxDelayMs)
	env := &appEnv{
		Store:    st,
		Notifier: webhook.New(cfg.Webhook, webhook.WithRetry(retry)),
	}
	if withMetrics {
		env.Metrics = metrics.New(prometheus.DefaultRegisterer)
	}

	env.Service = promoter.New(st, initInvoker(),
		promoter.WithRetry(retry),
		promoter.WithMetrics(env.Metrics),
		promoter.WithNotifier(env.Notifier),
		promoter.WithConcurrency(cfg.Service.ContractCountConcurrency),
		promoter.WithExpiringDays(cfg.Service.ExpiringDays),
	)
	return env, nil
}
