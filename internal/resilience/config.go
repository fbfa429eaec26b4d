package resilience

import (
	"time"
)

// FromRetryConfig converts config values to a RetryConfig. Non-positive
// values keep the defaults.
func FromRetryConfig(maxAttempts, baseDelayMs, maxDelayMs int) RetryConfig {
	cfg := DefaultRetryConfig()
	if maxAttempts > 0 {
		cfg.MaxAttempts = maxAttempts
	}
	if baseDelayMs > 0 {
		cfg.InitialBackoff = time.Duration(baseDelayMs) * time.Millisecond
	}
	if maxDelayMs > 0 {
		cfg.MaxBackoff = time.Duration(maxDelayMs) * time.Millisecond
	}
	return cfg
}

// Chain returns an OnRetry callback that invokes each non-nil hook in order.
func Chain(hooks ...func(int, error)) func(int, error) {
	return func(attempt int, err error) {
		for _, h := range hooks {
			if h != nil {
				h(attempt, err)
			}
		}
	}
}
