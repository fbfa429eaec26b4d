package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fastConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 1 * time.Millisecond,
		MaxBackoff:     10 * time.Millisecond,
		Multiplier:     2.0,
	}
}

func TestDo_SuccessOnFirstAttempt(t *testing.T) {
	var calls int
	err := Do(context.Background(), DefaultRetryConfig(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_EventualSuccess(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("network error")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ExhaustsRetries(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		return errors.New("network error")
	})
	if err == nil {
		t.Fatal("expected error after exhausting retries")
	}
	if err.Error() != "network error" {
		t.Errorf("expected final error to propagate, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestDo_ValidationError_NoRetry(t *testing.T) {
	var calls int
	err := Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		return errors.New("Invalid input")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("expected 1 call (no retry for validation error), got %d", calls)
	}
}

func TestDo_UnclassifiedError_NoRetry(t *testing.T) {
	var calls int
	_ = Do(context.Background(), fastConfig(), func(_ context.Context) error {
		calls++
		return errors.New("unexpected state")
	})
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
}

func TestDo_ContextCancelled_StopsRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls int
	cfg := RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: 50 * time.Millisecond,
		MaxBackoff:     100 * time.Millisecond,
	}

	err := Do(ctx, cfg, func(_ context.Context) error {
		calls++
		if calls == 2 {
			cancel()
		}
		return errors.New("connection reset")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 2 {
		t.Errorf("expected 2 calls before cancel took effect, got %d", calls)
	}
}

func TestDo_CustomShouldRetry(t *testing.T) {
	var calls int
	cfg := fastConfig()
	cfg.ShouldRetry = func(err error) bool {
		return err.Error() == "retry me"
	}

	err := Do(context.Background(), cfg, func(_ context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("retry me")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Errorf("expected 2 calls, got %d", calls)
	}
}

func TestDo_OnRetryCallback(t *testing.T) {
	var retryAttempts []int
	cfg := fastConfig()
	cfg.OnRetry = func(attempt int, _ error) {
		retryAttempts = append(retryAttempts, attempt)
	}

	_ = Do(context.Background(), cfg, func(_ context.Context) error {
		return errors.New("timeout")
	})

	if len(retryAttempts) != 2 {
		t.Fatalf("expected 2 OnRetry calls, got %d", len(retryAttempts))
	}
	if retryAttempts[0] != 1 || retryAttempts[1] != 2 {
		t.Errorf("expected attempts [1, 2], got %v", retryAttempts)
	}
}

func TestDoVal_ReturnsValueOnSuccess(t *testing.T) {
	var calls int
	val, err := DoVal(context.Background(), fastConfig(), func(_ context.Context) (string, error) {
		calls++
		if calls < 2 {
			return "", errors.New("fetch failed")
		}
		return "hello", nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "hello" {
		t.Errorf("expected %q, got %q", "hello", val)
	}
}

func TestDoVal_ReturnsZeroOnFailure(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxAttempts = 2

	val, err := DoVal(context.Background(), cfg, func(_ context.Context) (int, error) {
		return 42, errors.New("network error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if val != 0 {
		t.Errorf("expected zero value on failure, got %d", val)
	}
}

func TestDo_DefaultConfig(t *testing.T) {
	var calls atomic.Int32
	err := Do(context.Background(), RetryConfig{}, func(_ context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
}

func TestDefaultRetryConfig(t *testing.T) {
	cfg := DefaultRetryConfig()
	if cfg.MaxAttempts != 3 {
		t.Errorf("expected 3 attempts, got %d", cfg.MaxAttempts)
	}
	if cfg.InitialBackoff != time.Second {
		t.Errorf("expected 1s base delay, got %v", cfg.InitialBackoff)
	}
	if cfg.MaxBackoff != 10*time.Second {
		t.Errorf("expected 10s max delay, got %v", cfg.MaxBackoff)
	}
	if cfg.JitterFraction != 0 {
		t.Errorf("expected no jitter, got %v", cfg.JitterFraction)
	}
}

func TestComputeBackoff_ExponentialGrowth(t *testing.T) {
	cfg := applyDefaults(DefaultRetryConfig())

	expected := []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}
	for i, want := range expected {
		if got := computeBackoff(i+1, cfg); got != want {
			t.Errorf("attempt %d: expected %v, got %v", i+1, want, got)
		}
	}
}

func TestComputeBackoff_WithJitter(t *testing.T) {
	cfg := applyDefaults(RetryConfig{
		InitialBackoff: 1 * time.Second,
		MaxBackoff:     30 * time.Second,
		JitterFraction: 0.5,
	})

	for i := 0; i < 100; i++ {
		d := computeBackoff(1, cfg)
		if d < 500*time.Millisecond || d > 1500*time.Millisecond {
			t.Errorf("delay %v outside expected range [500ms, 1500ms]", d)
		}
	}
}

func TestFromRetryConfig(t *testing.T) {
	cfg := FromRetryConfig(5, 200, 2000)
	if cfg.MaxAttempts != 5 || cfg.InitialBackoff != 200*time.Millisecond || cfg.MaxBackoff != 2*time.Second {
		t.Errorf("unexpected config %+v", cfg)
	}

	def := FromRetryConfig(0, 0, 0)
	if def.MaxAttempts != 3 || def.InitialBackoff != time.Second || def.MaxBackoff != 10*time.Second {
		t.Errorf("expected defaults, got %+v", def)
	}
}

func TestChain(t *testing.T) {
	var a, b int
	hook := Chain(func(int, error) { a++ }, nil, func(int, error) { b++ })
	hook(1, errors.New("x"))
	if a != 1 || b != 1 {
		t.Errorf("expected both hooks called once, got a=%d b=%d", a, b)
	}
}

func TestRetryLogger(t *testing.T) {
	t.Parallel()
	logger := RetryLogger("promoters", "list")
	logger(1, errors.New("test error"))
}
