package resilience

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
)

func TestCircuitBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	stateChanges := make([]gobreaker.State, 0)
	cfg := DefaultBreakerConfig("test")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 3
	cfg.OnStateChange = func(_ string, _, to gobreaker.State) {
		stateChanges = append(stateChanges, to)
	}

	breaker := NewCircuitBreaker(cfg)

	for i := 0; i < 5; i++ {
		breaker.Execute(func() (any, error) { return nil, errors.New("fail") })
	}

	if breaker.State() != gobreaker.StateOpen {
		t.Errorf("expected StateOpen, got %v", breaker.State())
	}

	if len(stateChanges) == 0 || stateChanges[len(stateChanges)-1] != gobreaker.StateOpen {
		t.Errorf("expected state change to Open, got %v", stateChanges)
	}
}

func TestCircuitBreakerStaysClosedOnSuccess(t *testing.T) {
	cfg := DefaultBreakerConfig("test-success")
	cfg.MinRequests = 3
	cfg.FailureThreshold = 5

	breaker := NewCircuitBreaker(cfg)

	for i := 0; i < 10; i++ {
		breaker.Execute(func() (any, error) { return "ok", nil })
	}

	if breaker.State() != gobreaker.StateClosed {
		t.Errorf("expected StateClosed, got %v", breaker.State())
	}
}

func TestCircuitBreakerHalfOpenAfterTimeout(t *testing.T) {
	cfg := DefaultBreakerConfig("test-timeout")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 2
	cfg.Timeout = 50 * time.Millisecond

	breaker := NewCircuitBreaker(cfg)

	for i := 0; i < 3; i++ {
		breaker.Execute(func() (any, error) { return nil, errors.New("fail") })
	}

	if breaker.State() != gobreaker.StateOpen {
		t.Fatalf("expected StateOpen, got %v", breaker.State())
	}

	time.Sleep(60 * time.Millisecond)

	if breaker.State() != gobreaker.StateHalfOpen {
		t.Errorf("expected StateHalfOpen after timeout, got %v", breaker.State())
	}
}

func TestCircuitBreakerReturnsCountsCorrectly(t *testing.T) {
	cfg := DefaultBreakerConfig("test-counts")
	breaker := NewCircuitBreaker(cfg)

	breaker.Execute(func() (any, error) { return "ok", nil })
	breaker.Execute(func() (any, error) { return nil, errors.New("fail") })
	breaker.Execute(func() (any, error) { return "ok", nil })

	counts := breaker.Counts()
	if counts.Requests != 3 {
		t.Errorf("expected 3 requests, got %d", counts.Requests)
	}
	if counts.TotalSuccesses != 2 {
		t.Errorf("expected 2 successes, got %d", counts.TotalSuccesses)
	}
	if counts.TotalFailures != 1 {
		t.Errorf("expected 1 failure, got %d", counts.TotalFailures)
	}
}

func TestCircuitBreakerName(t *testing.T) {
	cfg := DefaultBreakerConfig("my-breaker")
	breaker := NewCircuitBreaker(cfg)

	if breaker.Name() != "my-breaker" {
		t.Errorf("expected name 'my-breaker', got %s", breaker.Name())
	}
}

func TestBreakerIgnoresCancellation(t *testing.T) {
	cfg := DefaultBreakerConfig("test-cancel")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 2
	breaker := NewCircuitBreaker(cfg)

	for i := 0; i < 5; i++ {
		breaker.Execute(func() (any, error) { return nil, context.Canceled })
	}

	if breaker.State() != gobreaker.StateClosed {
		t.Errorf("canceled calls must not open the breaker, got %v", breaker.State())
	}
}

func TestExecutorRetriesThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	exec := NewExecutor[string](RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)

	got, err := exec.Execute(context.Background(), func() (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	if err != nil || got != "ok" {
		t.Fatalf("Execute() = %q, %v", got, err)
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestExecutorReturnsLastError(t *testing.T) {
	errFinal := errors.New("503 overloaded")
	var calls atomic.Int32
	exec := NewExecutor[int](RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}, nil)

	_, err := exec.Execute(context.Background(), func() (int, error) {
		calls.Add(1)
		return 0, errFinal
	})
	if !errors.Is(err, errFinal) {
		t.Errorf("Execute() error = %v, want the last attempt's error", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 attempts, got %d", calls.Load())
	}
}

func TestExecutorShouldRetry(t *testing.T) {
	permanent := errors.New("invalid image")
	var calls atomic.Int32
	exec := NewExecutor[int](RetryConfig{
		MaxRetries:  3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    time.Millisecond,
		ShouldRetry: func(err error) bool { return !errors.Is(err, permanent) },
	}, nil)

	_, err := exec.Execute(context.Background(), func() (int, error) {
		calls.Add(1)
		return 0, permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("Execute() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("permanent errors must not be retried, got %d attempts", calls.Load())
	}
}

func TestExecutorWithoutRetry(t *testing.T) {
	var calls atomic.Int32
	exec := NewExecutor[int](DefaultRetryConfig, nil)

	_, _ = exec.Execute(context.Background(), func() (int, error) {
		calls.Add(1)
		return 0, errors.New("fail")
	})
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestExecutorBreakerOpens(t *testing.T) {
	cfg := DefaultBreakerConfig("exec")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 2
	exec := NewExecutor[int](DefaultRetryConfig, &cfg)

	for i := 0; i < 3; i++ {
		_, _ = exec.Execute(context.Background(), func() (int, error) { return 0, errors.New("fail") })
	}

	_, err := exec.Execute(context.Background(), func() (int, error) { return 1, nil })
	if !IsCircuitOpen(err) {
		t.Errorf("expected open circuit, got %v", err)
	}
}
