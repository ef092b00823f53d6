// Package resilience wraps outbound calls with retry (failsafe-go) and a
// circuit breaker (gobreaker).
package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/sony/gobreaker"
)

type RetryConfig struct {
	// MaxRetries is the number of extra attempts. Zero disables retry.
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	JitterDelay time.Duration
	// ShouldRetry decides whether a failed attempt is retried. Nil retries every error.
	ShouldRetry func(err error) bool
}

var DefaultRetryConfig = RetryConfig{
	MaxRetries:  0,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    30 * time.Second,
	JitterDelay: 250 * time.Millisecond,
}

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold uint32
	FailureRatio     float64
	MinRequests      uint32
	OnStateChange    func(name string, from, to gobreaker.State)
	// IsSuccessful reports whether err should count as a success for the
	// breaker. Caller cancellations never trip the breaker.
	IsSuccessful func(err error) bool
}

func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         10 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		FailureRatio:     0.5,
		MinRequests:      10,
		IsSuccessful:     notCanceled,
	}
}

func notCanceled(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// IsCircuitOpen reports whether err came from a breaker that is open or
// saturated in the half-open state.
func IsCircuitOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}

type CircuitBreaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewCircuitBreaker(cfg BreakerConfig) *CircuitBreaker {
	isSuccessful := cfg.IsSuccessful
	if isSuccessful == nil {
		isSuccessful = notCanceled
	}
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			if counts.ConsecutiveFailures >= cfg.FailureThreshold {
				return true
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureRatio
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  isSuccessful,
	}
	return &CircuitBreaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

func (c *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	return c.cb.Execute(fn)
}

func (c *CircuitBreaker) State() gobreaker.State {
	return c.cb.State()
}

func (c *CircuitBreaker) Counts() gobreaker.Counts {
	return c.cb.Counts()
}

func (c *CircuitBreaker) Name() string {
	return c.cb.Name()
}

// NewRetryPolicy builds a policy that surfaces the last attempt's error
// unchanged once retries are exhausted.
func NewRetryPolicy[R any](cfg RetryConfig) retrypolicy.RetryPolicy[R] {
	builder := retrypolicy.NewBuilder[R]().
		WithMaxRetries(cfg.MaxRetries).
		ReturnLastFailure()
	if cfg.MaxDelay > cfg.BaseDelay {
		builder = builder.WithBackoff(cfg.BaseDelay, cfg.MaxDelay)
	} else if cfg.BaseDelay > 0 {
		builder = builder.WithDelay(cfg.BaseDelay)
	}
	if cfg.JitterDelay > 0 {
		builder = builder.WithJitter(cfg.JitterDelay)
	}
	if cfg.ShouldRetry != nil {
		shouldRetry := cfg.ShouldRetry
		builder = builder.HandleIf(func(_ R, err error) bool {
			return err != nil && shouldRetry(err)
		})
	}
	return builder.Build()
}

// Executor runs a function through an optional retry policy and an optional
// circuit breaker. The breaker sees one call per Execute, after retries.
type Executor[R any] struct {
	executor failsafe.Executor[R]
	breaker  *CircuitBreaker
}

func NewExecutor[R any](retryConfig RetryConfig, breakerConfig *BreakerConfig) *Executor[R] {
	e := &Executor[R]{}
	if retryConfig.MaxRetries > 0 {
		e.executor = failsafe.With(NewRetryPolicy[R](retryConfig))
	}
	if breakerConfig != nil {
		e.breaker = NewCircuitBreaker(*breakerConfig)
	}
	return e
}

func (e *Executor[R]) run(ctx context.Context, fn func() (R, error)) (R, error) {
	if e.executor == nil {
		return fn()
	}
	return e.executor.WithContext(ctx).Get(fn)
}

func (e *Executor[R]) Execute(ctx context.Context, fn func() (R, error)) (R, error) {
	if e.breaker == nil {
		return e.run(ctx, fn)
	}
	result, err := e.breaker.Execute(func() (any, error) {
		return e.run(ctx, fn)
	})
	if err != nil {
		var zero R
		return zero, err
	}
	return result.(R), nil
}

func (e *Executor[R]) CircuitBreaker() *CircuitBreaker {
	return e.breaker
}
