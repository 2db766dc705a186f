package tryon

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"
)

// Default retry settings.
const (
	DefaultMaxAttempts = 5
	DefaultBaseDelay   = 2 * time.Second
	DefaultMaxJitter   = time.Second
)

// RetryPolicy bounds the retry loop.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles after that.
	BaseDelay time.Duration

	// MaxJitter bounds the random offset added to each wait, [0, MaxJitter).
	MaxJitter time.Duration
}

// DefaultRetryPolicy returns 5 attempts, 2s base delay and up to 1s jitter.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxJitter:   DefaultMaxJitter,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay < 0 {
		p.BaseDelay = 0
	}
	if p.MaxJitter < 0 {
		p.MaxJitter = 0
	}
	return p
}

// Backoff returns the wait after the given failed attempt (1-based):
// BaseDelay * 2^(attempt-1) + jitter.
func (p RetryPolicy) Backoff(attempt int, jitter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return p.BaseDelay*time.Duration(int64(1)<<(attempt-1)) + jitter
}

// RetryObserver receives attempt-level events, e.g. for metrics.
type RetryObserver interface {
	ObserveAttempt(operation string, attempt int, err error)
	ObserveRetry(operation string, attempt int, delay time.Duration)
	ObserveExhausted(operation string, attempts int)
}

type nopObserver struct{}

func (nopObserver) ObserveAttempt(string, int, error)       {}
func (nopObserver) ObserveRetry(string, int, time.Duration) {}
func (nopObserver) ObserveExhausted(string, int)            {}

// Retrier executes operations under a RetryPolicy.
// A Retrier holds no per-call state and is safe for concurrent use.
type Retrier struct {
	policy   RetryPolicy
	logger   *slog.Logger
	observer RetryObserver
	sleep    func(ctx context.Context, d time.Duration) error
	jitter   func(max time.Duration) time.Duration
}

// RetrierOption configures a Retrier.
type RetrierOption func(*Retrier)

// WithRetryLogger sets the logger used for attempt and failure lines.
func WithRetryLogger(logger *slog.Logger) RetrierOption {
	return func(r *Retrier) {
		r.logger = logger
	}
}

// WithRetryObserver sets an observer for attempt events.
func WithRetryObserver(observer RetryObserver) RetrierOption {
	return func(r *Retrier) {
		if observer != nil {
			r.observer = observer
		}
	}
}

// WithSleep replaces the function used to wait between attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetrierOption {
	return func(r *Retrier) {
		r.sleep = sleep
	}
}

// WithJitter replaces the jitter source. It must return a value in [0, max).
func WithJitter(jitter func(max time.Duration) time.Duration) RetrierOption {
	return func(r *Retrier) {
		r.jitter = jitter
	}
}

// NewRetrier creates a Retrier for the given policy.
func NewRetrier(policy RetryPolicy, opts ...RetrierOption) *Retrier {
	r := &Retrier{
		policy:   policy.normalized(),
		logger:   slog.Default(),
		observer: nopObserver{},
		sleep:    sleepContext,
		jitter:   randomJitter,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Policy returns the retrier's normalized policy.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Retry runs op until it succeeds, fails with a non-retryable error, or the
// policy's attempts are used up.
//
// A non-retryable error is returned as is. When every attempt fails with a
// retryable error the result is a *RetryExhaustedError naming the operation.
func Retry[T any](ctx context.Context, r *Retrier, operation string, op func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if r == nil {
		r = NewRetrier(DefaultRetryPolicy())
	}
	maxAttempts := r.policy.MaxAttempts

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		r.logger.Debug("calling model",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
		)

		result, err := op(ctx)
		r.observer.ObserveAttempt(operation, attempt, err)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if !IsRetryable(err) {
			r.logger.Error("non-retryable failure",
				"operation", operation,
				"attempt", attempt,
				"error", err.Error(),
			)
			return zero, err
		}

		if attempt == maxAttempts {
			break
		}

		delay := r.policy.Backoff(attempt, r.jitterFor())
		r.logger.Warn("retryable failure, backing off",
			"operation", operation,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"delay_ms", delay.Milliseconds(),
			"error", err.Error(),
		)
		r.observer.ObserveRetry(operation, attempt, delay)

		if err := r.sleep(ctx, delay); err != nil {
			return zero, err
		}
	}

	r.observer.ObserveExhausted(operation, maxAttempts)
	r.logger.Error("retries exhausted",
		"operation", operation,
		"attempts", maxAttempts,
		"error", lastErr.Error(),
	)
	return zero, &RetryExhaustedError{
		Operation: operation,
		Attempts:  maxAttempts,
		Err:       lastErr,
	}
}

func (r *Retrier) jitterFor() time.Duration {
	if r.policy.MaxJitter <= 0 {
		return 0
	}
	return r.jitter(r.policy.MaxJitter)
}

func randomJitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	return time.Duration(rand.Int64N(int64(max)))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Closed set of service statuses treated as transient.
var retryableStatuses = map[string]bool{
	"UNAVAILABLE":        true,
	"RESOURCE_EXHAUSTED": true,
	"TOO_MANY_REQUESTS":  true,
}

var retryableCodes = map[int]bool{
	429: true,
	503: true,
}

// Substrings matched against error text when the structured fields do not
// already mark the error as transient.
var retryableMarkers = []string{
	"unavailable",
	"overloaded",
	"429",
	"too many requests",
	"too_many_requests",
}

// IsRetryable reports whether err signals that the service is unavailable,
// overloaded or rate limiting. Structured codes and statuses are checked
// first, then the error text.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var exhausted *RetryExhaustedError
	if errors.As(err, &exhausted) {
		return false
	}

	var rlErr *RateLimitError
	if errors.As(err, &rlErr) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) && (retryableCodes[apiErr.Code] || retryableStatuses[strings.ToUpper(apiErr.Status)]) {
		return true
	}

	// Terminal response conditions never match, whatever their text says.
	var (
		blocked    *BlockedError
		incomplete *IncompleteError
		noImage    *NoImageError
	)
	if errors.As(err, &blocked) || errors.As(err, &incomplete) || errors.As(err, &noImage) || errors.Is(err, ErrInvalidJSON) {
		return false
	}

	text := strings.ToLower(err.Error())
	for _, marker := range retryableMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}
