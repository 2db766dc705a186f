package ratelimiter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrWaitTooLong is returned by Wait when the next slot is further away than maxWait.
var ErrWaitTooLong = errors.New("rate limit wait exceeds max wait")

// RateLimiter is an in-memory requests-per-minute limiter.
type RateLimiter struct {
	limiter *rate.Limiter
}

// Ensure RateLimiter implements Limiter.
var _ Limiter = (*RateLimiter)(nil)

// New creates a limiter allowing requestsPerMinute with the given burst.
// A burst of 0 allows a full minute's worth of requests at once.
func New(requestsPerMinute, burst int) *RateLimiter {
	if burst <= 0 {
		burst = requestsPerMinute
	}
	limit := rate.Inf
	if requestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(requestsPerMinute))
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, max(burst, 1)),
	}
}

// TryAcquire implements Limiter.
func (rl *RateLimiter) TryAcquire() bool {
	return rl.limiter.Allow()
}

// TimeUntilAvailable implements Limiter.
func (rl *RateLimiter) TimeUntilAvailable() time.Duration {
	r := rl.limiter.Reserve()
	defer r.Cancel()
	if !r.OK() {
		return 0
	}
	return r.Delay()
}

// Wait implements Limiter.
func (rl *RateLimiter) Wait(ctx context.Context, maxWait time.Duration) error {
	r := rl.limiter.Reserve()
	if !r.OK() {
		return fmt.Errorf("rate limiter cannot grant a request")
	}

	delay := r.Delay()
	if delay == 0 {
		return nil
	}
	if maxWait > 0 && delay > maxWait {
		r.Cancel()
		return fmt.Errorf("%w: %v > %v", ErrWaitTooLong, delay, maxWait)
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
