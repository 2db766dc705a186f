// Package ratelimiter paces requests to each model on the client side.
package ratelimiter

import (
	"context"
	"time"
)

// Limiter defines the interface for rate limiters.
// Implementations can be local (in-memory) or distributed (Redis, etc.).
type Limiter interface {
	// TryAcquire takes one request slot if available, without waiting.
	TryAcquire() bool

	// TimeUntilAvailable returns how long until a slot would be available (read-only).
	TimeUntilAvailable() time.Duration

	// Wait blocks until a slot is available, then takes it.
	// Returns error if the context is cancelled or maxWait would be exceeded.
	// A zero maxWait means no limit.
	Wait(ctx context.Context, maxWait time.Duration) error
}
