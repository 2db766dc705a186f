package ratelimiter

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRateLimiter_TryAcquire(t *testing.T) {
	rl := New(60, 2)

	if !rl.TryAcquire() {
		t.Error("first request should be allowed")
	}
	if !rl.TryAcquire() {
		t.Error("second request should be allowed within burst")
	}
	if rl.TryAcquire() {
		t.Error("third request should exceed burst")
	}
}

func TestRateLimiter_Unlimited(t *testing.T) {
	rl := New(0, 0)
	for i := 0; i < 100; i++ {
		if !rl.TryAcquire() {
			t.Fatalf("request %d refused by unlimited limiter", i)
		}
	}
	if d := rl.TimeUntilAvailable(); d != 0 {
		t.Errorf("expected no wait, got %v", d)
	}
}

func TestRateLimiter_TimeUntilAvailable(t *testing.T) {
	rl := New(60, 1) // 1 request per second

	if d := rl.TimeUntilAvailable(); d != 0 {
		t.Errorf("expected no wait on fresh limiter, got %v", d)
	}

	rl.TryAcquire()

	wait := rl.TimeUntilAvailable()
	if wait < 900*time.Millisecond || wait > 1100*time.Millisecond {
		t.Errorf("expected wait around 1s, got %v", wait)
	}

	// Reading the wait must not consume the slot.
	again := rl.TimeUntilAvailable()
	if again > wait {
		t.Errorf("TimeUntilAvailable consumed capacity: %v then %v", wait, again)
	}
}

func TestRateLimiter_Wait(t *testing.T) {
	ctx := context.Background()

	t.Run("immediate when capacity is available", func(t *testing.T) {
		rl := New(60, 1)
		if err := rl.Wait(ctx, time.Millisecond); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("refuses waits beyond maxWait", func(t *testing.T) {
		rl := New(1, 1) // one request per minute
		rl.TryAcquire()

		err := rl.Wait(ctx, 10*time.Millisecond)
		if !errors.Is(err, ErrWaitTooLong) {
			t.Errorf("expected ErrWaitTooLong, got %v", err)
		}
	})

	t.Run("honours context cancellation", func(t *testing.T) {
		rl := New(1, 1)
		rl.TryAcquire()

		cctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
		defer cancel()

		err := rl.Wait(cctx, 0)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
	})

	t.Run("waits for the next slot", func(t *testing.T) {
		rl := New(6000, 1) // one request per 10ms
		rl.TryAcquire()

		start := time.Now()
		if err := rl.Wait(ctx, time.Second); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if elapsed := time.Since(start); elapsed < 5*time.Millisecond {
			t.Errorf("expected to wait for the next slot, waited %v", elapsed)
		}
	})
}
