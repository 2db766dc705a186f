package tryon

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/mhpenta/tryon/ratelimiter"
)

// Option configures the Stylist.
type Option func(*Stylist)

// WithLogger sets a structured logger for the stylist and its retrier.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Stylist) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithModels replaces the model order. Empty lists keep their defaults.
func WithModels(models ModelSet) Option {
	return func(s *Stylist) {
		if len(models.ModelImage) > 0 {
			s.models.ModelImage = models.ModelImage
		}
		if len(models.Recommendation) > 0 {
			s.models.Recommendation = models.Recommendation
		}
		if len(models.OutfitImage) > 0 {
			s.models.OutfitImage = models.OutfitImage
		}
	}
}

// WithRetryPolicy sets the retry policy.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *Stylist) {
		s.policy = policy
	}
}

// WithRetryOptions passes extra options to the stylist's Retrier, e.g. WithSleep in tests.
func WithRetryOptions(opts ...RetrierOption) Option {
	return func(s *Stylist) {
		s.retryOpt = append(s.retryOpt, opts...)
	}
}

// WithRetrier uses a prebuilt Retrier; WithRetryPolicy and WithRetryOptions are then ignored.
func WithRetrier(r *Retrier) Option {
	return func(s *Stylist) {
		s.retrier = r
	}
}

// WithObserver sets an observer for retry and fallback events.
func WithObserver(observer Observer) Option {
	return func(s *Stylist) {
		if observer != nil {
			s.observer = observer
		}
	}
}

// WithRateLimiter sets the limiter for one model, replacing the default one.
func WithRateLimiter(model Model, limiter ratelimiter.Limiter) Option {
	return func(s *Stylist) {
		s.limiters.Set(string(model), limiter)
	}
}

// WithWaitOnRateLimit makes calls wait for the model's limiter, up to maxWait
// (zero means no limit), instead of failing with a *RateLimitError.
func WithWaitOnRateLimit(maxWait time.Duration) Option {
	return func(s *Stylist) {
		s.waitOnRateLimit = true
		s.maxRateLimitWait = maxWait
	}
}

// WithTracer sets the OpenTelemetry tracer used for operation spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(s *Stylist) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}
