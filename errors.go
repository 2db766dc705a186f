package tryon

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidJSON is returned when the model's structured output is not a
	// JSON object carrying both recommendation fields.
	ErrInvalidJSON = errors.New("the model returned an invalid JSON response")

	// ErrInvalidDataURI is returned when a data URI cannot be split into a
	// MIME type and a base64 payload.
	ErrInvalidDataURI = errors.New("invalid data URI")

	// ErrNoModels is returned when an operation has no model configured.
	ErrNoModels = errors.New("no models configured")

	// ErrStorageNotConfigured is returned when storage operations are attempted
	// without a configured storage backend.
	ErrStorageNotConfigured = errors.New("storage not configured")
)

// APIError is a failure reported by the generative model service.
// Providers translate their SDK errors into this type so that retry
// classification can work on structured fields.
type APIError struct {
	Code    int    // HTTP status code, e.g. 503
	Status  string // canonical status, e.g. "UNAVAILABLE"
	Message string
	Model   string
	Err     error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("model %s: error %d", e.Model, e.Code)
	if e.Status != "" {
		msg += " " + e.Status
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// BlockedError is returned when the request was refused by content policy.
type BlockedError struct {
	Reason  string
	Message string
}

func (e *BlockedError) Error() string {
	msg := fmt.Sprintf("the request was blocked. Reason: %s.", e.Reason)
	if e.Message != "" {
		msg += " " + e.Message
	}
	return msg
}

// IncompleteError is returned when generation stopped for a reason other
// than a normal stop.
type IncompleteError struct {
	FinishReason string
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("image generation stopped unexpectedly. Reason: %s. This is usually related to safety settings.", e.FinishReason)
}

// NoImageError is returned when the model answered without an image.
type NoImageError struct {
	Text string
}

func (e *NoImageError) Error() string {
	if e.Text != "" {
		return fmt.Sprintf("the AI model did not return an image. The model responded with text: %q", e.Text)
	}
	return "the AI model did not return an image. This can happen because of safety filters or an overly complex request. Please try a different image."
}

// RetryExhaustedError is returned when every attempt of an operation failed
// with a retryable error.
type RetryExhaustedError struct {
	Operation string
	Attempts  int
	Err       error // last attempt's error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts. The generative model service is overloaded. Please try again in a few minutes, and check your API quota if the problem persists.",
		e.Operation, e.Attempts)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// RateLimitError is returned when the client-side limiter refuses a call.
type RateLimitError struct {
	RetryAfter time.Duration
	Model      string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: retry after %v", e.Model, e.RetryAfter)
}

// IsRateLimitError checks if an error is a RateLimitError.
func IsRateLimitError(err error) bool {
	var rlErr *RateLimitError
	return errors.As(err, &rlErr)
}
