package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mhpenta/tryon"
)

// requestError carries an explicit status for failures found by the handler
// itself, such as malformed bodies.
type requestError struct {
	status int
	err    error
}

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(format string, args ...any) error {
	return &requestError{status: http.StatusBadRequest, err: fmt.Errorf(format, args...)}
}

var validationErrors = []error{
	tryon.ErrEmptyPrompt,
	tryon.ErrEmptyImageData,
	tryon.ErrInvalidMIMEType,
	tryon.ErrImageTooLarge,
	tryon.ErrEmptyDescription,
	tryon.ErrInvalidDataURI,
	tryon.ErrNoModelImage,
	tryon.ErrImageNotFound,
}

// statusFor maps an operation error onto an HTTP status.
func statusFor(err error) int {
	var reqErr *requestError
	if errors.As(err, &reqErr) {
		return reqErr.status
	}
	if errors.Is(err, ErrSessionNotFound) {
		return http.StatusNotFound
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}

	var (
		exhausted  *tryon.RetryExhaustedError
		blocked    *tryon.BlockedError
		incomplete *tryon.IncompleteError
		noImage    *tryon.NoImageError
	)
	switch {
	case errors.As(err, &exhausted):
		return http.StatusServiceUnavailable
	case errors.As(err, &blocked), errors.As(err, &incomplete), errors.As(err, &noImage), errors.Is(err, tryon.ErrInvalidJSON):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case tryon.IsRateLimitError(err):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads a single JSON object, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return &requestError{status: http.StatusRequestEntityTooLarge, err: fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)}
		}
		return badRequest("invalid JSON body: %v", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return badRequest("request body must contain a single JSON object")
	}
	return nil
}
