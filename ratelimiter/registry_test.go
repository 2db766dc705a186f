package ratelimiter

import (
	"testing"
)

// MockRateLimiter is a mock implementation of Limiter for testing.
type MockRateLimiter struct {
	Limiter // Embed interface to satisfy it, we only implement what we need
	name    string
}

func TestRegistry(t *testing.T) {
	registry := NewRegistry()

	// Get on empty registry
	if _, ok := registry.Get("non-existent"); ok {
		t.Error("expected no limiter for non-existent model")
	}

	// Set and Get
	mockLimiter := &MockRateLimiter{name: "first"}
	modelName := "test-model"
	registry.Set(modelName, mockLimiter)

	retrieved, ok := registry.Get(modelName)
	if !ok {
		t.Fatal("expected limiter for registered model")
	}
	if retrieved != mockLimiter {
		t.Error("retrieved limiter does not match set limiter")
	}

	// Overwrite
	mockLimiter2 := &MockRateLimiter{name: "second"}
	registry.Set(modelName, mockLimiter2)
	retrieved2, ok := registry.Get(modelName)
	if !ok {
		t.Fatal("expected limiter after overwrite")
	}
	if retrieved2 != mockLimiter2 {
		t.Error("retrieved limiter does not match overwritten limiter")
	}
}
