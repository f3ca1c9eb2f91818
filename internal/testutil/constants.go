// Package testutil provides shared constants and utilities for testing across the client packages.
// These constants eliminate repeated string literals in test files and ensure consistency.
package testutil

// Credential header values used by refresh and retry tests.
const (
	// TestOldBearer is the Authorization value a request starts with.
	TestOldBearer = "Bearer OLD"

	// TestNewBearer is the Authorization value produced by a successful refresh.
	TestNewBearer = "Bearer NEW"
)

// Common error messages.
const (
	// TestError is a generic error message for test error scenarios.
	TestError = "test error"

	// TestConnectionRefused is the common network error message for connection failures.
	TestConnectionRefused = "connection refused"
)
