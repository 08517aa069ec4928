// Package shared provides common utilities used across the codebase.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import "errors"

// Sentinel errors forming the application error taxonomy. Store and
// service layers wrap these; the HTTP layer maps them to status codes.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a duplicate unique value (role name,
	// API-key provider race).
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput indicates a missing or malformed required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates a failed permission check.
	ErrUnauthorized = errors.New("unauthorized")
)
