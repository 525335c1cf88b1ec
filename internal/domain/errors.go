/**
 * @description
 * The service-wide error taxonomy. The API layer maps these onto HTTP
 * statuses; everything not covered here surfaces as a generic internal error
 * with no detail leaked.
 *
 * Classes:
 * - validation errors        -> 400
 * - not found                -> 404 (includes rows hidden by soft delete)
 * - duplicate conflicts      -> 409 (email taken, main account exists,
 *                                    reference reused with different details)
 * - balance update failure   -> 422 (storage constraint during adjustment)
 * - rate limited             -> 429
 * - collision exhaustion     -> 500 (identifier retry budget spent)
 */
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers absent rows and rows filtered out by an inactive
	// owning customer.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate covers identifier reuse with different semantics: email
	// already registered, main account already present, payment reference
	// reused with mismatched details.
	ErrDuplicate = errors.New("duplicate resource")

	// ErrBalanceUpdate is a storage-engine constraint violation while
	// adjusting a balance. Distinct from not-found by design.
	ErrBalanceUpdate = errors.New("balance update failed")

	// ErrCollisionExhausted means identifier generation collided on every
	// retry attempt. Fatal and surfaced, never swallowed.
	ErrCollisionExhausted = errors.New("identifier collision retry budget exhausted")

	// ErrRateLimited signals the per-provider deposit rate limit tripped.
	ErrRateLimited = errors.New("rate limited")
)

// ValidationError rejects malformed input before any state is touched.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// NewValidationError builds a field-level validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError is a duplicate with a caller-facing explanation, e.g. a
// payment reference reused with a different amount. The message must state
// precisely why the request was rejected so the integrating provider can
// decide whether it is looking at a retry or a bug.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

// Is makes ConflictError match ErrDuplicate in errors.Is chains.
func (e *ConflictError) Is(target error) bool { return target == ErrDuplicate }

// NewConflictError builds a duplicate-conflict error with detail.
func NewConflictError(format string, args ...any) *ConflictError {
	return &ConflictError{Message: fmt.Sprintf(format, args...)}
}
