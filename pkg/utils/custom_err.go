package utils

import "errors"

var (
	// ErrValidation: bad or missing references, malformed amounts.
	// Rejected before any side effect; callers must fix their input.
	ErrValidation = errors.New("validation error")

	// ErrInvalidState: the operation is not legal from the order's or
	// subscription's current status. Not retryable as-is.
	ErrInvalidState = errors.New("invalid state")

	// ErrProvider: the external payment provider call failed or timed
	// out. Always recorded against a payment row, never swallowed.
	ErrProvider = errors.New("payment provider error")

	// ErrConsistency: reconciliation found provider and local state
	// irreconcilable under the known status mapping. Local state is
	// left untouched.
	ErrConsistency = errors.New("consistency error")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailAlreadyExists = errors.New("email already registered")

	ErrRecordNotFound  = errors.New("record not found")
	ErrDatabaseError   = errors.New("database error")
	ErrInvalidPage     = errors.New("invalid page parameter")
	ErrInvalidPageSize = errors.New("invalid page size parameter")
)
