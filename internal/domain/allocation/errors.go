package allocation

import "errors"

var (
	// ErrPoolNotFound is returned when a seat pool does not exist
	ErrPoolNotFound = errors.New("seat pool not found")

	// ErrNoSeatAvailable is returned when consumption would exceed capacity.
	// This is an expected outcome callers branch on, not a system fault.
	ErrNoSeatAvailable = errors.New("no seat available")

	// ErrInvalidCapacity is returned when an adjustment would shrink capacity
	// below current consumption
	ErrInvalidCapacity = errors.New("invalid capacity")

	// ErrPoolExpired is returned when consuming from an expired pool
	ErrPoolExpired = errors.New("seat pool expired")

	// ErrScopeResolutionFailed is returned when the scope resolver port fails
	ErrScopeResolutionFailed = errors.New("scope resolution failed")

	// ErrEnrollmentGrantFailed is returned when the enrollment port fails to grant access
	ErrEnrollmentGrantFailed = errors.New("enrollment grant failed")

	// ErrTransientPortFailure is returned on external port timeouts; retryable
	ErrTransientPortFailure = errors.New("transient port failure")

	// ErrEventNotFound is returned when a ledger entry is not found
	ErrEventNotFound = errors.New("seat event not found")
)
