// internal/domain/errors.go
package domain

import "errors"

var (
	// ErrInvalidQuantity is returned when a non-positive quantity is supplied
	// to a receive, consume, or posting operation. Nothing is mutated.
	ErrInvalidQuantity = errors.New("quantity must be positive")

	// ErrNotFound is returned when a referenced batch, ingredient, or
	// restaurant does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConcurrencyConflict is returned when a transaction could not be
	// completed due to lock contention. The attempt left no partial state
	// and is safe to retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict, retry")

	// ErrComputationSkipped marks a recommendation that could not be computed
	// from its input features. It is logged and excluded from the run, never
	// propagated to the caller.
	ErrComputationSkipped = errors.New("computation skipped")
)
