package search

import "fmt"

// ValidationError rejects malformed caller input. Empty result sets are
// values, never errors.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotReadyError is returned when an operation is attempted before the
// engine's backing stores are open.
type NotReadyError struct {
	Component string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("search engine not ready: %s unavailable", e.Component)
}

// PersistenceError wraps a storage-layer failure.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
