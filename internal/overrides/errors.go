package overrides

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates an unknown override id.
	ErrNotFound = errors.New("override not found")
	// ErrValidation indicates a record that violates the per-record invariants.
	ErrValidation = errors.New("override validation failed")
	// ErrConflict indicates an overlapping active rule for the same client and target.
	ErrConflict = errors.New("override conflict")
)

// ConflictError carries the id of the record whose validity window overlaps,
// so administrative UIs can show the offending rule.
type ConflictError struct {
	ConflictingID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("override conflict: overlapping active rule %s", e.ConflictingID)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
