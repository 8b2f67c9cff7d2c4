package store

import (
	"errors"
	"fmt"
)

var (
	// ErrStoreCreation indicates the destination file could not be (re)created.
	ErrStoreCreation = errors.New("store creation failed")

	// ErrNotFound indicates a missing database file or record.
	ErrNotFound = errors.New("not found")
)

// CreationError describes why Create failed.
type CreationError struct {
	Path string
	Step string // "remove", "open", "pragmas", "schema", "metadata"
	Err  error
}

// Error implements the error interface.
func (e *CreationError) Error() string {
	return fmt.Sprintf("create store %s: %s: %v", e.Path, e.Step, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *CreationError) Unwrap() error {
	return e.Err
}

// Is reports ErrStoreCreation.
func (e *CreationError) Is(target error) bool {
	return target == ErrStoreCreation
}
