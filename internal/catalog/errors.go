package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrServiceUnavailable indicates a remote call failed or timed out.
	ErrServiceUnavailable = errors.New("catalog service unavailable")

	// ErrEmptyResult indicates a catalog fetch returned no rows.
	ErrEmptyResult = errors.New("catalog returned no rows")

	// ErrMalformedEntry indicates a row lacks a required field.
	ErrMalformedEntry = errors.New("malformed catalog entry")
)

// ServiceError describes a failed request to a remote catalog service.
type ServiceError struct {
	Service    string // "vizier", "gaia"
	StatusCode int    // 0 for transport errors
	Attempts   int
	Err        error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: status %d after %d attempt(s)", e.Service, e.StatusCode, e.Attempts)
	}
	return fmt.Sprintf("%s: %v after %d attempt(s)", e.Service, e.Err, e.Attempts)
}

// Unwrap implements errors.Unwrap.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Is reports ErrServiceUnavailable for every service error.
func (e *ServiceError) Is(target error) bool {
	return target == ErrServiceUnavailable
}

// MalformedEntryError describes a source row that could not be used.
type MalformedEntryError struct {
	Line   int    // 1-based line in the response body
	Field  string // column that was missing or unparsable
	Reason string
}

// Error implements the error interface.
func (e *MalformedEntryError) Error() string {
	return fmt.Sprintf("line %d: field %s: %s", e.Line, e.Field, e.Reason)
}

// Is implements errors.Is support.
func (e *MalformedEntryError) Is(target error) bool {
	return target == ErrMalformedEntry
}

// IsServiceUnavailable reports whether err is a remote service failure.
func IsServiceUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

// IsEmptyResult reports whether err is an empty fetch.
func IsEmptyResult(err error) bool {
	return errors.Is(err, ErrEmptyResult)
}
