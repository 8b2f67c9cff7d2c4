package builder

import (
	"errors"
	"fmt"
)

// StepError reports the step at which a build failed.
type StepError struct {
	// Step is the state the build was trying to reach.
	Step State
	Err  error
}

// Error implements the error interface.
func (e *StepError) Error() string {
	return fmt.Sprintf("build failed reaching %s: %v", e.Step, e.Err)
}

// Unwrap implements errors.Unwrap.
func (e *StepError) Unwrap() error {
	return e.Err
}

// FailedStep returns the step recorded in err, if any.
func FailedStep(err error) (State, bool) {
	var se *StepError
	if errors.As(err, &se) {
		return se.Step, true
	}
	return StateFailed, false
}
