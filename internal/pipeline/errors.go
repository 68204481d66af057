package pipeline

import (
	"errors"
	"fmt"
)

// Process exit codes, one per failure category
const (
	ExitOK           = 0
	ExitInvalidInput = 1
	ExitClone        = 2
	ExitReachability = 3
	ExitDeploy       = 4
	ExitProxy        = 5
	ExitValidation   = 6
)

// ExitCleanup is the code of any failure in the cleanup sequence
const ExitCleanup = ExitInvalidInput

func (e *StepError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %v", e.Step, e.Err)
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *StepError) Unwrap() error { return e.Err }

// ExitCodeOf maps an error returned by a run to the process exit code
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	var se *StepError
	if errors.As(err, &se) {
		return se.Code
	}
	return ExitInvalidInput
}
