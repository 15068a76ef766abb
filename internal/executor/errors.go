package executor

import (
	"errors"
	"fmt"
)

// ErrFastFail is returned when a graded block fails and fast-fail is enabled.
var ErrFastFail = errors.New("test failed with fast-fail enabled")

// ErrQuit is returned by collaborators when the user asks to stop.
var ErrQuit = errors.New("quit requested")

// TestFailureError reports the counters of a test run that failed under
// fast-fail.
type TestFailureError struct {
	Document string // Document whose tests failed
	Failed   int    // Number of failed tests
	Passed   int    // Number of passed tests
}

// Error implements the error interface for TestFailureError.
func (e *TestFailureError) Error() string {
	return fmt.Sprintf("%d test failures. %d test passes.", e.Failed, e.Passed)
}

// Unwrap returns ErrFastFail so callers can match with errors.Is.
func (e *TestFailureError) Unwrap() error {
	return ErrFastFail
}

// IsTestFailure checks if the error is or wraps a TestFailureError.
func IsTestFailure(err error) bool {
	if err == nil {
		return false
	}
	var tf *TestFailureError
	return errors.As(err, &tf)
}
