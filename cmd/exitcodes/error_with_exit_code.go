package exitcodes

import "errors"

// ErrorWithExitCode wraps an error with the exit code the process should terminate with if the error reaches the
// top-level.
type ErrorWithExitCode struct {
	err      error
	exitCode int
}

// NewErrorWithExitCode creates a new ErrorWithExitCode with the provided inner error and exit code.
func NewErrorWithExitCode(err error, exitCode int) *ErrorWithExitCode {
	return &ErrorWithExitCode{
		err:      err,
		exitCode: exitCode,
	}
}

// Error returns the message of the inner error.
func (e *ErrorWithExitCode) Error() string {
	if e.err == nil {
		return ""
	}
	return e.err.Error()
}

// Unwrap returns the inner error.
func (e *ErrorWithExitCode) Unwrap() error {
	return e.err
}

// ExitCode returns the exit code associated with the error.
func (e *ErrorWithExitCode) ExitCode() int {
	return e.exitCode
}

// GetInnerErrorAndExitCode returns the error the application should report and the code it should exit with: 0 for a
// nil error, the wrapped code if an ErrorWithExitCode is found in the chain, otherwise ExitCodeGeneralError.
func GetInnerErrorAndExitCode(err error) (error, int) {
	if err == nil {
		return nil, ExitCodeSuccess
	}
	var exitErr *ErrorWithExitCode
	if errors.As(err, &exitErr) {
		return exitErr.err, exitErr.exitCode
	}
	return err, ExitCodeGeneralError
}
