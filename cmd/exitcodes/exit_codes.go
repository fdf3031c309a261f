package exitcodes

const (
	// ================================
	// Platform-universal exit codes
	// ================================

	// ExitCodeSuccess indicates no errors or failures had occurred.
	ExitCodeSuccess = 0

	// ExitCodeGeneralError indicates some type of general error occurred.
	ExitCodeGeneralError = 1

	// ================================
	// Application-specific exit codes
	// ================================
	// Note: Despite not being standardized, exit codes 2-5 are often used for common use cases, so we avoid them.

	// ExitCodeHandledError indicates that there was an error which was already logged, so it should not be printed
	// again. Note that an error with error code ExitCodeGeneralError and ExitCodeHandledError are mutually exclusive
	ExitCodeHandledError = 6

	// ExitCodeCompilationFailed indicates the toolchain reported a failed compilation.
	ExitCodeCompilationFailed = 7
)
