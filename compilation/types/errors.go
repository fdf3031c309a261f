package types

import (
	"fmt"
	"strings"
)

// ConfigurationError indicates a compilation was requested in a way that cannot be acted upon, such as an empty set of
// source units or a source unit without a name.
type ConfigurationError struct {
	// Message describes what was wrong with the request.
	Message string
}

// Error returns the error message string, implementing the `error` interface.
func (e *ConfigurationError) Error() string {
	return "invalid compilation request: " + e.Message
}

// SourceNotFoundError indicates a file-backed SourceUnit referenced a file which could not be located.
type SourceNotFoundError struct {
	// Name is the logical name of the SourceUnit.
	Name string

	// Path is the file path the SourceUnit referenced.
	Path string

	// Err is the underlying filesystem error, if any.
	Err error
}

// Error returns the error message string, implementing the `error` interface.
func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("unable to locate source file '%s' for '%s'", e.Path, e.Name)
}

// Unwrap returns the underlying filesystem error.
func (e *SourceNotFoundError) Unwrap() error {
	return e.Err
}

// CompilationFailedError indicates the external toolchain reported failure, or could not be invoked at all. The cache
// and isolation scopes are never modified when this error is returned.
type CompilationFailedError struct {
	// Toolchain describes the toolchain which was invoked, if known.
	Toolchain string

	// Diagnostics holds the error diagnostics reported by the toolchain during the failed call.
	Diagnostics []Diagnostic

	// Err is the underlying error which caused the failure, if any.
	Err error
}

// Error returns the error message string, implementing the `error` interface.
func (e *CompilationFailedError) Error() string {
	var sb strings.Builder
	sb.WriteString("compilation failed")
	if e.Toolchain != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", e.Toolchain))
	}
	if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	if len(e.Diagnostics) > 0 {
		sb.WriteString(fmt.Sprintf(", %d error diagnostic(s) reported, first: %s", len(e.Diagnostics), e.Diagnostics[0].String()))
	} else if e.Err == nil {
		sb.WriteString(", check diagnostic logs")
	}
	return sb.String()
}

// Unwrap returns the underlying error.
func (e *CompilationFailedError) Unwrap() error {
	return e.Err
}

// ArtifactNotFoundError indicates a requested artifact was not among the artifacts a compilation produced, or could not
// be resolved within an isolation scope.
type ArtifactNotFoundError struct {
	// Requested is the artifact name which was requested.
	Requested string

	// Available lists the artifact names which were available instead.
	Available []string
}

// Error returns the error message string, implementing the `error` interface.
func (e *ArtifactNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("cannot find artifact '%s': no artifacts found after compilation (0 compiled artifacts)", e.Requested)
	}
	return fmt.Sprintf("cannot find artifact '%s' in the compiled output (%d compiled artifacts: %s)",
		e.Requested, len(e.Available), strings.Join(e.Available, ", "))
}

// UnsupportedOutputKindError indicates a toolchain requested an output of a kind other than a binary artifact. This is
// a contract violation by the toolchain and should never be observed in correct usage.
type UnsupportedOutputKindError struct {
	// Artifact is the name the toolchain attempted to emit.
	Artifact string

	// Kind is the unsupported kind which was requested.
	Kind OutputKind
}

// Error returns the error message string, implementing the `error` interface.
func (e *UnsupportedOutputKindError) Error() string {
	return fmt.Sprintf("expected an output of kind '%s' for '%s' but got '%s'", OutputKindArtifact, e.Artifact, e.Kind)
}

// ArtifactClosedError indicates an OutputArtifact was accessed after its buffers were released.
type ArtifactClosedError struct {
	// Artifact is the name of the closed artifact.
	Artifact string
}

// Error returns the error message string, implementing the `error` interface.
func (e *ArtifactClosedError) Error() string {
	return fmt.Sprintf("output artifact '%s' has been closed", e.Artifact)
}
