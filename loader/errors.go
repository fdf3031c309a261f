package loader

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrLoadingContextReleased is returned when a scope is requested for a LoadingContext whose references were all
// released.
var ErrLoadingContextReleased = errors.New("loading context has been released")

// DuplicateLoadError indicates an artifact name was defined into an IsolationScope which already holds a definition
// under that name.
type DuplicateLoadError struct {
	// Artifact is the artifact name which was defined twice.
	Artifact string

	// Scope identifies the scope the definition was attempted in.
	Scope uuid.UUID
}

// Error returns the error message string, implementing the `error` interface.
func (e *DuplicateLoadError) Error() string {
	return fmt.Sprintf("artifact '%s' is already loaded in scope %s", e.Artifact, e.Scope)
}

// ScopeDetachedError indicates an IsolationScope was used after it was removed from its registry.
type ScopeDetachedError struct {
	// Scope identifies the detached scope.
	Scope uuid.UUID
}

// Error returns the error message string, implementing the `error` interface.
func (e *ScopeDetachedError) Error() string {
	return fmt.Sprintf("isolation scope %s has been detached", e.Scope)
}

// MalformedArtifactError indicates bytes defined into a scope did not decode to the named artifact.
type MalformedArtifactError struct {
	// Artifact is the artifact name the bytes were defined under.
	Artifact string

	// Err is the underlying decoding error.
	Err error
}

// Error returns the error message string, implementing the `error` interface.
func (e *MalformedArtifactError) Error() string {
	return fmt.Sprintf("malformed artifact '%s': %v", e.Artifact, e.Err)
}

// Unwrap returns the underlying decoding error.
func (e *MalformedArtifactError) Unwrap() error {
	return e.Err
}
