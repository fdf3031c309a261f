package reactor

import (
	"time"

	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/events"
	"github.com/crytic/bytereactor/loader"
)

// ReactorEvents defines event emitters for a Reactor.
type ReactorEvents struct {
	// CompilationCompleted emits events after every toolchain invocation, whether it succeeded or not.
	CompilationCompleted events.EventEmitter[CompilationCompletedEvent]

	// ArtifactsLoaded emits events after a load call returned its handles, whether they were compiled or cached.
	ArtifactsLoaded events.EventEmitter[ArtifactsLoadedEvent]

	// ScopeCleared emits events when the reactor detached a scope.
	ScopeCleared events.EventEmitter[ScopeClearedEvent]
}

// CompilationCompletedEvent describes an event where the toolchain of a Reactor was invoked for a set of source units.
type CompilationCompletedEvent struct {
	// Reactor represents the instance which compiled the units.
	Reactor *Reactor

	// Toolchain is the name of the toolchain which was invoked.
	Toolchain string

	// Units are the names of the source units submitted to the toolchain.
	Units []string

	// Duration is how long the toolchain invocation took.
	Duration time.Duration

	// Err is nil if compilation succeeded, otherwise it is the *types.CompilationFailedError returned to the caller.
	Err *types.CompilationFailedError
}

// ArtifactsLoadedEvent describes an event where a Reactor returned loaded artifacts to a caller.
type ArtifactsLoadedEvent struct {
	// Reactor represents the instance which loaded the artifacts.
	Reactor *Reactor

	// LoadingContext is the context the artifacts were loaded under.
	LoadingContext *loader.LoadingContext

	// Artifacts are the returned handles, keyed by artifact name.
	Artifacts map[string]*loader.LoadedArtifact

	// Compiled are the names of the source units which had to be compiled. Units served from the cache are omitted.
	Compiled []string
}

// ScopeClearedEvent describes an event where a Reactor detached the scope of a loading context.
type ScopeClearedEvent struct {
	// Reactor represents the instance which cleared the scope.
	Reactor *Reactor

	// LoadingContext is the context whose scope was detached, or nil if every scope was detached.
	LoadingContext *loader.LoadingContext
}
