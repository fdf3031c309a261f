package platforms

import (
	"io"

	"github.com/crytic/bytereactor/compilation/types"
)

// OutputProvider hands out the sinks a toolchain writes its binary artifacts into.
type OutputProvider interface {
	// Output returns a writer for the named artifact produced from the given unit. Only types.OutputKindArtifact is
	// expected to be supported.
	Output(unit *types.SourceUnit, artifactName string, kind types.OutputKind) (io.Writer, error)
}

// DiagnosticListener receives the diagnostics a toolchain reports while compiling.
type DiagnosticListener interface {
	Report(diagnostic types.Diagnostic)
}

// Extension is an opaque toolchain extension, passed through to the toolchain on every compilation. Toolchains
// ignore extensions they do not understand.
type Extension interface {
	ExtensionName() string
}

// CompilationTask describes a single transactional toolchain invocation.
type CompilationTask struct {
	// Units are the source units to compile, in submission order.
	Units []*types.SourceUnit

	// Outputs provides the sinks artifacts are written into.
	Outputs OutputProvider

	// Diagnostics receives every diagnostic reported during the call.
	Diagnostics DiagnosticListener

	// Extensions are the configured toolchain extensions.
	Extensions []Extension
}

// Toolchain describes the interface all compilers driven by the reactor must implement.
type Toolchain interface {
	// Name returns a short human-readable name of the toolchain.
	Name() string

	// Compile compiles every unit of the task in a single call, writing artifacts through the task's OutputProvider.
	// It returns false if compilation failed with reported diagnostics, or an error if the toolchain could not be run.
	Compile(task *CompilationTask) (bool, error)
}

// ReentrantToolchain is implemented by toolchains which declare whether concurrent Compile calls are safe.
type ReentrantToolchain interface {
	Toolchain
	Reentrant() bool
}

// PlatformConfig describes the interface all compilation platform configs must implement.
type PlatformConfig interface {
	Toolchain
	Platform() string
}
