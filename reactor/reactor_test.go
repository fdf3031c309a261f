package reactor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/loader"
	"github.com/crytic/bytereactor/logging"
	"github.com/crytic/bytereactor/reactor/config"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// fakeToolchain is a scripted platforms.Toolchain. Unless scripted otherwise, every unit yields a single artifact
// named after the unit whose runtime bytecode is the unit's source text.
type fakeToolchain struct {
	// artifacts overrides the artifacts emitted for a unit name.
	artifacts map[string][]*types.CompiledArtifact

	// diagnostics are reported on every call.
	diagnostics []types.Diagnostic

	// fail makes every call report failure.
	fail bool

	// err is returned by every call.
	err error

	// reentrant is reported through Reentrant.
	reentrant bool

	calls      atomic.Int32
	closed     atomic.Bool
	extensions []platforms.Extension
	lock       sync.Mutex
}

func (f *fakeToolchain) Name() string {
	return "fake"
}

func (f *fakeToolchain) Reentrant() bool {
	return f.reentrant
}

func (f *fakeToolchain) Close() error {
	f.closed.Store(true)
	return nil
}

func (f *fakeToolchain) Compile(task *platforms.CompilationTask) (bool, error) {
	f.calls.Add(1)
	f.lock.Lock()
	f.extensions = task.Extensions
	f.lock.Unlock()

	for _, diagnostic := range f.diagnostics {
		task.Diagnostics.Report(diagnostic)
	}
	if f.err != nil {
		return false, f.err
	}
	if f.fail {
		return false, nil
	}

	for _, unit := range task.Units {
		artifacts, scripted := f.artifacts[unit.Name()]
		if !scripted {
			source, err := unit.ReadSource()
			if err != nil {
				return false, err
			}
			artifacts = []*types.CompiledArtifact{newTestArtifact(unit.Name(), []byte(source))}
		}
		for _, artifact := range artifacts {
			b, err := artifact.MarshalBinary()
			if err != nil {
				return false, err
			}
			w, err := task.Outputs.Output(unit, artifact.Name, types.OutputKindArtifact)
			if err != nil {
				return false, err
			}
			if _, err = w.Write(b); err != nil {
				return false, err
			}
		}
	}
	return true, nil
}

// newTestArtifact returns an artifact with an empty ABI and the provided runtime bytecode.
func newTestArtifact(name string, runtime []byte, references ...types.LinkReference) *types.CompiledArtifact {
	return &types.CompiledArtifact{
		Name:                  name,
		SourceUnit:            name,
		Kind:                  types.ContractKindContract,
		Abi:                   []byte("[]"),
		InitBytecode:          append([]byte{0x60, 0x80}, runtime...),
		RuntimeBytecode:       runtime,
		RuntimeLinkReferences: references,
	}
}

// newTestReactor returns a reactor compiling with the provided toolchain, working with a private registry.
func newTestReactor(t *testing.T, toolchain platforms.Toolchain, configure ...func(builder *Builder)) *Reactor {
	t.Helper()
	builder := NewBuilder().WithToolchain(toolchain).WithCacheRegistry(loader.NewCacheRegistry())
	for _, c := range configure {
		c(builder)
	}
	r, err := builder.Build()
	require.NoError(t, err)
	t.Cleanup(func() {
		r.CacheRegistry().Teardown()
	})
	return r
}

// TestCacheHit verifies loading an artifact twice returns the same handle without compiling again.
func TestCacheHit(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)

	h1, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.EqualValues(t, "pkg.A", h1.Name())
	assert.EqualValues(t, []byte("contract A {}"), h1.RuntimeBytecode())

	h2, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Same(t, h1, h2)
	assert.EqualValues(t, 1, toolchain.calls.Load())
}

// TestCacheLifecycle walks through clearing the cache and the scopes between loads of one artifact.
func TestCacheLifecycle(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)
	ctx := context.Background()

	h1, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	again, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Same(t, h1, again)
	assert.EqualValues(t, 1, toolchain.calls.Load())

	// The scope still defines the artifact once the cache is cleared
	require.NoError(t, r.ClearCache())
	_, err = r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	var duplicateErr *loader.DuplicateLoadError
	require.True(t, errors.As(err, &duplicateErr))
	assert.EqualValues(t, "pkg.A", duplicateErr.Artifact)
	assert.EqualValues(t, 2, toolchain.calls.Load())

	// Clearing both yields a new handle
	require.NoError(t, r.ClearAllScopes())
	require.NoError(t, r.ClearCache())
	h2, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.NotEqual(t, h1.ID(), h2.ID())
	assert.EqualValues(t, 3, toolchain.calls.Load())
}

// TestClearScope verifies clearing a scope forgets its cached artifacts so they can be loaded again.
func TestClearScope(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)
	ctx := context.Background()

	h1, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)

	removed, err := r.ClearScope(nil)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.EqualValues(t, 0, r.CacheRegistry().Artifacts().Len())

	h2, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
	assert.EqualValues(t, 2, toolchain.calls.Load())

	// The old handle can no longer resolve through its detached scope
	_, err = h1.Resolve("pkg.B")
	var detachedErr *loader.ScopeDetachedError
	assert.True(t, errors.As(err, &detachedErr))

	removed, err = r.ClearScope(loader.NewLoadingContext("unused", nil))
	require.NoError(t, err)
	assert.False(t, removed)
}

// TestDestinationPath verifies artifacts of units with a destination path are persisted and never cached.
func TestDestinationPath(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)
	dir := t.TempDir()

	loaded, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A", WithDestinationPath(dir)))
	require.NoError(t, err)
	assert.EqualValues(t, 0, r.CacheRegistry().Artifacts().Len())

	b, err := os.ReadFile(filepath.Join(dir, "pkg", "A.artifact"))
	require.NoError(t, err)
	artifact, err := types.UnmarshalCompiledArtifact(b)
	require.NoError(t, err)
	assert.EqualValues(t, "pkg.A", artifact.Name)
	assert.EqualValues(t, loaded.RuntimeBytecode(), artifact.RuntimeBytecode)

	// The toolchain is invoked again, and defining into the same scope is rejected
	_, err = r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A", WithDestinationPath(dir)))
	var duplicateErr *loader.DuplicateLoadError
	assert.True(t, errors.As(err, &duplicateErr))
	assert.EqualValues(t, 2, toolchain.calls.Load())

	// Loading under another context succeeds, overwriting the persisted file
	lc := loader.NewLoadingContext("other", nil)
	_, err = r.LoadArtifactWith(context.Background(), NewCompilationRequest("contract A { uint x; }", "pkg.A", WithDestinationPath(dir)), lc)
	require.NoError(t, err)
	b, err = os.ReadFile(filepath.Join(dir, "pkg", "A.artifact"))
	require.NoError(t, err)
	artifact, err = types.UnmarshalCompiledArtifact(b)
	require.NoError(t, err)
	assert.EqualValues(t, []byte("contract A { uint x; }"), artifact.RuntimeBytecode)
	assert.EqualValues(t, 3, toolchain.calls.Load())
}

// TestCompilerDestinationPath verifies the reactor's destination path applies to units without their own.
func TestCompilerDestinationPath(t *testing.T) {
	toolchain := &fakeToolchain{}
	dir := t.TempDir()
	r := newTestReactor(t, toolchain, func(builder *Builder) {
		builder.WithCompilerDestinationPath(dir)
	})

	request := NewCompilationRequest("contract Token {}", "pkg.Token")
	_, err := r.LoadArtifact(context.Background(), request)
	require.NoError(t, err)
	assert.EqualValues(t, dir, request.Unit().DestinationPath())
	_, err = os.Stat(filepath.Join(dir, "pkg", "Token.artifact"))
	assert.NoError(t, err)
	assert.EqualValues(t, 0, r.CacheRegistry().Artifacts().Len())

	// A unit's own destination path takes precedence
	own := t.TempDir()
	_, err = r.LoadArtifact(context.Background(), NewCompilationRequest("contract Math {}", "pkg.Math", WithDestinationPath(own)))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(own, "pkg", "Math.artifact"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "pkg", "Math.artifact"))
	assert.True(t, os.IsNotExist(err))
}

// TestPersistFailure verifies a destination path which cannot be written fails compilation.
func TestPersistFailure(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	r := newTestReactor(t, &fakeToolchain{})

	_, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A", WithDestinationPath(blocker)))
	var failedErr *types.CompilationFailedError
	assert.True(t, errors.As(err, &failedErr))
	scope, ok := r.CacheRegistry().Scopes().Lookup(nil)
	require.True(t, ok)
	assert.EqualValues(t, 0, scope.Len())
}

// TestEmptyBatch verifies there must be something to compile.
func TestEmptyBatch(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)

	var configErr *types.ConfigurationError
	_, err := r.LoadArtifacts(context.Background(), NewBatchBuilder().Build())
	require.True(t, errors.As(err, &configErr))
	assert.Contains(t, err.Error(), "nothing to compile")

	_, err = r.LoadArtifacts(context.Background(), nil)
	assert.True(t, errors.As(err, &configErr))
	_, err = r.LoadArtifact(context.Background(), nil)
	assert.True(t, errors.As(err, &configErr))
	assert.EqualValues(t, 0, toolchain.calls.Load())
}

// TestInvalidUnits verifies units are validated before the toolchain is invoked.
func TestInvalidUnits(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)
	ctx := context.Background()

	_, err := r.LoadArtifact(ctx, NewFileCompilationRequest(filepath.Join(t.TempDir(), "Missing.sol"), "pkg.Missing"))
	var notFoundErr *types.SourceNotFoundError
	assert.True(t, errors.As(err, &notFoundErr))

	var configErr *types.ConfigurationError
	_, err = r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", ""))
	assert.True(t, errors.As(err, &configErr))

	_, err = r.LoadArtifacts(ctx, NewBatchBuilder().Add("contract A {}", "pkg.A").Add("contract A {}", "pkg.A").Build())
	assert.True(t, errors.As(err, &configErr))
	assert.EqualValues(t, 0, toolchain.calls.Load())
}

// TestFileRequest verifies file-backed units are compiled from the file's content.
func TestFileRequest(t *testing.T) {
	sourceFile := filepath.Join(t.TempDir(), "Token.sol")
	require.NoError(t, os.WriteFile(sourceFile, []byte("contract Token {}"), 0644))
	r := newTestReactor(t, &fakeToolchain{})

	loaded, err := r.LoadArtifact(context.Background(), NewFileCompilationRequest(sourceFile, "pkg.Token"))
	require.NoError(t, err)
	assert.EqualValues(t, []byte("contract Token {}"), loaded.RuntimeBytecode())
}

// TestNoArtifacts verifies a compilation producing nothing fails citing zero compiled artifacts.
func TestNoArtifacts(t *testing.T) {
	toolchain := &fakeToolchain{artifacts: map[string][]*types.CompiledArtifact{"pkg.Empty": {}}}
	r := newTestReactor(t, toolchain)

	_, err := r.LoadArtifact(context.Background(), NewCompilationRequest("// nothing here", "pkg.Empty"))
	var notFoundErr *types.ArtifactNotFoundError
	require.True(t, errors.As(err, &notFoundErr))
	assert.EqualValues(t, "pkg.Empty", notFoundErr.Requested)
	assert.Empty(t, notFoundErr.Available)
	assert.Contains(t, err.Error(), "0 compiled artifacts")
}

// TestPrimaryArtifactMissing verifies a unit must produce the artifact it is named after.
func TestPrimaryArtifactMissing(t *testing.T) {
	toolchain := &fakeToolchain{artifacts: map[string][]*types.CompiledArtifact{
		"pkg.Token": {newTestArtifact("pkg.Other", []byte{0x01})},
	}}
	r := newTestReactor(t, toolchain)

	_, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract Other {}", "pkg.Token"))
	var notFoundErr *types.ArtifactNotFoundError
	require.True(t, errors.As(err, &notFoundErr))
	assert.EqualValues(t, "pkg.Token", notFoundErr.Requested)
	assert.EqualValues(t, []string{"pkg.Other"}, notFoundErr.Available)
}

// TestSecondaryArtifacts verifies every artifact of a multi-artifact unit is loaded, linked and cached by name.
func TestSecondaryArtifacts(t *testing.T) {
	runtime := append([]byte{0x73}, make([]byte, 20)...)
	toolchain := &fakeToolchain{artifacts: map[string][]*types.CompiledArtifact{
		"pkg.Token": {
			newTestArtifact("pkg.Math", []byte{0x60, 0x00}),
			newTestArtifact("pkg.Token", runtime, types.LinkReference{Artifact: "pkg.Math", Start: 1, Length: 20}),
		},
	}}
	r := newTestReactor(t, toolchain)
	ctx := context.Background()

	loaded, err := r.LoadArtifacts(ctx, NewBatchBuilder().Add("library Math {} contract Token {}", "pkg.Token").Build())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	token := loaded["pkg.Token"]
	math := loaded["pkg.Math"]
	require.NotNil(t, token)
	require.NotNil(t, math)

	// The primary artifact links against the secondary one
	linked, err := token.LinkedRuntimeBytecode()
	require.NoError(t, err)
	assert.EqualValues(t, math.Address().Bytes(), linked[1:21])
	dependencies, err := token.ResolveDependencies()
	require.NoError(t, err)
	require.Len(t, dependencies, 1)
	assert.Same(t, math, dependencies[0])

	// Secondary artifacts are cached under their own name
	cached, err := r.LoadArtifact(ctx, NewCompilationRequest("library Math {}", "pkg.Math"))
	require.NoError(t, err)
	assert.Same(t, math, cached)
	assert.EqualValues(t, 1, toolchain.calls.Load())
	assert.EqualValues(t, 2, r.CacheRegistry().Artifacts().Len())
}

// TestBatchCompilesOnce verifies uncached units of a batch are compiled in a single invocation while cached ones are
// served from the cache.
func TestBatchCompilesOnce(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)
	ctx := context.Background()

	a, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)

	batch := NewBatchBuilder().
		Add("contract A {}", "pkg.A").
		Add("contract B {}", "pkg.B").
		AddRequest(NewCompilationRequest("contract C {}", "pkg.C")).
		Build()
	assert.EqualValues(t, []string{"pkg.A", "pkg.B", "pkg.C"}, batch.Names())
	loaded, err := r.LoadArtifacts(ctx, batch)
	require.NoError(t, err)
	require.Len(t, loaded, 3)
	assert.Same(t, a, loaded["pkg.A"])
	assert.EqualValues(t, 2, toolchain.calls.Load())

	// Buffers are released once loaded
	for _, unit := range batch.Units() {
		assert.Empty(t, unit.OutputNames())
	}
	batch.Close()
	assert.EqualValues(t, 0, batch.Len())
}

// TestCompilationFailure verifies failed compilations surface their error diagnostics and leave no trace.
func TestCompilationFailure(t *testing.T) {
	toolchain := &fakeToolchain{
		fail: true,
		diagnostics: []types.Diagnostic{
			{Severity: types.SeverityWarning, Message: "unused variable", Start: -1, End: -1},
			{Severity: types.SeverityError, Message: "expected ';'", Source: "pkg/A.sol", Start: 10, End: 11},
		},
	}
	r := newTestReactor(t, toolchain)

	_, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {", "pkg.A"))
	var failedErr *types.CompilationFailedError
	require.True(t, errors.As(err, &failedErr))
	assert.EqualValues(t, "fake", failedErr.Toolchain)
	require.Len(t, failedErr.Diagnostics, 1)
	assert.EqualValues(t, "expected ';'", failedErr.Diagnostics[0].Message)

	assert.EqualValues(t, 0, r.CacheRegistry().Artifacts().Len())
	scope, ok := r.CacheRegistry().Scopes().Lookup(nil)
	require.True(t, ok)
	assert.EqualValues(t, 0, scope.Len())

	// Toolchain errors are wrapped
	sentinel := errors.New("solc crashed")
	r = newTestReactor(t, &fakeToolchain{err: sentinel})
	_, err = r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.True(t, errors.As(err, &failedErr))
	assert.ErrorIs(t, err, sentinel)
}

// TestDiagnosticsReportLevel verifies diagnostics are logged according to the report level.
func TestDiagnosticsReportLevel(t *testing.T) {
	logger := logging.NewLogger(zerolog.InfoLevel)
	var buf bytes.Buffer
	logger.AddWriter(&buf, logging.UNSTRUCTURED, false)
	toolchain := &fakeToolchain{diagnostics: []types.Diagnostic{
		{Severity: types.SeverityInfo, Message: "compiler is experimental", Start: -1, End: -1},
		{Severity: types.SeverityWarning, Message: "unused variable", Start: -1, End: -1},
	}}

	r := newTestReactor(t, toolchain, func(builder *Builder) {
		builder.WithLogger(logger)
	})
	assert.EqualValues(t, compilation.ReportLevelWarn, r.ReportLevel())
	_, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unused variable")
	assert.NotContains(t, buf.String(), "compiler is experimental")

	buf.Reset()
	r = newTestReactor(t, toolchain, func(builder *Builder) {
		builder.WithLogger(logger).WithReportLevel(compilation.ReportLevelAll)
	})
	_, err = r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "compiler is experimental")
}

// TestLoadingContextPrecedence verifies explicit contexts take precedence over the configured one, which takes
// precedence over the ambient one.
func TestLoadingContextPrecedence(t *testing.T) {
	registry := loader.NewCacheRegistry()
	defer registry.Teardown()
	ambient := loader.NewLoadingContext("ambient", nil)
	explicit := loader.NewLoadingContext("explicit", nil)
	configured := loader.NewLoadingContext("configured", nil)
	ctx := loader.WithLoadingContext(context.Background(), ambient)

	r, err := NewBuilder().WithToolchain(&fakeToolchain{}).WithCacheRegistry(registry).Build()
	require.NoError(t, err)

	loaded, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Same(t, ambient, loaded.Scope().LoadingContext())

	loaded, err = r.LoadArtifactWith(ctx, NewCompilationRequest("contract A {}", "pkg.A"), explicit)
	require.NoError(t, err)
	assert.Same(t, explicit, loaded.Scope().LoadingContext())

	loaded, err = r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Same(t, loader.DefaultLoadingContext(), loaded.Scope().LoadingContext())

	configuredReactor, err := NewBuilder().WithToolchain(&fakeToolchain{}).WithCacheRegistry(registry).WithLoadingContext(configured).Build()
	require.NoError(t, err)
	configuredLoaded, err := configuredReactor.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Same(t, configured, configuredLoaded.Scope().LoadingContext())

	loaded, err = configuredReactor.LoadArtifactWith(ctx, NewCompilationRequest("contract A {}", "pkg.B"), explicit)
	require.NoError(t, err)
	assert.Same(t, explicit, loaded.Scope().LoadingContext())

	// Reactors sharing a registry share cached artifacts
	shared, err := r.LoadArtifactWith(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"), configured)
	require.NoError(t, err)
	assert.Same(t, configuredLoaded, shared)
}

// TestClearAmbientScope verifies the scope of the ambient loading context can be cleared.
func TestClearAmbientScope(t *testing.T) {
	r := newTestReactor(t, &fakeToolchain{})
	lc := loader.NewLoadingContext("ambient", nil)
	ctx := loader.WithLoadingContext(context.Background(), lc)

	removed, err := r.ClearAmbientScope(context.Background())
	require.NoError(t, err)
	assert.False(t, removed)

	h1, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	removed, err = r.ClearAmbientScope(ctx)
	require.NoError(t, err)
	assert.True(t, removed)

	h2, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.NotSame(t, h1, h2)
}

// TestReleasedLoadingContext verifies released loading contexts cannot be loaded into and their artifacts are
// forgotten.
func TestReleasedLoadingContext(t *testing.T) {
	r := newTestReactor(t, &fakeToolchain{})
	lc := loader.NewLoadingContext("plugin", nil)

	_, err := r.LoadArtifactWith(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"), lc)
	require.NoError(t, err)
	assert.EqualValues(t, 1, r.CacheRegistry().Artifacts().Len())

	require.True(t, lc.Release())
	_, err = r.LoadArtifactWith(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"), lc)
	assert.ErrorIs(t, err, loader.ErrLoadingContextReleased)
	assert.EqualValues(t, 0, r.CacheRegistry().Artifacts().Len())
}

// TestParentLoadingContext verifies artifacts loaded under a parent context resolve from a child context's scope.
func TestParentLoadingContext(t *testing.T) {
	runtime := append([]byte{0x73}, make([]byte, 20)...)
	toolchain := &fakeToolchain{artifacts: map[string][]*types.CompiledArtifact{
		"pkg.Token": {newTestArtifact("pkg.Token", runtime, types.LinkReference{Artifact: "lib.Math", Start: 1, Length: 20})},
	}}
	r := newTestReactor(t, toolchain)
	parent := loader.NewLoadingContext("parent", nil)
	child := loader.NewLoadingContext("child", parent)

	math, err := r.LoadArtifactWith(context.Background(), NewCompilationRequest("library Math {}", "lib.Math"), parent)
	require.NoError(t, err)
	token, err := r.LoadArtifactWith(context.Background(), NewCompilationRequest("contract Token {}", "pkg.Token"), child)
	require.NoError(t, err)

	linked, err := token.LinkedRuntimeBytecode()
	require.NoError(t, err)
	assert.EqualValues(t, math.Address().Bytes(), linked[1:21])
}

// TestExtensions verifies configured extensions reach the toolchain.
func TestExtensions(t *testing.T) {
	toolchain := &fakeToolchain{}
	optimizer := &platforms.OptimizerExtension{Enabled: true, Runs: 200}
	evmVersion := &platforms.EVMVersionExtension{Version: "paris"}
	r := newTestReactor(t, toolchain, func(builder *Builder) {
		builder.WithExtension(optimizer).WithExtensions(evmVersion)
	})

	_, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.EqualValues(t, []platforms.Extension{optimizer, evmVersion}, toolchain.extensions)
	assert.Len(t, r.Extensions(), 2)

	_, err = NewBuilder().WithExtension(nil).Build()
	var configErr *types.ConfigurationError
	assert.True(t, errors.As(err, &configErr))
	_, err = NewBuilder().WithReportLevel(compilation.ReportLevel(9)).Build()
	assert.True(t, errors.As(err, &configErr))
}

// closingExtension records whether it was closed.
type closingExtension struct {
	closed bool
	err    error
}

func (c *closingExtension) ExtensionName() string {
	return "closing"
}

func (c *closingExtension) Close() error {
	c.closed = true
	return c.err
}

// TestClose verifies closing is terminal, releases the extensions, empties the registry and closes the toolchain.
func TestClose(t *testing.T) {
	extension := &closingExtension{}
	failing := &closingExtension{err: errors.New("still busy")}
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain, func(builder *Builder) {
		builder.WithExtensions(extension, failing)
	})
	ctx := context.Background()

	var cleared []ScopeClearedEvent
	r.Events.ScopeCleared.Subscribe(func(event ScopeClearedEvent) error {
		cleared = append(cleared, event)
		return nil
	})

	loaded, err := r.LoadArtifacts(ctx, NewBatchBuilder().Add("contract A {}", "pkg.A").Add("contract B {}", "pkg.B").Build())
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	require.EqualValues(t, 1, r.CacheRegistry().Scopes().Len())
	require.EqualValues(t, 2, r.CacheRegistry().Artifacts().Len())

	err = r.Close()
	assert.ErrorContains(t, err, "still busy")
	assert.True(t, extension.closed)
	assert.True(t, failing.closed)
	assert.Empty(t, r.Extensions())
	assert.True(t, toolchain.closed.Load())
	assert.EqualValues(t, 0, r.CacheRegistry().Scopes().Len())
	assert.EqualValues(t, 0, r.CacheRegistry().Artifacts().Len())
	require.Len(t, cleared, 1)
	assert.Nil(t, cleared[0].LoadingContext)

	assert.ErrorIs(t, r.Close(), ErrReactorClosed)
	_, err = r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	assert.ErrorIs(t, err, ErrReactorClosed)
	_, err = r.LoadArtifacts(ctx, NewBatchBuilder().Add("contract A {}", "pkg.A").Build())
	assert.ErrorIs(t, err, ErrReactorClosed)
	assert.ErrorIs(t, r.ClearCache(), ErrReactorClosed)
	assert.ErrorIs(t, r.ClearAllScopes(), ErrReactorClosed)
	_, err = r.ClearScope(nil)
	assert.ErrorIs(t, err, ErrReactorClosed)
	_, err = r.ClearAmbientScope(ctx)
	assert.ErrorIs(t, err, ErrReactorClosed)
}

// TestCloseReentrantToolchain verifies a toolchain which is used directly is closed as well.
func TestCloseReentrantToolchain(t *testing.T) {
	toolchain := &fakeToolchain{reentrant: true}
	r := newTestReactor(t, toolchain)
	require.NoError(t, r.Close())
	assert.True(t, toolchain.closed.Load())
}

// TestToolchainSerialization verifies toolchains which are not reentrant are serialized.
func TestToolchainSerialization(t *testing.T) {
	serialized := newTestReactor(t, &fakeToolchain{})
	_, unwrapped := serialized.toolchain.(*fakeToolchain)
	assert.False(t, unwrapped)
	assert.True(t, platforms.IsReentrant(serialized.toolchain))

	reentrant := &fakeToolchain{reentrant: true}
	r := newTestReactor(t, reentrant)
	assert.Same(t, reentrant, r.toolchain)
}

// TestConcurrentLoads verifies concurrent loads of one artifact into one scope define it exactly once.
func TestConcurrentLoads(t *testing.T) {
	toolchain := &fakeToolchain{reentrant: true}
	r := newTestReactor(t, toolchain)

	var g errgroup.Group
	handles := make([]*loader.LoadedArtifact, 16)
	errs := make([]error, len(handles))
	for i := range handles {
		i := i
		g.Go(func() error {
			handles[i], errs[i] = r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var winner *loader.LoadedArtifact
	for i, err := range errs {
		if err != nil {
			var duplicateErr *loader.DuplicateLoadError
			assert.True(t, errors.As(err, &duplicateErr))
			continue
		}
		if winner == nil {
			winner = handles[i]
		}
		assert.Same(t, winner, handles[i])
	}
	require.NotNil(t, winner)
	cached, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.Same(t, winner, cached)
}

// TestNewReactorFromConfig verifies reactors can be created from a project config.
func TestNewReactorFromConfig(t *testing.T) {
	projectConfig, err := config.GetDefaultProjectConfig("solc")
	require.NoError(t, err)
	projectConfig.Reactor.ReportLevel = compilation.ReportLevelError
	projectConfig.Reactor.LoadingContext = "plugins"
	projectConfig.Reactor.Extensions.Optimizer = &platforms.OptimizerExtension{Enabled: true, Runs: 1}

	r, err := NewReactorFromConfig(projectConfig)
	require.NoError(t, err)
	assert.EqualValues(t, compilation.ReportLevelError, r.ReportLevel())
	assert.EqualValues(t, "solc", r.toolchain.Name())
	require.NotNil(t, r.loadingContext)
	assert.EqualValues(t, "plugins", r.loadingContext.Name())
	assert.Len(t, r.Extensions(), 1)
	assert.Same(t, loader.DefaultCacheRegistry(), r.CacheRegistry())

	_, err = NewReactorFromConfig(nil)
	assert.Error(t, err)
	projectConfig.Compilation = nil
	_, err = NewReactorFromConfig(projectConfig)
	assert.Error(t, err)
}

// TestCodeHash verifies handles expose the hash of their runtime bytecode.
func TestCodeHash(t *testing.T) {
	r := newTestReactor(t, &fakeToolchain{})
	loaded, err := r.LoadArtifact(context.Background(), NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	assert.EqualValues(t, crypto.Keccak256Hash([]byte("contract A {}")), loaded.CodeHash())
}

// TestReactorEvents verifies compilation, load and clear events are published, and that failing handlers do not fail
// the operation which emitted them.
func TestReactorEvents(t *testing.T) {
	toolchain := &fakeToolchain{}
	r := newTestReactor(t, toolchain)
	ctx := context.Background()

	var compilations []CompilationCompletedEvent
	var loads []ArtifactsLoadedEvent
	var cleared []ScopeClearedEvent
	r.Events.CompilationCompleted.Subscribe(func(event CompilationCompletedEvent) error {
		compilations = append(compilations, event)
		return nil
	})
	r.Events.ArtifactsLoaded.Subscribe(func(event ArtifactsLoadedEvent) error {
		loads = append(loads, event)
		return errors.New("handler failed")
	})
	r.Events.ScopeCleared.Subscribe(func(event ScopeClearedEvent) error {
		cleared = append(cleared, event)
		return nil
	})

	// A compiled load, then a cached one
	h, err := r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)
	_, err = r.LoadArtifact(ctx, NewCompilationRequest("contract A {}", "pkg.A"))
	require.NoError(t, err)

	require.Len(t, compilations, 1)
	assert.Same(t, r, compilations[0].Reactor)
	assert.EqualValues(t, "fake", compilations[0].Toolchain)
	assert.EqualValues(t, []string{"pkg.A"}, compilations[0].Units)
	assert.Nil(t, compilations[0].Err)

	require.Len(t, loads, 2)
	assert.EqualValues(t, []string{"pkg.A"}, loads[0].Compiled)
	assert.Empty(t, loads[1].Compiled)
	assert.Same(t, h, loads[1].Artifacts["pkg.A"])
	assert.Same(t, loader.DefaultLoadingContext(), loads[1].LoadingContext)

	// Failed compilations carry the returned error
	toolchain.fail = true
	_, err = r.LoadArtifact(ctx, NewCompilationRequest("contract B {", "pkg.B"))
	require.Error(t, err)
	require.Len(t, compilations, 2)
	require.NotNil(t, compilations[1].Err)
	assert.ErrorIs(t, err, compilations[1].Err)
	assert.Len(t, loads, 2)

	removed, err := r.ClearScope(nil)
	require.NoError(t, err)
	require.True(t, removed)
	require.NoError(t, r.ClearAllScopes())
	require.Len(t, cleared, 2)
	assert.Same(t, loader.DefaultLoadingContext(), cleared[0].LoadingContext)
	assert.Nil(t, cleared[1].LoadingContext)
}
