package reactor

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/loader"
	"github.com/crytic/bytereactor/logging"
	"github.com/crytic/bytereactor/logging/colors"
	"github.com/crytic/bytereactor/utils"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"golang.org/x/exp/slices"
)

// ErrReactorClosed is returned by every operation on a Reactor which has been closed.
var ErrReactorClosed = errors.New("reactor has been closed")

// Reactor compiles source units on demand, defines the produced artifacts in the isolation scope of a loading context
// and caches them so later loads of the same artifact skip compilation. A Reactor is safe for concurrent use.
type Reactor struct {
	// Events describes the event system for the Reactor.
	Events ReactorEvents

	// toolchain compiles source units. It is serialized unless it declares itself reentrant.
	toolchain platforms.Toolchain

	// extensions are passed to the toolchain on every compilation.
	extensions []platforms.Extension

	// destinationPath is the directory artifacts are persisted to for units without a destination path of their own.
	destinationPath string

	// loadingContext is the context artifacts are loaded under when none is provided per call, if any.
	loadingContext *loader.LoadingContext

	// registry holds the isolation scopes and the artifact cache.
	registry *loader.CacheRegistry

	// bridge captures the artifacts emitted by the toolchain in memory.
	bridge *compilation.OutputBridge

	// diagnostics logs the diagnostics reported by the toolchain.
	diagnostics *compilation.DiagnosticLogger

	// logger describes the Reactor's log object that can be used to log important events
	logger *logging.Logger

	// closed indicates Close was called.
	closed bool

	// lock guards extensions and closed.
	lock sync.RWMutex
}

// Extensions returns the extensions passed to the toolchain on every compilation.
func (r *Reactor) Extensions() []platforms.Extension {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return append([]platforms.Extension(nil), r.extensions...)
}

// ReportLevel returns the minimum severity of toolchain diagnostics which are logged.
func (r *Reactor) ReportLevel() compilation.ReportLevel {
	return r.diagnostics.Level()
}

// CacheRegistry returns the scopes and cache the reactor works with.
func (r *Reactor) CacheRegistry() *loader.CacheRegistry {
	return r.registry
}

// LoadArtifact compiles the request if needed and returns the handle of its artifact, loaded under the loading
// context configured on the reactor, the one carried by ctx, or the default one, in that order.
func (r *Reactor) LoadArtifact(ctx context.Context, request *CompilationRequest) (*loader.LoadedArtifact, error) {
	return r.LoadArtifactWith(ctx, request, nil)
}

// LoadArtifactWith compiles the request if needed and returns the handle of its artifact, loaded under the provided
// loading context. A nil loading context behaves like LoadArtifact.
func (r *Reactor) LoadArtifactWith(ctx context.Context, request *CompilationRequest, lc *loader.LoadingContext) (*loader.LoadedArtifact, error) {
	if request == nil {
		return nil, &types.ConfigurationError{Message: "nothing to compile"}
	}
	loaded, err := r.load(ctx, []*types.SourceUnit{request.Unit()}, lc)
	if err != nil {
		return nil, err
	}
	return loaded[request.Name()], nil
}

// LoadArtifacts compiles the batch's units which are not cached through a single toolchain invocation and returns the
// handles of every artifact they produced, keyed by artifact name, along with the cached handles of the others.
func (r *Reactor) LoadArtifacts(ctx context.Context, batch *CompilationRequestBatch) (map[string]*loader.LoadedArtifact, error) {
	return r.LoadArtifactsWith(ctx, batch, nil)
}

// LoadArtifactsWith behaves like LoadArtifacts, loading under the provided loading context. A nil loading context
// behaves like LoadArtifacts.
func (r *Reactor) LoadArtifactsWith(ctx context.Context, batch *CompilationRequestBatch, lc *loader.LoadingContext) (map[string]*loader.LoadedArtifact, error) {
	var units []*types.SourceUnit
	if batch != nil {
		units = batch.Units()
	}
	return r.load(ctx, units, lc)
}

// ClearCache drops every cached artifact. Artifacts stay defined in their scopes, so loading them again fails with a
// loader.DuplicateLoadError until their scope is cleared.
func (r *Reactor) ClearCache() error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	r.registry.Artifacts().Clear()
	r.logger.Debug("cleared the artifact cache")
	return nil
}

// ClearScope detaches the scope of the provided loading context, or of the reactor's loading context if nil, and
// forgets its cached artifacts. Returns false if no scope was registered.
func (r *Reactor) ClearScope(lc *loader.LoadingContext) (bool, error) {
	if err := r.checkOpen(); err != nil {
		return false, err
	}
	if lc == nil {
		lc = r.resolveLoadingContext(context.Background(), nil)
	}
	removed := r.registry.Scopes().Remove(lc)
	if removed {
		r.logger.Debug("cleared the scope of ", colors.Bold, lc.String(), colors.Reset)
		r.publish(r.Events.ScopeCleared.Publish(ScopeClearedEvent{Reactor: r, LoadingContext: lc}))
	}
	return removed, nil
}

// ClearAmbientScope detaches the scope of the loading context carried by ctx and forgets its cached artifacts. Returns
// false if ctx carries no loading context or no scope was registered for it.
func (r *Reactor) ClearAmbientScope(ctx context.Context) (bool, error) {
	if err := r.checkOpen(); err != nil {
		return false, err
	}
	lc, ok := loader.LoadingContextFromContext(ctx)
	if !ok {
		return false, nil
	}
	return r.ClearScope(lc)
}

// ClearAllScopes detaches every scope of the reactor's registry and forgets their cached artifacts.
func (r *Reactor) ClearAllScopes() error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	r.registry.Scopes().ClearAll()
	r.logger.Debug("cleared all scopes")
	r.publish(r.Events.ScopeCleared.Publish(ScopeClearedEvent{Reactor: r}))
	return nil
}

// Close releases the reactor's extensions, detaches every scope of its registry and drops every cached artifact, then
// closes its toolchain and extensions which hold resources. Every later operation fails with ErrReactorClosed.
func (r *Reactor) Close() error {
	r.lock.Lock()
	if r.closed {
		r.lock.Unlock()
		return ErrReactorClosed
	}
	r.closed = true
	extensions := r.extensions
	r.extensions = nil
	r.lock.Unlock()

	r.registry.Teardown()
	r.logger.Debug("cleared all scopes and cached artifacts")
	r.publish(r.Events.ScopeCleared.Publish(ScopeClearedEvent{Reactor: r}))

	var err error
	for _, extension := range extensions {
		if closer, ok := extension.(io.Closer); ok {
			err = multierr.Append(err, errors.Wrapf(closer.Close(), "could not close extension '%s'", extension.ExtensionName()))
		}
	}
	if closer, ok := r.toolchain.(io.Closer); ok {
		err = multierr.Append(err, errors.Wrapf(closer.Close(), "could not close toolchain '%s'", r.toolchain.Name()))
	}
	return err
}

// publish logs an error returned by an event handler. Handler errors never fail the operation which emitted the event.
func (r *Reactor) publish(err error) {
	if err != nil {
		r.logger.Warn("event handler failed", err)
	}
}

func (r *Reactor) checkOpen() error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	if r.closed {
		return ErrReactorClosed
	}
	return nil
}

// resolveLoadingContext returns the loading context a load is performed under: the explicit one, the reactor's, the
// one carried by ctx, then the default one.
func (r *Reactor) resolveLoadingContext(ctx context.Context, lc *loader.LoadingContext) *loader.LoadingContext {
	if lc != nil {
		return lc
	}
	if r.loadingContext != nil {
		return r.loadingContext
	}
	if ctx != nil {
		if ambient, ok := loader.LoadingContextFromContext(ctx); ok {
			return ambient
		}
	}
	return loader.DefaultLoadingContext()
}

// load runs the compile-cache-load pipeline over the provided units.
func (r *Reactor) load(ctx context.Context, units []*types.SourceUnit, lc *loader.LoadingContext) (map[string]*loader.LoadedArtifact, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, &types.ConfigurationError{Message: "nothing to compile"}
	}

	// Validate every unit and fill in the default destination path
	submitted := make(map[string]struct{}, len(units))
	for _, unit := range units {
		if err := unit.Validate(); err != nil {
			return nil, err
		}
		if _, exists := submitted[unit.Name()]; exists {
			return nil, &types.ConfigurationError{Message: fmt.Sprintf("source unit '%s' was submitted more than once", unit.Name())}
		}
		submitted[unit.Name()] = struct{}{}
		unit.SetDestinationPathIfAbsent(r.destinationPath)
	}

	lc = r.resolveLoadingContext(ctx, lc)
	scope, err := r.registry.Scopes().ScopeFor(lc)
	if err != nil {
		return nil, err
	}

	// Serve units from the cache where possible. Units with a destination path are always compiled.
	loaded := make(map[string]*loader.LoadedArtifact)
	pending := make([]*types.SourceUnit, 0, len(units))
	for _, unit := range units {
		if !unit.HasDestinationPath() {
			if cached, ok := r.registry.Artifacts().Lookup(scope, unit.Name()); ok {
				r.logger.Debug("cache hit for ", colors.Bold, unit.Name(), colors.Reset, " in ", lc.String())
				loaded[unit.Name()] = cached
				continue
			}
		}
		pending = append(pending, unit)
	}
	if len(pending) == 0 {
		r.publish(r.Events.ArtifactsLoaded.Publish(ArtifactsLoadedEvent{Reactor: r, LoadingContext: lc, Artifacts: loaded}))
		return loaded, nil
	}

	// Compile everything that was not cached in a single call
	if err = r.compile(pending); err != nil {
		return nil, err
	}

	// Load the artifacts of each unit, releasing its buffers once done
	for i, unit := range pending {
		if err = r.loadUnit(scope, unit, loaded); err != nil {
			for _, remaining := range pending[i+1:] {
				remaining.Close()
			}
			return nil, err
		}
	}

	compiled := utils.SliceSelect(pending, (*types.SourceUnit).Name)
	r.publish(r.Events.ArtifactsLoaded.Publish(ArtifactsLoadedEvent{Reactor: r, LoadingContext: lc, Artifacts: loaded, Compiled: compiled}))
	return loaded, nil
}

// compile invokes the toolchain once for all provided units and seals the artifacts it produced.
func (r *Reactor) compile(units []*types.SourceUnit) error {
	names := utils.SliceSelect(units, (*types.SourceUnit).Name)
	r.logger.Debug("compiling ", len(units), " source unit(s) with ", r.toolchain.Name(), logging.StructuredLogInfo{"units": names})

	collector := compilation.NewDiagnosticCollector(r.diagnostics)
	task := &platforms.CompilationTask{
		Units:       units,
		Outputs:     r.bridge,
		Diagnostics: collector,
		Extensions:  r.Extensions(),
	}
	start := time.Now()
	success, err := r.toolchain.Compile(task)
	event := CompilationCompletedEvent{Reactor: r, Toolchain: r.toolchain.Name(), Units: names, Duration: time.Since(start)}
	if err != nil || !success {
		for _, unit := range units {
			unit.Close()
		}
		event.Err = &types.CompilationFailedError{
			Toolchain:   r.toolchain.Name(),
			Diagnostics: collector.Errors(),
			Err:         err,
		}
		r.publish(r.Events.CompilationCompleted.Publish(event))
		return event.Err
	}
	r.publish(r.Events.CompilationCompleted.Publish(event))

	for _, unit := range units {
		unit.SealOutputs()
	}
	return nil
}

// loadUnit persists the artifacts produced from the unit if it has a destination path, defines them in the scope and
// caches them if it has none. The unit's buffers are released on return.
func (r *Reactor) loadUnit(scope *loader.IsolationScope, unit *types.SourceUnit, loaded map[string]*loader.LoadedArtifact) error {
	defer unit.Close()

	// Collect the produced artifacts in sorted name order
	names := unit.OutputNames()
	artifacts := make(map[string][]byte, len(names))
	for _, name := range names {
		output, _ := unit.Output(name)
		b, err := output.Bytes()
		if err != nil {
			return err
		}
		artifacts[name] = b
	}

	// Persist the artifacts, overwriting existing files
	destinationPath := unit.DestinationPath()
	if destinationPath != "" {
		for _, name := range names {
			filePath := types.ArtifactFilePath(destinationPath, name)
			if err := utils.WriteFile(filePath, artifacts[name]); err != nil {
				return &types.CompilationFailedError{
					Toolchain: r.toolchain.Name(),
					Err:       errors.Wrapf(err, "could not persist artifact '%s'", name),
				}
			}
		}
	}

	if len(names) == 0 {
		return &types.ArtifactNotFoundError{Requested: unit.Name()}
	}
	if !slices.Contains(names, unit.Name()) {
		return &types.ArtifactNotFoundError{Requested: unit.Name(), Available: names}
	}

	for _, name := range names {
		artifact, err := scope.Define(name, artifacts[name])
		if err != nil {
			return err
		}
		if destinationPath == "" {
			r.registry.Artifacts().Insert(scope, name, artifact)
		}
		loaded[name] = artifact
	}

	r.logger.Info(colors.Bold, "loaded ", colors.Reset, len(names), " artifact(s) from ", colors.Bold, unit.Name(), colors.Reset,
		logging.StructuredLogInfo{"artifacts": names, "scope": scope.ID().String(), "persisted": destinationPath != ""})
	return nil
}
