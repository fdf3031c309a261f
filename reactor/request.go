package reactor

import (
	"sync"

	"github.com/crytic/bytereactor/compilation/types"
)

// RequestOption configures a source unit as it is added to a request or batch.
type RequestOption func(options *requestOptions)

// requestOptions holds the settings a RequestOption may change.
type requestOptions struct {
	destinationPath string
}

// WithDestinationPath persists the artifacts produced from the source unit under the provided directory. Artifacts of
// units with a destination path are never cached, so every load recompiles them.
func WithDestinationPath(destinationPath string) RequestOption {
	return func(options *requestOptions) {
		options.destinationPath = destinationPath
	}
}

func applyRequestOptions(opts []RequestOption) requestOptions {
	var options requestOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// CompilationRequest wraps a single source unit to compile and load. The artifact name of the request is the logical
// name of its unit.
type CompilationRequest struct {
	unit *types.SourceUnit
}

// NewCompilationRequest returns a request compiling inline source text under the provided artifact name.
func NewCompilationRequest(sourceCode string, artifactName string, opts ...RequestOption) *CompilationRequest {
	options := applyRequestOptions(opts)
	return &CompilationRequest{
		unit: types.NewSourceUnit(artifactName, sourceCode, options.destinationPath),
	}
}

// NewFileCompilationRequest returns a request compiling the provided source file under the provided artifact name.
func NewFileCompilationRequest(sourceFile string, artifactName string, opts ...RequestOption) *CompilationRequest {
	options := applyRequestOptions(opts)
	return &CompilationRequest{
		unit: types.NewFileSourceUnit(artifactName, sourceFile, options.destinationPath),
	}
}

// Name returns the name of the artifact the request loads.
func (r *CompilationRequest) Name() string {
	return r.unit.Name()
}

// Unit returns the source unit wrapped by the request.
func (r *CompilationRequest) Unit() *types.SourceUnit {
	return r.unit
}

// Close releases the artifacts buffered on the request's source unit.
func (r *CompilationRequest) Close() {
	r.unit.Close()
}

// CompilationRequestBatch is a set of source units compiled together through a single toolchain invocation. The batch
// owns its units.
type CompilationRequestBatch struct {
	units []*types.SourceUnit
	lock  sync.Mutex
}

// Len returns the amount of source units in the batch.
func (b *CompilationRequestBatch) Len() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.units)
}

// Names returns the artifact names of the batch's source units, in submission order.
func (b *CompilationRequestBatch) Names() []string {
	b.lock.Lock()
	defer b.lock.Unlock()
	names := make([]string, 0, len(b.units))
	for _, unit := range b.units {
		names = append(names, unit.Name())
	}
	return names
}

// Units returns the source units of the batch, in submission order.
func (b *CompilationRequestBatch) Units() []*types.SourceUnit {
	b.lock.Lock()
	defer b.lock.Unlock()
	return append([]*types.SourceUnit(nil), b.units...)
}

// Close releases every source unit of the batch and empties it.
func (b *CompilationRequestBatch) Close() {
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, unit := range b.units {
		unit.Close()
	}
	b.units = nil
}

// BatchBuilder accumulates source units into a CompilationRequestBatch.
type BatchBuilder struct {
	units []*types.SourceUnit
}

// NewBatchBuilder returns an empty BatchBuilder.
func NewBatchBuilder() *BatchBuilder {
	return &BatchBuilder{
		units: make([]*types.SourceUnit, 0),
	}
}

// Add adds inline source text under the provided artifact name.
func (b *BatchBuilder) Add(sourceCode string, artifactName string, opts ...RequestOption) *BatchBuilder {
	b.units = append(b.units, NewCompilationRequest(sourceCode, artifactName, opts...).unit)
	return b
}

// AddFile adds a source file under the provided artifact name.
func (b *BatchBuilder) AddFile(sourceFile string, artifactName string, opts ...RequestOption) *BatchBuilder {
	b.units = append(b.units, NewFileCompilationRequest(sourceFile, artifactName, opts...).unit)
	return b
}

// AddRequest adds the source unit of an existing request.
func (b *BatchBuilder) AddRequest(request *CompilationRequest) *BatchBuilder {
	b.units = append(b.units, request.unit)
	return b
}

// Build returns a batch of every source unit added so far.
func (b *BatchBuilder) Build() *CompilationRequestBatch {
	return &CompilationRequestBatch{
		units: append([]*types.SourceUnit(nil), b.units...),
	}
}
