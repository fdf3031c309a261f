package loader

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
)

// LoadingContext is the caller-created identity isolation scopes are keyed by. Artifacts loaded under the same
// LoadingContext share one IsolationScope. A LoadingContext is reference counted: it starts with a single reference,
// and once every reference has been released its scope becomes eligible for reclamation.
type LoadingContext struct {
	// id uniquely identifies the context.
	id uuid.UUID

	// name is a human-readable name used in logs.
	name string

	// parent is the context whose scope artifacts of this context fall back to when resolving, if any.
	parent *LoadingContext

	// refs is the amount of outstanding references.
	refs atomic.Int64

	// persistent contexts ignore Release and are never reclaimed.
	persistent bool
}

// defaultLoadingContext is the process-wide fallback context.
var defaultLoadingContext = newPersistentLoadingContext("default")

// NewLoadingContext returns a new LoadingContext holding a single reference. The parent may be nil.
func NewLoadingContext(name string, parent *LoadingContext) *LoadingContext {
	lc := &LoadingContext{
		id:     uuid.New(),
		name:   name,
		parent: parent,
	}
	lc.refs.Store(1)
	return lc
}

func newPersistentLoadingContext(name string) *LoadingContext {
	lc := NewLoadingContext(name, nil)
	lc.persistent = true
	return lc
}

// DefaultLoadingContext returns the process-wide LoadingContext used when no other context is provided. It is never
// released.
func DefaultLoadingContext() *LoadingContext {
	return defaultLoadingContext
}

// ID returns the unique identifier of the context.
func (lc *LoadingContext) ID() uuid.UUID {
	return lc.id
}

// Name returns the human-readable name of the context.
func (lc *LoadingContext) Name() string {
	return lc.name
}

// Parent returns the parent context, or nil if there is none.
func (lc *LoadingContext) Parent() *LoadingContext {
	return lc.parent
}

// String returns the name and identifier of the context.
func (lc *LoadingContext) String() string {
	if lc.name == "" {
		return lc.id.String()
	}
	return lc.name + "(" + lc.id.String() + ")"
}

// Retain adds a reference to the context. A context which was already released stays released. Returns the context
// so it can be chained.
func (lc *LoadingContext) Retain() *LoadingContext {
	for {
		refs := lc.refs.Load()
		if refs <= 0 || lc.refs.CompareAndSwap(refs, refs+1) {
			return lc
		}
	}
}

// Release drops a reference to the context. Returns true if this released the last reference, after which the scope
// associated with the context is reclaimed on the next registry access. Releasing a persistent context is a no-op.
func (lc *LoadingContext) Release() bool {
	if lc.persistent {
		return false
	}
	for {
		refs := lc.refs.Load()
		if refs <= 0 {
			return false
		}
		if lc.refs.CompareAndSwap(refs, refs-1) {
			return refs == 1
		}
	}
}

// Released indicates whether every reference to the context has been released.
func (lc *LoadingContext) Released() bool {
	return !lc.persistent && lc.refs.Load() <= 0
}

// loadingContextKey is the context.Context key the ambient LoadingContext is stored under.
type loadingContextKey struct{}

// WithLoadingContext returns a copy of ctx carrying lc as its ambient LoadingContext.
func WithLoadingContext(ctx context.Context, lc *LoadingContext) context.Context {
	return context.WithValue(ctx, loadingContextKey{}, lc)
}

// LoadingContextFromContext returns the ambient LoadingContext carried by ctx, if any.
func LoadingContextFromContext(ctx context.Context) (*LoadingContext, bool) {
	if ctx == nil {
		return nil, false
	}
	lc, ok := ctx.Value(loadingContextKey{}).(*LoadingContext)
	return lc, ok && lc != nil
}
