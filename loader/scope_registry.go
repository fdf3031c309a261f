package loader

import (
	"sync"
)

// ScopeRegistry maps LoadingContexts to the IsolationScope artifacts loaded under them are defined in. Scopes are
// created on first use. Scopes of LoadingContexts which have been released are detached and dropped the next time the
// registry is accessed.
type ScopeRegistry struct {
	// scopes maps each registered LoadingContext to its scope.
	scopes map[*LoadingContext]*IsolationScope

	// onDetach are the hooks invoked for every scope the registry detaches.
	onDetach []func(scope *IsolationScope)

	// lock guards scopes and onDetach.
	lock sync.Mutex
}

// NewScopeRegistry returns a new, empty ScopeRegistry.
func NewScopeRegistry() *ScopeRegistry {
	return &ScopeRegistry{
		scopes: make(map[*LoadingContext]*IsolationScope),
	}
}

// OnDetach registers a hook which is invoked, outside the registry lock, for every scope the registry detaches.
func (r *ScopeRegistry) OnDetach(hook func(scope *IsolationScope)) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.onDetach = append(r.onDetach, hook)
}

// ScopeFor returns the scope registered for the LoadingContext, creating it on first use. A nil LoadingContext
// resolves to DefaultLoadingContext. The scope of a new context falls back to the scope of its parent context, if the
// parent is registered. Returns ErrLoadingContextReleased if the context was released.
func (r *ScopeRegistry) ScopeFor(lc *LoadingContext) (*IsolationScope, error) {
	if lc == nil {
		lc = DefaultLoadingContext()
	}

	r.lock.Lock()
	detached := r.sweepLocked()
	var scope *IsolationScope
	var err error
	if lc.Released() {
		err = ErrLoadingContextReleased
	} else if existing, ok := r.scopes[lc]; ok {
		scope = existing
	} else {
		var parent *IsolationScope
		if lc.Parent() != nil {
			parent = r.scopes[lc.Parent()]
		}
		scope = NewIsolationScope(lc, parent)
		r.scopes[lc] = scope
	}
	hooks := r.onDetach
	r.lock.Unlock()

	r.notify(hooks, detached)
	return scope, err
}

// Lookup returns the scope registered for the LoadingContext without creating one.
func (r *ScopeRegistry) Lookup(lc *LoadingContext) (*IsolationScope, bool) {
	if lc == nil {
		lc = DefaultLoadingContext()
	}

	r.lock.Lock()
	detached := r.sweepLocked()
	scope, ok := r.scopes[lc]
	hooks := r.onDetach
	r.lock.Unlock()

	r.notify(hooks, detached)
	return scope, ok
}

// Remove detaches and drops the scope registered for the LoadingContext. Returns false if none was registered.
func (r *ScopeRegistry) Remove(lc *LoadingContext) bool {
	if lc == nil {
		lc = DefaultLoadingContext()
	}

	r.lock.Lock()
	detached := r.sweepLocked()
	scope, ok := r.scopes[lc]
	if ok {
		delete(r.scopes, lc)
		detached = append(detached, scope)
	}
	hooks := r.onDetach
	r.lock.Unlock()

	r.notify(hooks, detached)
	return ok
}

// ClearAll detaches and drops every registered scope.
func (r *ScopeRegistry) ClearAll() {
	r.lock.Lock()
	detached := make([]*IsolationScope, 0, len(r.scopes))
	for _, scope := range r.scopes {
		detached = append(detached, scope)
	}
	r.scopes = make(map[*LoadingContext]*IsolationScope)
	hooks := r.onDetach
	r.lock.Unlock()

	r.notify(hooks, detached)
}

// Len returns the amount of registered scopes.
func (r *ScopeRegistry) Len() int {
	r.lock.Lock()
	detached := r.sweepLocked()
	n := len(r.scopes)
	hooks := r.onDetach
	r.lock.Unlock()

	r.notify(hooks, detached)
	return n
}

// sweepLocked drops the scopes of every released LoadingContext and returns them. The caller must hold the lock.
func (r *ScopeRegistry) sweepLocked() []*IsolationScope {
	var detached []*IsolationScope
	for lc, scope := range r.scopes {
		if lc.Released() {
			delete(r.scopes, lc)
			detached = append(detached, scope)
		}
	}
	return detached
}

// notify detaches every provided scope and invokes the hooks for each of them.
func (r *ScopeRegistry) notify(hooks []func(scope *IsolationScope), detached []*IsolationScope) {
	for _, scope := range detached {
		scope.detach()
		for _, hook := range hooks {
			hook(scope)
		}
	}
}
