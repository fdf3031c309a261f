package loader

// CacheRegistry bundles the ScopeRegistry and ArtifactCache a reactor works with. Detaching a scope forgets its cache
// entries.
type CacheRegistry struct {
	scopes    *ScopeRegistry
	artifacts *ArtifactCache
}

// defaultCacheRegistry is the process-wide registry shared by reactors which are not given their own.
var defaultCacheRegistry = NewCacheRegistry()

// NewCacheRegistry returns a new CacheRegistry with an empty ScopeRegistry and ArtifactCache.
func NewCacheRegistry() *CacheRegistry {
	registry := &CacheRegistry{
		scopes:    NewScopeRegistry(),
		artifacts: NewArtifactCache(),
	}
	registry.scopes.OnDetach(registry.artifacts.Forget)
	return registry
}

// DefaultCacheRegistry returns the process-wide CacheRegistry.
func DefaultCacheRegistry() *CacheRegistry {
	return defaultCacheRegistry
}

// Scopes returns the scope registry.
func (r *CacheRegistry) Scopes() *ScopeRegistry {
	return r.scopes
}

// Artifacts returns the artifact cache.
func (r *CacheRegistry) Artifacts() *ArtifactCache {
	return r.artifacts
}

// Teardown detaches every scope and drops every cached artifact.
func (r *CacheRegistry) Teardown() {
	r.scopes.ClearAll()
	r.artifacts.Clear()
}
