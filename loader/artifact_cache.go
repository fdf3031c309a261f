package loader

import "sync"

// ArtifactCache remembers the handles of artifacts loaded from source units without a destination path, per scope,
// so subsequent loads of the same name in the same scope skip compilation. Entries of detached scopes are dropped the
// next time the cache is accessed.
type ArtifactCache struct {
	// entries maps each scope to its artifact names and their handles.
	entries map[*IsolationScope]map[string]*LoadedArtifact

	// lock guards entries.
	lock sync.Mutex
}

// NewArtifactCache returns a new, empty ArtifactCache.
func NewArtifactCache() *ArtifactCache {
	return &ArtifactCache{
		entries: make(map[*IsolationScope]map[string]*LoadedArtifact),
	}
}

// Lookup returns the handle cached for the artifact name in the scope.
func (c *ArtifactCache) Lookup(scope *IsolationScope, name string) (*LoadedArtifact, bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sweepLocked()
	loaded, ok := c.entries[scope][name]
	return loaded, ok
}

// Insert caches the handle under the artifact name in the scope, replacing any previous entry. Inserting into a
// detached scope is a no-op.
func (c *ArtifactCache) Insert(scope *IsolationScope, name string, loaded *LoadedArtifact) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sweepLocked()
	if scope.Detached() {
		return
	}
	names, ok := c.entries[scope]
	if !ok {
		names = make(map[string]*LoadedArtifact)
		c.entries[scope] = names
	}
	names[name] = loaded
}

// Forget drops every entry of the scope.
func (c *ArtifactCache) Forget(scope *IsolationScope) {
	c.lock.Lock()
	defer c.lock.Unlock()
	delete(c.entries, scope)
}

// Clear drops every entry.
func (c *ArtifactCache) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.entries = make(map[*IsolationScope]map[string]*LoadedArtifact)
}

// Len returns the total amount of cached entries across all scopes.
func (c *ArtifactCache) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.sweepLocked()
	n := 0
	for _, names := range c.entries {
		n += len(names)
	}
	return n
}

// sweepLocked drops the entries of every detached scope. The caller must hold the lock.
func (c *ArtifactCache) sweepLocked() {
	for scope := range c.entries {
		if scope.Detached() {
			delete(c.entries, scope)
		}
	}
}
