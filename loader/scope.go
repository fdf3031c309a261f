package loader

import (
	"bytes"
	"sync"

	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// IsolationScope is a namespace artifacts are defined into. Each artifact name may be defined at most once per scope.
// Scopes are created by a ScopeRegistry, one per LoadingContext, and fall back to their parent scope when resolving
// names they do not define themselves.
type IsolationScope struct {
	// id uniquely identifies the scope.
	id uuid.UUID

	// loadingContext is the context the scope was created for.
	loadingContext *LoadingContext

	// parent is the scope names are resolved in when this scope does not define them, if any.
	parent *IsolationScope

	// definitions maps artifact names to the artifacts defined in this scope.
	definitions map[string]*LoadedArtifact

	// detached indicates the scope was removed from its registry. Detached scopes reject definitions and lookups.
	detached bool

	// lock guards definitions and detached.
	lock sync.RWMutex
}

// NewIsolationScope returns a new, empty IsolationScope for the given LoadingContext. The parent may be nil.
func NewIsolationScope(lc *LoadingContext, parent *IsolationScope) *IsolationScope {
	return &IsolationScope{
		id:             uuid.New(),
		loadingContext: lc,
		parent:         parent,
		definitions:    make(map[string]*LoadedArtifact),
	}
}

// ID returns the unique identifier of the scope.
func (s *IsolationScope) ID() uuid.UUID {
	return s.id
}

// LoadingContext returns the LoadingContext the scope was created for.
func (s *IsolationScope) LoadingContext() *LoadingContext {
	return s.loadingContext
}

// Parent returns the parent scope, or nil if there is none.
func (s *IsolationScope) Parent() *IsolationScope {
	return s.parent
}

// Define decodes the provided artifact bytes and defines the artifact in this scope under the given name. Returns a
// MalformedArtifactError if the bytes are not a well-formed artifact of that name, a DuplicateLoadError if the name is
// already defined in this scope, or a ScopeDetachedError if the scope was detached.
func (s *IsolationScope) Define(name string, data []byte) (*LoadedArtifact, error) {
	// Decode the artifact outside the lock
	artifact, err := types.UnmarshalCompiledArtifact(data)
	if err != nil {
		return nil, &MalformedArtifactError{Artifact: name, Err: err}
	}
	if artifact.Name != name {
		return nil, &MalformedArtifactError{Artifact: name, Err: errors.Errorf("artifact declares name '%s'", artifact.Name)}
	}
	contractAbi, err := abi.JSON(bytes.NewReader(artifact.Abi))
	if err != nil {
		return nil, &MalformedArtifactError{Artifact: name, Err: errors.Wrap(err, "could not parse ABI")}
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	if s.detached {
		return nil, &ScopeDetachedError{Scope: s.id}
	}
	if _, exists := s.definitions[name]; exists {
		return nil, &DuplicateLoadError{Artifact: name, Scope: s.id}
	}

	loaded := newLoadedArtifact(s, artifact, contractAbi)
	s.definitions[name] = loaded
	return loaded, nil
}

// Lookup resolves an artifact name in this scope, then in its parent chain. Detached scopes resolve nothing.
func (s *IsolationScope) Lookup(name string) (*LoadedArtifact, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		scope.lock.RLock()
		if scope.detached {
			scope.lock.RUnlock()
			return nil, false
		}
		loaded, ok := scope.definitions[name]
		scope.lock.RUnlock()
		if ok {
			return loaded, true
		}
	}
	return nil, false
}

// Contains indicates whether the artifact name is defined in this scope itself.
func (s *IsolationScope) Contains(name string) bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	_, ok := s.definitions[name]
	return ok
}

// Names returns the sorted names of the artifacts defined in this scope itself.
func (s *IsolationScope) Names() []string {
	s.lock.RLock()
	defer s.lock.RUnlock()
	names := make([]string, 0, len(s.definitions))
	for name := range s.definitions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the amount of artifacts defined in this scope itself.
func (s *IsolationScope) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.definitions)
}

// Detached indicates whether the scope was removed from its registry.
func (s *IsolationScope) Detached() bool {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.detached
}

// detach marks the scope as detached and drops its definitions. Handles obtained earlier remain usable, but can no
// longer resolve other artifacts through the scope.
func (s *IsolationScope) detach() {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.detached = true
	s.definitions = make(map[string]*LoadedArtifact)
}
