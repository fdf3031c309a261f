package loader

import (
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/medusa-geth/accounts/abi"
	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// LoadedArtifact is the handle of an artifact defined in an IsolationScope. Handles are immutable and safe for
// concurrent use.
type LoadedArtifact struct {
	// id uniquely identifies the handle. Defining the same artifact again yields a handle with a different id.
	id uuid.UUID

	// scope is the scope the artifact was defined in.
	scope *IsolationScope

	// artifact is the decoded artifact.
	artifact *types.CompiledArtifact

	// abi is the parsed application binary interface of the artifact.
	abi abi.ABI

	// codeHash is the keccak256 hash of the runtime bytecode.
	codeHash common.Hash

	// address is the deterministic address the artifact is linked at within its scope.
	address common.Address
}

// newLoadedArtifact returns a handle for an artifact defined in the provided scope.
func newLoadedArtifact(scope *IsolationScope, artifact *types.CompiledArtifact, contractAbi abi.ABI) *LoadedArtifact {
	scopeID := scope.ID()
	return &LoadedArtifact{
		id:       uuid.New(),
		scope:    scope,
		artifact: artifact,
		abi:      contractAbi,
		codeHash: crypto.Keccak256Hash(artifact.RuntimeBytecode),
		address:  common.BytesToAddress(crypto.Keccak256(scopeID[:], []byte(artifact.Name))),
	}
}

// ID returns the unique identifier of the handle.
func (l *LoadedArtifact) ID() uuid.UUID {
	return l.id
}

// Name returns the fully qualified artifact name.
func (l *LoadedArtifact) Name() string {
	return l.artifact.Name
}

// SourceUnit returns the logical name of the unit the artifact was compiled from.
func (l *LoadedArtifact) SourceUnit() string {
	return l.artifact.SourceUnit
}

// Kind returns the kind of contract the artifact describes.
func (l *LoadedArtifact) Kind() types.ContractKind {
	return l.artifact.Kind
}

// Scope returns the scope the artifact was defined in.
func (l *LoadedArtifact) Scope() *IsolationScope {
	return l.scope
}

// ABI returns the parsed application binary interface of the artifact.
func (l *LoadedArtifact) ABI() *abi.ABI {
	return &l.abi
}

// InitBytecode returns a copy of the unlinked init bytecode.
func (l *LoadedArtifact) InitBytecode() []byte {
	return append([]byte(nil), l.artifact.InitBytecode...)
}

// RuntimeBytecode returns a copy of the unlinked runtime bytecode.
func (l *LoadedArtifact) RuntimeBytecode() []byte {
	return append([]byte(nil), l.artifact.RuntimeBytecode...)
}

// CodeHash returns the keccak256 hash of the unlinked runtime bytecode.
func (l *LoadedArtifact) CodeHash() common.Hash {
	return l.codeHash
}

// Address returns the deterministic address the artifact is linked at within its scope.
func (l *LoadedArtifact) Address() common.Address {
	return l.address
}

// Dependencies returns the sorted names of the artifacts this artifact links against.
func (l *LoadedArtifact) Dependencies() []string {
	return l.artifact.Dependencies()
}

// Resolve resolves another artifact through the scope this artifact was defined in, then the scope's parent chain.
// Returns a ScopeDetachedError if the scope was detached, or a types.ArtifactNotFoundError if the name cannot be
// resolved.
func (l *LoadedArtifact) Resolve(name string) (*LoadedArtifact, error) {
	if l.scope.Detached() {
		return nil, &ScopeDetachedError{Scope: l.scope.ID()}
	}
	if name == l.Name() {
		return l, nil
	}
	resolved, ok := l.scope.Lookup(name)
	if !ok {
		return nil, &types.ArtifactNotFoundError{Requested: name, Available: l.scope.Names()}
	}
	return resolved, nil
}

// ResolveDependencies resolves every artifact this artifact transitively links against, returned in the order they
// would need to be deployed in.
func (l *LoadedArtifact) ResolveDependencies() ([]*LoadedArtifact, error) {
	resolved := map[string]*LoadedArtifact{l.Name(): l}
	graph := make(map[string][]string)
	pending := []*LoadedArtifact{l}
	for len(pending) > 0 {
		current := pending[0]
		pending = pending[1:]
		dependencies := current.Dependencies()
		graph[current.Name()] = dependencies
		for _, dependency := range dependencies {
			if _, ok := resolved[dependency]; ok {
				continue
			}
			loaded, err := l.Resolve(dependency)
			if err != nil {
				return nil, err
			}
			resolved[dependency] = loaded
			pending = append(pending, loaded)
		}
	}

	order, err := types.GetDeploymentOrder(graph)
	if err != nil {
		return nil, errors.Wrapf(err, "could not order the dependencies of '%s'", l.Name())
	}
	result := make([]*LoadedArtifact, 0, len(order)-1)
	for _, name := range order {
		if name != l.Name() {
			result = append(result, resolved[name])
		}
	}
	return result, nil
}

// LinkedInitBytecode returns the init bytecode with every link region filled with the address of the referenced
// artifact, as resolved through the scope.
func (l *LoadedArtifact) LinkedInitBytecode() ([]byte, error) {
	return l.link(l.artifact.InitBytecode, l.artifact.InitLinkReferences)
}

// LinkedRuntimeBytecode returns the runtime bytecode with every link region filled with the address of the referenced
// artifact, as resolved through the scope.
func (l *LoadedArtifact) LinkedRuntimeBytecode() ([]byte, error) {
	return l.link(l.artifact.RuntimeBytecode, l.artifact.RuntimeLinkReferences)
}

func (l *LoadedArtifact) link(bytecode []byte, references []types.LinkReference) ([]byte, error) {
	addresses := make(map[string]common.Address, len(references))
	for _, ref := range references {
		if _, ok := addresses[ref.Artifact]; ok {
			continue
		}
		dependency, err := l.Resolve(ref.Artifact)
		if err != nil {
			return nil, err
		}
		addresses[ref.Artifact] = dependency.Address()
	}
	linked, err := types.LinkBytecode(bytecode, references, addresses)
	if err != nil {
		return nil, errors.Wrapf(err, "could not link '%s'", l.Name())
	}
	return linked, nil
}
