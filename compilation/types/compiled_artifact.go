package types

import (
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding, so the same artifact always produces
// identical bytes on disk.
var encMode cbor.EncMode

// decMode is the CBOR decoder used for artifacts. Unknown fields are ignored so older readers accept newer artifacts.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("compiled artifact CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("compiled artifact CBOR decoder initialization failed: " + err.Error())
	}
}

// LinkReference describes a region of bytecode which must be filled with the address of another artifact before the
// bytecode is usable.
type LinkReference struct {
	// Artifact is the fully qualified name of the referenced artifact.
	Artifact string `cbor:"1,keyasint"`

	// Start is the byte offset of the region.
	Start int `cbor:"2,keyasint"`

	// Length is the byte length of the region.
	Length int `cbor:"3,keyasint"`
}

// CompiledArtifact is the binary artifact format toolchains emit into an OutputArtifact and which is persisted to
// disk. It is serialized as deterministic CBOR.
type CompiledArtifact struct {
	// Name is the fully qualified artifact name.
	Name string `cbor:"1,keyasint"`

	// SourceUnit is the logical name of the SourceUnit the artifact was compiled from.
	SourceUnit string `cbor:"2,keyasint,omitempty"`

	// Kind describes the kind of contract, i.e. contract, library, interface.
	Kind ContractKind `cbor:"3,keyasint,omitempty"`

	// Abi is the JSON-encoded application binary interface of the artifact.
	Abi []byte `cbor:"4,keyasint,omitempty"`

	// InitBytecode is the bytecode used to deploy the artifact, with link regions zeroed.
	InitBytecode []byte `cbor:"5,keyasint,omitempty"`

	// RuntimeBytecode is the bytecode expected once deployed, with link regions zeroed.
	RuntimeBytecode []byte `cbor:"6,keyasint,omitempty"`

	// InitLinkReferences describes the link regions within InitBytecode.
	InitLinkReferences []LinkReference `cbor:"7,keyasint,omitempty"`

	// RuntimeLinkReferences describes the link regions within RuntimeBytecode.
	RuntimeLinkReferences []LinkReference `cbor:"8,keyasint,omitempty"`
}

// Dependencies returns the sorted, de-duplicated names of every artifact this artifact links against.
func (a *CompiledArtifact) Dependencies() []string {
	dependencies := make([]string, 0)
	for _, refs := range [][]LinkReference{a.InitLinkReferences, a.RuntimeLinkReferences} {
		for _, ref := range refs {
			if !slices.Contains(dependencies, ref.Artifact) {
				dependencies = append(dependencies, ref.Artifact)
			}
		}
	}
	slices.Sort(dependencies)
	return dependencies
}

// compiledArtifactFields has the fields of CompiledArtifact without its methods, so the encoder does not call back
// into MarshalBinary.
type compiledArtifactFields CompiledArtifact

// MarshalBinary encodes the artifact into its binary form.
func (a *CompiledArtifact) MarshalBinary() ([]byte, error) {
	b, err := encMode.Marshal((*compiledArtifactFields)(a))
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode artifact '%s'", a.Name)
	}
	return b, nil
}

// UnmarshalCompiledArtifact decodes an artifact from its binary form. Returns an error if the data is not a well-formed
// artifact.
func UnmarshalCompiledArtifact(data []byte) (*CompiledArtifact, error) {
	if len(data) == 0 {
		return nil, errors.New("artifact data is empty")
	}
	var artifact CompiledArtifact
	if err := decMode.Unmarshal(data, &artifact); err != nil {
		return nil, errors.WithStack(err)
	}
	if artifact.Name == "" {
		return nil, errors.New("artifact does not declare a name")
	}
	for _, refs := range [][]LinkReference{artifact.InitLinkReferences, artifact.RuntimeLinkReferences} {
		for _, ref := range refs {
			if ref.Artifact == "" || ref.Start < 0 || ref.Length <= 0 {
				return nil, errors.Errorf("artifact '%s' declares a malformed link reference", artifact.Name)
			}
		}
	}
	return &artifact, nil
}
