package types

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/crytic/medusa-geth/common"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCompiledArtifactEncoding verifies an artifact survives encoding and that encoding is deterministic.
func TestCompiledArtifactEncoding(t *testing.T) {
	artifact := &CompiledArtifact{
		Name:            "pkg.Token",
		SourceUnit:      "pkg.Token",
		Kind:            ContractKindContract,
		Abi:             []byte(`[]`),
		InitBytecode:    []byte{0x60, 0x80, 0x60, 0x40},
		RuntimeBytecode: []byte{0x60, 0x80},
		RuntimeLinkReferences: []LinkReference{
			{Artifact: "pkg.Math", Start: 1, Length: 20},
		},
	}

	b1, err := artifact.MarshalBinary()
	require.NoError(t, err)
	b2, err := artifact.MarshalBinary()
	require.NoError(t, err)
	assert.EqualValues(t, b1, b2)

	decoded, err := UnmarshalCompiledArtifact(b1)
	require.NoError(t, err)
	if diff := cmp.Diff(artifact, decoded); diff != "" {
		t.Fatalf("decoded artifact differs (-want +got):\n%s", diff)
	}
}

// TestCompiledArtifactEncodedAsMap verifies an artifact encodes to a map keyed by field number, both directly and
// when nested within another encoded value.
func TestCompiledArtifactEncodedAsMap(t *testing.T) {
	artifact := &CompiledArtifact{Name: "pkg.A", Abi: []byte(`[]`)}
	b, err := artifact.MarshalBinary()
	require.NoError(t, err)

	var fields map[int]any
	require.NoError(t, cbor.Unmarshal(b, &fields))
	assert.EqualValues(t, "pkg.A", fields[1])
	assert.EqualValues(t, []byte(`[]`), fields[4])

	// The encoder reaches MarshalBinary itself when the artifact is nested
	nested, err := cbor.Marshal([]*CompiledArtifact{artifact})
	require.NoError(t, err)
	var wrapped [][]byte
	require.NoError(t, cbor.Unmarshal(nested, &wrapped))
	require.Len(t, wrapped, 1)
	decoded, err := UnmarshalCompiledArtifact(wrapped[0])
	require.NoError(t, err)
	assert.EqualValues(t, "pkg.A", decoded.Name)
}

// TestUnmarshalCompiledArtifactMalformed verifies data which is not a well-formed artifact is rejected.
func TestUnmarshalCompiledArtifactMalformed(t *testing.T) {
	_, err := UnmarshalCompiledArtifact(nil)
	assert.Error(t, err)

	_, err = UnmarshalCompiledArtifact([]byte{0xCA, 0xFE, 0xBA, 0xBE})
	assert.Error(t, err)

	// A well-formed envelope without a name is rejected
	b, err := (&CompiledArtifact{Abi: []byte(`[]`)}).MarshalBinary()
	require.NoError(t, err)
	_, err = UnmarshalCompiledArtifact(b)
	assert.Error(t, err)

	// A link reference without a target is rejected
	b, err = (&CompiledArtifact{Name: "A", InitLinkReferences: []LinkReference{{Start: 0, Length: 20}}}).MarshalBinary()
	require.NoError(t, err)
	_, err = UnmarshalCompiledArtifact(b)
	assert.Error(t, err)
}

// TestCompiledArtifactDependencies verifies dependencies are collected across both bytecodes without duplicates.
func TestCompiledArtifactDependencies(t *testing.T) {
	artifact := &CompiledArtifact{
		Name: "pkg.Token",
		InitLinkReferences: []LinkReference{
			{Artifact: "pkg.Math", Start: 0, Length: 20},
			{Artifact: "pkg.Strings", Start: 40, Length: 20},
		},
		RuntimeLinkReferences: []LinkReference{
			{Artifact: "pkg.Math", Start: 0, Length: 20},
		},
	}
	assert.EqualValues(t, []string{"pkg.Math", "pkg.Strings"}, artifact.Dependencies())
	assert.Empty(t, (&CompiledArtifact{Name: "A"}).Dependencies())
}

// TestLinkBytecode verifies link regions are filled with the addresses of the referenced artifacts.
func TestLinkBytecode(t *testing.T) {
	bytecode := make([]byte, 24)
	bytecode[0] = 0x73
	bytecode[21] = 0x60
	address := common.HexToAddress("0x1234567890abcdef1234567890abcdef12345678")

	linked, err := LinkBytecode(bytecode, []LinkReference{{Artifact: "pkg.Math", Start: 1, Length: 20}}, map[string]common.Address{
		"pkg.Math": address,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0x73, linked[0])
	assert.EqualValues(t, address.Bytes(), linked[1:21])
	assert.EqualValues(t, 0x60, linked[21])

	// The original bytecode is untouched
	assert.EqualValues(t, make([]byte, 20), bytecode[1:21])

	// Unknown artifacts and out of range references fail
	_, err = LinkBytecode(bytecode, []LinkReference{{Artifact: "pkg.Unknown", Start: 1, Length: 20}}, nil)
	assert.Error(t, err)
	_, err = LinkBytecode(bytecode, []LinkReference{{Artifact: "pkg.Math", Start: 10, Length: 20}}, map[string]common.Address{
		"pkg.Math": address,
	})
	assert.Error(t, err)
}

// TestStripLibraryPlaceholders verifies placeholders are zeroed so hex bytecode can be decoded.
func TestStripLibraryPlaceholders(t *testing.T) {
	placeholder := GenerateLibraryPlaceholder("pkg/Token.sol:Math")
	assert.Len(t, placeholder, 40)

	stripped := StripLibraryPlaceholders("0x73" + placeholder + "6080")
	assert.EqualValues(t, "73"+"0000000000000000000000000000000000000000"+"6080", stripped)
	assert.EqualValues(t, "6080", StripLibraryPlaceholders("6080"))
}

// TestGetDeploymentOrder verifies dependencies are ordered before their dependents and cycles are detected.
func TestGetDeploymentOrder(t *testing.T) {
	order, err := GetDeploymentOrder(map[string][]string{
		"Token":   {"Math", "Strings"},
		"Math":    {},
		"Strings": {"Math"},
	})
	require.NoError(t, err)
	assert.EqualValues(t, []string{"Math", "Strings", "Token"}, order)

	_, err = GetDeploymentOrder(map[string][]string{
		"A": {"B"},
		"B": {"A"},
	})
	assert.Error(t, err)
}

// TestASTContractKinds verifies contract kinds are extracted from a source unit AST.
func TestASTContractKinds(t *testing.T) {
	data := `{
		"nodeType": "SourceUnit",
		"nodes": [
			{"nodeType": "PragmaDirective", "literals": ["solidity"]},
			{"nodeType": "ContractDefinition", "name": "Math", "contractKind": "library"},
			{"nodeType": "ContractDefinition", "name": "IToken", "contractKind": "interface"},
			{"nodeType": "ContractDefinition", "name": "Token", "contractKind": "contract"}
		]
	}`
	var ast AST
	require.NoError(t, json.Unmarshal([]byte(data), &ast))
	assert.EqualValues(t, map[string]ContractKind{
		"Math":   ContractKindLibrary,
		"IToken": ContractKindInterface,
		"Token":  ContractKindContract,
	}, ast.ContractKinds())
}

// TestArtifactPaths verifies artifact names map onto source and artifact paths.
func TestArtifactPaths(t *testing.T) {
	assert.EqualValues(t, filepath.Join("out", "pkg", "sub", "Token.artifact"), ArtifactFilePath("out", "pkg.sub.Token"))
	assert.EqualValues(t, filepath.Join("out", "Token.artifact"), ArtifactFilePath("out", "Token"))
	assert.EqualValues(t, "pkg/sub/Token.sol", SourceRelativePath("pkg.sub.Token", ".sol"))
	assert.EqualValues(t, "pkg.sub", ArtifactNamespace("pkg.sub.Token"))
	assert.EqualValues(t, "", ArtifactNamespace("Token"))
	assert.EqualValues(t, "pkg.Helper", QualifyArtifactName("pkg", "Helper"))
	assert.EqualValues(t, "Helper", QualifyArtifactName("", "Helper"))
}
