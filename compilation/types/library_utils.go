package types

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/crytic/medusa-geth/common"
	"github.com/crytic/medusa-geth/crypto"
	"golang.org/x/exp/slices"
)

// libraryPlaceholderLength is the character length of a library placeholder within hex encoded bytecode. It spans the
// 20 bytes an address occupies.
const libraryPlaceholderLength = 2 * common.AddressLength

// GenerateLibraryPlaceholder creates a library placeholder based on the keccak256 hash
// of the fully qualified library name according to Solidity's algorithm
func GenerateLibraryPlaceholder(fullyQualifiedName string) string {
	// Calculate keccak256 hash of the library name
	hash := crypto.Keccak256Hash([]byte(fullyQualifiedName))

	// Take the first 34 characters of the hash (17 bytes) and format according to Solidity's placeholder format
	hashStr := hex.EncodeToString(hash.Bytes())
	return "__$" + hashStr[:34] + "$__"
}

// StripLibraryPlaceholders replaces every library placeholder within hex encoded bytecode with zeros, so the bytecode
// can be decoded. The positions of the placeholders are described separately by link references.
func StripLibraryPlaceholders(hexBytecode string) string {
	hexBytecode = strings.TrimPrefix(hexBytecode, "0x")
	if !strings.Contains(hexBytecode, "__") {
		return hexBytecode
	}

	// Placeholders are the only non-hex runs of the string, each occupying a full address slot.
	b := []byte(hexBytecode)
	for i := 0; i < len(b); {
		if b[i] != '_' {
			i++
			continue
		}
		end := i + libraryPlaceholderLength
		if end > len(b) {
			end = len(b)
		}
		for j := i; j < end; j++ {
			b[j] = '0'
		}
		i = end
	}
	return string(b)
}

// LinkBytecode returns a copy of the bytecode with every link reference region replaced by the address of the
// referenced artifact. Returns an error if a reference lies outside the bytecode or if no address is known for the
// referenced artifact.
func LinkBytecode(bytecode []byte, references []LinkReference, addresses map[string]common.Address) ([]byte, error) {
	// Clone the bytecode to avoid modifying the original
	result := slices.Clone(bytecode)

	for _, ref := range references {
		address, exists := addresses[ref.Artifact]
		if !exists {
			return nil, fmt.Errorf("no address available to link artifact '%s'", ref.Artifact)
		}
		if ref.Start < 0 || ref.Length <= 0 || ref.Start+ref.Length > len(result) {
			return nil, fmt.Errorf("link reference to '%s' at offset %d (length %d) lies outside of the bytecode", ref.Artifact, ref.Start, ref.Length)
		}

		// The address is right-aligned within the region, which is zero padded if it is longer than an address
		region := result[ref.Start : ref.Start+ref.Length]
		for i := range region {
			region[i] = 0
		}
		addrBytes := address.Bytes()
		if len(addrBytes) > len(region) {
			addrBytes = addrBytes[len(addrBytes)-len(region):]
		}
		copy(region[len(region)-len(addrBytes):], addrBytes)
	}

	return result, nil
}

// GetDeploymentOrder returns a topologically sorted list of artifacts based on their dependencies (artifacts that other
// artifacts depend on come first). Ties are broken alphabetically so the order is stable.
func GetDeploymentOrder(dependencies map[string][]string) ([]string, error) {
	// Calculate in-degree for each node (number of dependencies)
	inDegree := make(map[string]int)
	dependents := make(map[string][]string)
	for node, deps := range dependencies {
		if _, exists := inDegree[node]; !exists {
			inDegree[node] = 0
		}
		for _, dep := range deps {
			if _, exists := inDegree[dep]; !exists {
				inDegree[dep] = 0
			}
			inDegree[node]++
			dependents[dep] = append(dependents[dep], node)
		}
	}

	// Find nodes with no dependencies (in-degree = 0)
	var queue []string
	for node, degree := range inDegree {
		if degree == 0 {
			queue = append(queue, node)
		}
	}
	slices.Sort(queue)

	// Process nodes in topological order
	result := make([]string, 0, len(inDegree))
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		result = append(result, current)

		// For each node that depends on this one, decrease its in-degree
		var ready []string
		for _, node := range dependents[current] {
			inDegree[node]--
			if inDegree[node] == 0 {
				ready = append(ready, node)
			}
		}
		slices.Sort(ready)
		queue = append(queue, ready...)
	}

	// Check if we have a valid topological ordering
	if len(result) != len(inDegree) {
		return result, fmt.Errorf("circular dependency detected in artifact dependencies")
	}

	return result, nil
}
