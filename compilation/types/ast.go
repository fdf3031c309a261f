package types

import (
	"encoding/json"
)

// ContractKind represents the kind of contract definition represented by an AST node
type ContractKind string

const (
	// ContractKindContract represents a contract node
	ContractKindContract ContractKind = "contract"
	// ContractKindLibrary represents a library node
	ContractKindLibrary ContractKind = "library"
	// ContractKindInterface represents an interface node
	ContractKindInterface ContractKind = "interface"
)

// ContractDefinition is the contract definition node
type ContractDefinition struct {
	// NodeType represents the node type (currently we only evaluate source unit node types)
	NodeType string `json:"nodeType"`
	// Name is the name of the contract definition
	Name string `json:"name"`
	// CanonicalName is the canonical name of the contract definition
	CanonicalName string `json:"canonicalName,omitempty"`
	// Kind is a ContractKind that represents what type of contract definition this is (contract, interface, or library)
	Kind ContractKind `json:"contractKind,omitempty"`
}

// AST is the abstract syntax tree of a single source unit, reduced to its top-level contract definitions.
type AST struct {
	// NodeType represents the node type (currently we only evaluate source unit node types)
	NodeType string `json:"nodeType"`
	// ContractDefinitions lists the top-level contract definitions within the source unit.
	ContractDefinitions []ContractDefinition `json:"-"`
}

// UnmarshalJSON unmarshals from JSON
func (a *AST) UnmarshalJSON(data []byte) error {
	// Unmarshal the top-level AST into our own representation. Defer the unmarshaling of all the individual nodes until later
	type Alias AST
	aux := &struct {
		Nodes []json.RawMessage `json:"nodes"`
		*Alias
	}{
		Alias: (*Alias)(a),
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	// Iterate through all the nodes of the source unit
	for _, nodeData := range aux.Nodes {
		// Unmarshal the node data to retrieve the node type
		var nodeType struct {
			NodeType string `json:"nodeType"`
		}
		if err := json.Unmarshal(nodeData, &nodeType); err != nil {
			return err
		}

		// Only contract definitions are of interest, everything else is skipped
		if nodeType.NodeType != "ContractDefinition" {
			continue
		}
		var contractDefinition ContractDefinition
		if err := json.Unmarshal(nodeData, &contractDefinition); err != nil {
			return err
		}
		a.ContractDefinitions = append(a.ContractDefinitions, contractDefinition)
	}

	return nil
}

// ContractKinds returns a mapping of contract names to their kinds for every contract defined in the AST.
func (a *AST) ContractKinds() map[string]ContractKind {
	kinds := make(map[string]ContractKind, len(a.ContractDefinitions))
	for _, definition := range a.ContractDefinitions {
		name := definition.Name
		if name == "" {
			name = definition.CanonicalName
		}
		kinds[name] = definition.Kind
	}
	return kinds
}
