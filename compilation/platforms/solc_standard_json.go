package platforms

import (
	"encoding/json"

	"github.com/crytic/bytereactor/compilation/types"
)

// SolcSource is a single source file of a standard-JSON input.
type SolcSource struct {
	Content string `json:"content"`
}

// SolcOptimizerSettings describes the optimizer section of standard-JSON settings.
type SolcOptimizerSettings struct {
	Enabled bool `json:"enabled"`
	Runs    int  `json:"runs,omitempty"`
}

// SolcSettings describes the settings section of a standard-JSON input.
type SolcSettings struct {
	Remappings      []string                       `json:"remappings,omitempty"`
	Optimizer       *SolcOptimizerSettings         `json:"optimizer,omitempty"`
	EVMVersion      string                         `json:"evmVersion,omitempty"`
	ViaIR           bool                           `json:"viaIR,omitempty"`
	OutputSelection map[string]map[string][]string `json:"outputSelection"`
}

// SolcStandardInput is the standard-JSON input passed to solc on stdin.
type SolcStandardInput struct {
	Language string                `json:"language"`
	Sources  map[string]SolcSource `json:"sources"`
	Settings SolcSettings          `json:"settings"`
}

// SolcSourceLocation describes where within a source a standard-JSON error originated.
type SolcSourceLocation struct {
	File  string `json:"file"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// SolcError is an entry of the errors section of a standard-JSON output. Warnings and informational messages are
// reported here too.
type SolcError struct {
	SourceLocation   *SolcSourceLocation `json:"sourceLocation,omitempty"`
	Type             string              `json:"type"`
	Component        string              `json:"component"`
	Severity         string              `json:"severity"`
	ErrorCode        string              `json:"errorCode,omitempty"`
	Message          string              `json:"message"`
	FormattedMessage string              `json:"formattedMessage,omitempty"`
}

// Diagnostic converts the standard-JSON error into a types.Diagnostic.
func (e SolcError) Diagnostic() types.Diagnostic {
	diagnostic := types.Diagnostic{
		Severity: types.ParseSeverity(e.Severity),
		Message:  e.FormattedMessage,
		Start:    -1,
		End:      -1,
		Code:     e.ErrorCode,
	}
	if diagnostic.Message == "" {
		diagnostic.Message = e.Message
	}
	if e.SourceLocation != nil {
		diagnostic.Source = e.SourceLocation.File
		diagnostic.Start = e.SourceLocation.Start
		diagnostic.End = e.SourceLocation.End
	}
	return diagnostic
}

// SolcLinkOffset describes a single placeholder region within bytecode.
type SolcLinkOffset struct {
	Start  int `json:"start"`
	Length int `json:"length"`
}

// SolcBytecode describes the bytecode section of a standard-JSON contract output.
type SolcBytecode struct {
	// Object is the hex encoded bytecode, possibly containing library placeholders.
	Object string `json:"object"`

	// LinkReferences maps source paths to library names to the placeholder regions referencing them.
	LinkReferences map[string]map[string][]SolcLinkOffset `json:"linkReferences,omitempty"`
}

// SolcEVMOutput describes the evm section of a standard-JSON contract output.
type SolcEVMOutput struct {
	Bytecode         SolcBytecode `json:"bytecode"`
	DeployedBytecode SolcBytecode `json:"deployedBytecode"`
}

// SolcContractOutput describes a single contract of a standard-JSON output.
type SolcContractOutput struct {
	Abi json.RawMessage `json:"abi"`
	EVM SolcEVMOutput   `json:"evm"`
}

// SolcSourceOutput describes a single source of a standard-JSON output.
type SolcSourceOutput struct {
	ID  int        `json:"id"`
	AST *types.AST `json:"ast,omitempty"`
}

// SolcStandardOutput is the standard-JSON output solc writes to stdout.
type SolcStandardOutput struct {
	Errors    []SolcError                              `json:"errors,omitempty"`
	Sources   map[string]SolcSourceOutput              `json:"sources,omitempty"`
	Contracts map[string]map[string]SolcContractOutput `json:"contracts,omitempty"`
}

// HasErrors indicates whether any error-severity entry was reported.
func (o *SolcStandardOutput) HasErrors() bool {
	for _, e := range o.Errors {
		if types.ParseSeverity(e.Severity) == types.SeverityError {
			return true
		}
	}
	return false
}
