package platforms

import (
	"github.com/pkg/errors"
)

// SolcSettingsExtension is an Extension understood by the solc toolchain, which adjusts the settings of the
// standard-JSON input before it is submitted.
type SolcSettingsExtension interface {
	Extension
	ApplySolcSettings(settings *SolcSettings) error
}

// OptimizerExtension enables the solc optimizer.
type OptimizerExtension struct {
	// Enabled indicates whether the optimizer should run.
	Enabled bool `json:"enabled"`

	// Runs describes how often deployed code is expected to be executed. Zero leaves the compiler default.
	Runs int `json:"runs,omitempty"`
}

// ExtensionName returns the name of the extension.
func (e *OptimizerExtension) ExtensionName() string {
	return "optimizer"
}

// ApplySolcSettings sets the optimizer settings.
func (e *OptimizerExtension) ApplySolcSettings(settings *SolcSettings) error {
	if e.Runs < 0 {
		return errors.Errorf("optimizer runs must not be negative, got %d", e.Runs)
	}
	settings.Optimizer = &SolcOptimizerSettings{
		Enabled: e.Enabled,
		Runs:    e.Runs,
	}
	return nil
}

// EVMVersionExtension selects the EVM version solc targets.
type EVMVersionExtension struct {
	Version string
}

// ExtensionName returns the name of the extension.
func (e *EVMVersionExtension) ExtensionName() string {
	return "evmVersion"
}

// ApplySolcSettings sets the EVM version.
func (e *EVMVersionExtension) ApplySolcSettings(settings *SolcSettings) error {
	if e.Version == "" {
		return errors.New("evm version must not be empty")
	}
	settings.EVMVersion = e.Version
	return nil
}

// RemappingsExtension provides import remappings of the form "prefix=target".
type RemappingsExtension struct {
	Remappings []string
}

// ExtensionName returns the name of the extension.
func (e *RemappingsExtension) ExtensionName() string {
	return "remappings"
}

// ApplySolcSettings appends the remappings.
func (e *RemappingsExtension) ApplySolcSettings(settings *SolcSettings) error {
	settings.Remappings = append(settings.Remappings, e.Remappings...)
	return nil
}

// ViaIRExtension enables compilation through the IR pipeline.
type ViaIRExtension struct{}

// ExtensionName returns the name of the extension.
func (e *ViaIRExtension) ExtensionName() string {
	return "viaIR"
}

// ApplySolcSettings enables the IR pipeline.
func (e *ViaIRExtension) ApplySolcSettings(settings *SolcSettings) error {
	settings.ViaIR = true
	return nil
}

// ExtensionsConfig is the serializable form of the toolchain extensions in a project configuration.
type ExtensionsConfig struct {
	// Optimizer configures the optimizer, if set.
	Optimizer *OptimizerExtension `json:"optimizer,omitempty"`

	// EVMVersion selects the targeted EVM version, if set.
	EVMVersion string `json:"evmVersion,omitempty"`

	// Remappings lists import remappings.
	Remappings []string `json:"remappings,omitempty"`

	// ViaIR enables compilation through the IR pipeline.
	ViaIR bool `json:"viaIR,omitempty"`
}

// Extensions returns the extensions described by the config.
func (c *ExtensionsConfig) Extensions() []Extension {
	if c == nil {
		return nil
	}
	var extensions []Extension
	if c.Optimizer != nil {
		optimizer := *c.Optimizer
		extensions = append(extensions, &optimizer)
	}
	if c.EVMVersion != "" {
		extensions = append(extensions, &EVMVersionExtension{Version: c.EVMVersion})
	}
	if len(c.Remappings) > 0 {
		extensions = append(extensions, &RemappingsExtension{Remappings: append([]string(nil), c.Remappings...)})
	}
	if c.ViaIR {
		extensions = append(extensions, &ViaIRExtension{})
	}
	return extensions
}
