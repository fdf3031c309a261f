package config

import (
	"encoding/json"
	"os"

	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/tidwall/jsonc"
)

// ProjectConfig describes the configuration of a project compiled and loaded through a reactor.
type ProjectConfig struct {
	// Reactor describes the configuration used by the reactor.Reactor.
	Reactor ReactorConfig `json:"reactor"`

	// Compilation describes the configuration used to select and configure the toolchain.
	Compilation *compilation.CompilationConfig `json:"compilation"`

	// Logging describes the configuration used for logging to file and console
	Logging LoggingConfig `json:"logging"`
}

// ReactorConfig describes the configuration options used by the reactor.Reactor.
type ReactorConfig struct {
	// ReportLevel is the minimum severity of toolchain diagnostics which are forwarded to the log.
	ReportLevel compilation.ReportLevel `json:"reportLevel"`

	// CompilerDestinationPath is the directory artifacts are persisted to when a request does not set its own
	// destination path. If empty, artifacts are kept in memory and cached.
	CompilerDestinationPath string `json:"compilerDestinationPath"`

	// LoadingContext names a dedicated loading context the reactor loads artifacts under. If empty, artifacts are
	// loaded under the default loading context unless one is provided per call.
	LoadingContext string `json:"loadingContext"`

	// Extensions describes the toolchain extensions passed to every compilation.
	Extensions platforms.ExtensionsConfig `json:"extensions"`
}

// LoggingConfig describes the configuration options used for logging
type LoggingConfig struct {
	// Level describes whether logs of certain severity levels (eg info, warning, etc.) will be emitted or discarded.
	// Increasing level values represent more severe logs
	Level zerolog.Level `json:"level"`

	// EnableConsoleLogging describes whether console logging is enabled
	EnableConsoleLogging bool `json:"enableConsoleLogging"`

	// LogDirectory describes the directory where structured log _files_ will be outputted. If the string is empty, then
	// no log files are kept
	LogDirectory string `json:"logDirectory"`

	// NoColor describes whether console output is left uncolored.
	NoColor bool `json:"noColor"`
}

// ReadProjectConfigFromFile reads a JSON-serialized ProjectConfig from a provided file path. Comments and trailing
// commas are permitted. Returns the ProjectConfig if it succeeds, or an error if one occurs.
func ReadProjectConfigFromFile(path string) (*ProjectConfig, error) {
	// Read our project configuration file data
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Parse the project configuration
	projectConfig, err := GetDefaultProjectConfig("")
	if err != nil {
		return nil, err
	}
	err = json.Unmarshal(jsonc.ToJSON(b), projectConfig)
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse project config '%s'", path)
	}

	return projectConfig, nil
}

// WriteToFile writes the ProjectConfig to a provided file path in a JSON-serialized format.
// Returns an error if one occurs.
func (p *ProjectConfig) WriteToFile(path string) error {
	// Serialize the configuration
	b, err := json.MarshalIndent(p, "", "\t")
	if err != nil {
		return errors.WithStack(err)
	}

	// Save it to the provided output path and return the result
	err = os.WriteFile(path, b, 0644)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// Validate validates that the ProjectConfig meets certain requirements.
// Returns an error if one occurs.
func (p *ProjectConfig) Validate() error {
	// Verify a compilation platform was provided and is supported
	if p.Compilation == nil {
		return errors.Errorf("project config must specify a compilation config")
	}
	if !compilation.IsSupportedCompilationPlatform(p.Compilation.Platform) {
		return errors.Errorf("compilation platform '%s' is unsupported", p.Compilation.Platform)
	}

	// Verify the report level is known
	if _, err := p.Reactor.ReportLevel.MarshalText(); err != nil {
		return err
	}

	// Verify the optimizer settings are sane
	if p.Reactor.Extensions.Optimizer != nil && p.Reactor.Extensions.Optimizer.Runs < 0 {
		return errors.Errorf("optimizer runs cannot be negative")
	}
	return nil
}
