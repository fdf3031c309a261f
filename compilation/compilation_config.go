package compilation

import (
	"encoding/json"
	"fmt"

	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/pkg/errors"
)

// CompilationConfig describes the configuration options used to select and configure the toolchain source units are
// compiled with.
type CompilationConfig struct {
	// Platform references an identifier indicating which compilation platform to use.
	// PlatformConfig is a structure dependent on the defined Platform.
	Platform string `json:"platform"`

	// PlatformConfig describes the Platform-specific configuration needed to compile.
	PlatformConfig *json.RawMessage `json:"platformConfig"`
}

// NewCompilationConfig returns a CompilationConfig with default values for a given platform identifier.
// If an error occurs, it is returned instead.
func NewCompilationConfig(platform string) (*CompilationConfig, error) {
	platformConfig := GetDefaultPlatformConfig(platform)
	if platformConfig == nil {
		return nil, fmt.Errorf("could not get default compilation configs: platform '%s' is unsupported", platform)
	}
	return NewCompilationConfigFromPlatformConfig(platformConfig)
}

// NewCompilationConfigFromPlatformConfig takes a platforms.PlatformConfig and wraps it in a generic
// CompilationConfig. This allows many platform config types to be serialized/deserialized to their appropriate
// types and supported generally.
func NewCompilationConfigFromPlatformConfig(platformConfig platforms.PlatformConfig) (*CompilationConfig, error) {
	// Marshal our config to a raw message
	b, err := json.Marshal(platformConfig)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	platformConfigMsg := (*json.RawMessage)(&b)

	// Return the compilation configs containing our platform-specific configs
	return &CompilationConfig{Platform: platformConfig.Platform(), PlatformConfig: platformConfigMsg}, nil
}

// GetPlatformConfig takes a generic CompilationConfig and deserializes the inner platforms.PlatformConfig, which
// is then used to compile source units. Returns an error if the platform is unsupported or its configuration could
// not be parsed.
func (c *CompilationConfig) GetPlatformConfig() (platforms.PlatformConfig, error) {
	// The default config of the platform is the concrete structure the raw config is decoded into
	platformConfig := GetDefaultPlatformConfig(c.Platform)
	if platformConfig == nil {
		return nil, fmt.Errorf("could not create toolchain from configs: platform '%s' is unsupported", c.Platform)
	}
	if c.PlatformConfig != nil {
		if err := json.Unmarshal(*c.PlatformConfig, platformConfig); err != nil {
			return nil, errors.Wrapf(err, "could not parse the '%s' platform config", c.Platform)
		}
	}
	return platformConfig, nil
}
