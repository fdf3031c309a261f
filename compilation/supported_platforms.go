package compilation

import (
	"fmt"
	"sync"

	"github.com/crytic/bytereactor/compilation/platforms"
	"golang.org/x/exp/slices"
)

// PlatformConfigGenerator creates a platforms.PlatformConfig holding the default configuration of its platform.
type PlatformConfigGenerator func() platforms.PlatformConfig

var (
	// platformGenerators maps each supported platform identifier to the generator of its default configuration.
	platformGenerators = make(map[string]PlatformConfigGenerator)

	// platformGeneratorsLock guards platformGenerators.
	platformGeneratorsLock sync.RWMutex
)

func init() {
	if err := RegisterCompilationPlatform(func() platforms.PlatformConfig { return platforms.NewSolcCompilationConfig() }); err != nil {
		panic(err)
	}
}

// RegisterCompilationPlatform adds the platform of the configs the generator creates to the supported platforms, so
// CompilationConfig can select it and parse its configuration. Returns an error if the platform identifier is empty
// or already registered.
func RegisterCompilationPlatform(generator PlatformConfigGenerator) error {
	platform := generator().Platform()
	if platform == "" {
		return fmt.Errorf("a compilation platform must have a non-empty identifier")
	}

	platformGeneratorsLock.Lock()
	defer platformGeneratorsLock.Unlock()
	if _, exists := platformGenerators[platform]; exists {
		return fmt.Errorf("the compilation platform '%s' is registered with more than one provider", platform)
	}
	platformGenerators[platform] = generator
	return nil
}

// GetSupportedCompilationPlatforms returns the sorted identifiers of every registered platform.
func GetSupportedCompilationPlatforms() []string {
	platformGeneratorsLock.RLock()
	defer platformGeneratorsLock.RUnlock()
	platformIds := make([]string, 0, len(platformGenerators))
	for platformId := range platformGenerators {
		platformIds = append(platformIds, platformId)
	}
	slices.Sort(platformIds)
	return platformIds
}

// IsSupportedCompilationPlatform returns true if the platform identifier was registered.
func IsSupportedCompilationPlatform(platform string) bool {
	platformGeneratorsLock.RLock()
	defer platformGeneratorsLock.RUnlock()
	_, ok := platformGenerators[platform]
	return ok
}

// GetDefaultPlatformConfig returns the default configuration of the provided platform, or nil if it is unsupported.
func GetDefaultPlatformConfig(platform string) platforms.PlatformConfig {
	platformGeneratorsLock.RLock()
	generator, ok := platformGenerators[platform]
	platformGeneratorsLock.RUnlock()
	if !ok {
		return nil
	}
	return generator()
}
