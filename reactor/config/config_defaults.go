package config

import (
	"github.com/crytic/bytereactor/compilation"
	"github.com/rs/zerolog"
)

// GetDefaultProjectConfig obtains a default configuration for a project. It populates a default compilation config
// based on the provided platform, or a nil one if an empty string is provided.
func GetDefaultProjectConfig(platform string) (*ProjectConfig, error) {
	var (
		compilationConfig *compilation.CompilationConfig
		err               error
	)
	if platform != "" {
		compilationConfig, err = compilation.NewCompilationConfig(platform)
		if err != nil {
			return nil, err
		}
	}

	// Create a project configuration
	projectConfig := &ProjectConfig{
		Reactor: ReactorConfig{
			ReportLevel:             compilation.DefaultReportLevel,
			CompilerDestinationPath: "",
			LoadingContext:          "",
		},
		Compilation: compilationConfig,
		Logging: LoggingConfig{
			Level:                zerolog.InfoLevel,
			EnableConsoleLogging: true,
			LogDirectory:         "",
			NoColor:              false,
		},
	}

	// Return the project configuration
	return projectConfig, nil
}
