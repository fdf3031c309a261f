package cmd

import (
	"fmt"
	"strings"

	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/crytic/bytereactor/reactor/config"
	"github.com/crytic/bytereactor/utils"
	"github.com/spf13/cobra"
)

// addProjectConfigFlags adds the flags which update a project configuration to the provided command
func addProjectConfigFlags(cmd *cobra.Command) {
	// Destination directory for persisted artifacts
	cmd.Flags().String("destination", "", "directory compiled artifacts are persisted to (artifacts are kept in memory if empty)")

	// Diagnostic report level
	cmd.Flags().String("report-level", "",
		fmt.Sprintf("minimum severity of compiler diagnostics to log (options: all, info, warn, error, default: %s)", compilation.DefaultReportLevel))

	// Loading context
	cmd.Flags().String("context", "", "name of the loading context artifacts are loaded under")

	// Compiler binary
	cmd.Flags().String("compiler", "", "path of the compiler binary to invoke")

	// Optimizer runs
	cmd.Flags().Int("optimize-runs", 0, "enables the optimizer with the given amount of runs")

	// EVM version
	cmd.Flags().String("evm-version", "", "EVM version to compile for")
}

// updateProjectConfigWithSharedFlags will update the given projectConfig with the flags added by
// addProjectConfigFlags, if they were used
func updateProjectConfigWithSharedFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update the destination path
	if cmd.Flags().Changed("destination") {
		projectConfig.Reactor.CompilerDestinationPath, err = cmd.Flags().GetString("destination")
		if err != nil {
			return err
		}
	}

	// Update the report level
	if cmd.Flags().Changed("report-level") {
		reportLevel, err := cmd.Flags().GetString("report-level")
		if err != nil {
			return err
		}
		projectConfig.Reactor.ReportLevel, err = compilation.ParseReportLevel(reportLevel)
		if err != nil {
			return err
		}
	}

	// Update the loading context
	if cmd.Flags().Changed("context") {
		projectConfig.Reactor.LoadingContext, err = cmd.Flags().GetString("context")
		if err != nil {
			return err
		}
	}

	// Update the optimizer
	if cmd.Flags().Changed("optimize-runs") {
		runs, err := cmd.Flags().GetInt("optimize-runs")
		if err != nil {
			return err
		}
		projectConfig.Reactor.Extensions.Optimizer = &platforms.OptimizerExtension{Enabled: true, Runs: runs}
	}

	// Update the EVM version
	if cmd.Flags().Changed("evm-version") {
		projectConfig.Reactor.Extensions.EVMVersion, err = cmd.Flags().GetString("evm-version")
		if err != nil {
			return err
		}
	}

	// Update the compiler binary
	if cmd.Flags().Changed("compiler") {
		return updateCompilerBinary(cmd, projectConfig)
	}
	return nil
}

// updateCompilerBinary will update the compiler binary in the projectConfig if the --compiler flag is used in the
// command
func updateCompilerBinary(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	binary, err := cmd.Flags().GetString("compiler")
	if err != nil {
		return err
	}

	// Get the platform configuration for the projectConfig
	if projectConfig.Compilation == nil {
		return fmt.Errorf("the project configuration does not specify a compilation platform")
	}
	platformConfig, err := projectConfig.Compilation.GetPlatformConfig()
	if err != nil {
		return err
	}

	// Update the binary
	solcConfig, ok := platformConfig.(*platforms.SolcCompilationConfig)
	if !ok {
		return fmt.Errorf("the '%s' compilation platform does not support a custom compiler binary", projectConfig.Compilation.Platform)
	}
	solcConfig.Binary = binary

	// Update the compilation config
	compilationConfig, err := compilation.NewCompilationConfigFromPlatformConfig(solcConfig)
	if err != nil {
		return err
	}
	projectConfig.Compilation = compilationConfig
	return nil
}

// parseArtifactArgs parses positional arguments of the form <artifact name>=<source file path>.
func parseArtifactArgs(args []string) ([][2]string, error) {
	pairs := make([][2]string, 0, len(args))
	for _, arg := range args {
		name, path, ok := strings.Cut(arg, "=")
		if !ok {
			// A bare path is loaded under its file name
			name, path = utils.GetFileNameWithoutExtension(arg), arg
		}
		if name == "" || path == "" {
			return nil, fmt.Errorf("argument '%s' is not of the form [<artifact name>=]<source file path>", arg)
		}
		pairs = append(pairs, [2]string{name, path})
	}
	return pairs, nil
}
