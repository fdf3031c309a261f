package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/crytic/bytereactor/cmd/exitcodes"
	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/compilation/types"
	"github.com/crytic/bytereactor/loader"
	"github.com/crytic/bytereactor/logging"
	"github.com/crytic/bytereactor/logging/colors"
	"github.com/crytic/bytereactor/reactor"
	"github.com/crytic/bytereactor/reactor/config"
	"github.com/crytic/bytereactor/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/exp/slices"
)

// compileCmd represents the command provider for compile
var compileCmd = &cobra.Command{
	Use:               "compile [[name=]path ...]",
	Short:             "Compiles and loads source files",
	Long:              `Compiles the provided source files through a single toolchain invocation and loads the produced artifacts`,
	Args:              cmdValidateCompileArgs,
	ValidArgsFunction: cmdValidCompileArgs,
	RunE:              cmdRunCompile,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add all the flags allowed for the compile command
	err := addCompileFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the compile command", err)
	}

	// Add the compile command and its associated flags to the root command
	rootCmd.AddCommand(compileCmd)
}

// cmdValidCompileArgs will return which flags are valid for dynamic completion for the compile command. Positional
// arguments complete to files.
func cmdValidCompileArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Gather a list of flags that are available to be used in the current command but have not been used yet
	var unusedFlags []string
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if !flag.Changed {
			unusedFlags = append(unusedFlags, "--"+flag.Name)
		}
	})
	return unusedFlags, cobra.ShellCompDirectiveDefault
}

// cmdValidateCompileArgs makes sure at least one well-formed source argument was provided
func cmdValidateCompileArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MinimumNArgs(1)(cmd, args); err != nil {
		err = fmt.Errorf("compile requires at least one <artifact name>=<source file path> argument")
		cmdLogger.Error("Failed to validate args to the compile command", err)
		return err
	}
	if _, err := parseArtifactArgs(args); err != nil {
		cmdLogger.Error("Failed to validate args to the compile command", err)
		return err
	}
	return nil
}

// cmdRunCompile executes the CLI compile command and navigates through the following possibilities:
// #1: We will search for either a custom config file (via --config) or the default (bytereactor.json).
// If we find it, read it. If we can't read it, throw an error.
// #2: If a custom file was provided (--config was used), and we can't find the file, throw an error.
// #3: If bytereactor.json can't be found, use the default project configuration.
func cmdRunCompile(cmd *cobra.Command, args []string) error {
	var projectConfig *config.ProjectConfig

	// Resolve our sources before changing directories
	sources, err := parseArtifactArgs(args)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	for i := range sources {
		if sources[i][1], err = filepath.Abs(sources[i][1]); err != nil {
			cmdLogger.Error("Failed to run the compile command", err)
			return err
		}
	}

	// Check to see if --config flag was used and store the value of --config flag
	configFlagUsed := cmd.Flags().Changed("config")
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}

	// If --config was not used, look for `bytereactor.json` in the current work directory
	if !configFlagUsed {
		workingDirectory, err := os.Getwd()
		if err != nil {
			cmdLogger.Error("Failed to run the compile command", err)
			return err
		}
		configPath = filepath.Join(workingDirectory, DefaultProjectConfigFilename)
	}

	// Check to see if the file exists at configPath
	_, existenceError := os.Stat(configPath)

	// Possibility #1: File was found
	if existenceError == nil {
		cmdLogger.Info("Reading the configuration file at: ", colors.Bold, configPath, colors.Reset)
		projectConfig, err = config.ReadProjectConfigFromFile(configPath)
		if err != nil {
			cmdLogger.Error("Failed to run the compile command", err)
			return err
		}
		if projectConfig.Compilation == nil {
			projectConfig.Compilation, err = compilation.NewCompilationConfig(DefaultCompilationPlatform)
			if err != nil {
				cmdLogger.Error("Failed to run the compile command", err)
				return err
			}
		}
	}

	// Possibility #2: If the --config flag was used, and we couldn't find the file, we'll throw an error
	if configFlagUsed && existenceError != nil {
		cmdLogger.Error("Failed to run the compile command", existenceError)
		return existenceError
	}

	// Possibility #3: --config flag was not used and bytereactor.json was not found, so use the default project config
	if !configFlagUsed && existenceError != nil {
		cmdLogger.Warn(fmt.Sprintf("Unable to find the config file at %v, will use the default project configuration for the "+
			"%v compilation platform instead", configPath, DefaultCompilationPlatform))

		projectConfig, err = config.GetDefaultProjectConfig(DefaultCompilationPlatform)
		if err != nil {
			cmdLogger.Error("Failed to run the compile command", err)
			return err
		}
	}

	// Update the project configuration given whatever flags were set using the CLI
	err = updateProjectConfigWithCompileFlags(cmd, projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}

	// Change our working directory to the parent directory of the project configuration file, so relative paths in
	// the configuration resolve against it.
	projectDirectory := filepath.Dir(configPath)
	err = os.Chdir(projectDirectory)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}

	// Set up the global logger the reactor and the compiler log to
	closeLogFile, err := setupGlobalLogger(projectConfig.Logging)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	defer closeLogFile()

	// Create our reactor
	r, err := reactor.NewReactorFromConfig(projectConfig)
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	defer func() {
		if closeErr := r.Close(); closeErr != nil {
			cmdLogger.Warn("Failed to close the reactor", closeErr)
		}
	}()

	// Report how long the toolchain took
	r.Events.CompilationCompleted.Subscribe(func(event reactor.CompilationCompletedEvent) error {
		if event.Err == nil {
			cmdLogger.Info("Compiled ", len(event.Units), " source unit(s) with ", event.Toolchain, " in ", event.Duration.Round(time.Millisecond))
		}
		return nil
	})

	// Build our batch and load it
	builder := reactor.NewBatchBuilder()
	for _, source := range sources {
		builder.AddFile(source[1], source[0])
	}
	batch := builder.Build()
	defer batch.Close()

	start := time.Now()
	loaded, err := r.LoadArtifacts(context.Background(), batch)
	if err != nil {
		cmdLogger.Error("Failed to compile and load the provided sources", err)
		var failedErr *types.CompilationFailedError
		if errors.As(err, &failedErr) {
			return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeCompilationFailed)
		}
		return exitcodes.NewErrorWithExitCode(err, exitcodes.ExitCodeHandledError)
	}

	// Print a summary of everything that was loaded
	artifacts := sortedArtifacts(loaded)
	cmdLogger.Info(summarizeArtifacts(artifacts, time.Since(start)).Args()...)

	// Compare the produced artifacts with the last run, if enabled
	hashCache, err := cmd.Flags().GetBool("hash-cache")
	if err != nil {
		cmdLogger.Error("Failed to run the compile command", err)
		return err
	}
	if hashCache {
		compilation.NotifyArtifactHashStatus(artifacts, filepath.Join(projectDirectory, DefaultArtifactHashDirectory), cmdLogger)
	}
	return nil
}

// setupGlobalLogger configures logging.GlobalLogger from the provided logging config. Returns a function closing the
// log file, if one was created.
func setupGlobalLogger(loggingConfig config.LoggingConfig) (func(), error) {
	if loggingConfig.NoColor {
		colors.DisableColor()
	}

	logging.GlobalLogger = logging.NewLogger(loggingConfig.Level)
	if loggingConfig.EnableConsoleLogging {
		logging.GlobalLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, !loggingConfig.NoColor)
	}
	if loggingConfig.LogDirectory == "" {
		return func() {}, nil
	}

	// Structured logs go to a new file per run
	file, err := utils.CreateFile(loggingConfig.LogDirectory, fmt.Sprintf("bytereactor-%d.log", time.Now().Unix()))
	if err != nil {
		return nil, err
	}
	logging.GlobalLogger.AddWriter(file, logging.STRUCTURED, false)
	return func() {
		logging.GlobalLogger.RemoveWriter(file, logging.STRUCTURED, false)
		_ = file.Close()
	}, nil
}

// sortedArtifacts returns the loaded artifacts ordered by name.
func sortedArtifacts(loaded map[string]*loader.LoadedArtifact) []*loader.LoadedArtifact {
	names := make([]string, 0, len(loaded))
	for name := range loaded {
		names = append(names, name)
	}
	slices.Sort(names)

	artifacts := make([]*loader.LoadedArtifact, 0, len(names))
	for _, name := range names {
		artifacts = append(artifacts, loaded[name])
	}
	return artifacts
}

// summarizeArtifacts returns a log buffer describing every loaded artifact.
func summarizeArtifacts(artifacts []*loader.LoadedArtifact, elapsed time.Duration) *logging.LogBuffer {
	buffer := logging.NewLogBuffer()
	buffer.Append("Loaded ", colors.Bold, len(artifacts), colors.Reset, " artifact(s) in ", elapsed.Round(time.Millisecond))
	libraries := utils.SliceWhere(artifacts, func(artifact *loader.LoadedArtifact) bool {
		return artifact.Kind() == types.ContractKindLibrary
	})
	if len(libraries) > 0 {
		buffer.Append(", ", len(libraries), " of them libraries")
	}
	for _, artifact := range artifacts {
		buffer.Append("\n", colors.Bold, colors.LEFT_ARROW, " ", artifact.Name(), colors.Reset,
			" (", artifact.Kind(), ", ", len(artifact.RuntimeBytecode()), " bytes) at ", artifact.Address().Hex())
		if dependencies := artifact.Dependencies(); len(dependencies) > 0 {
			buffer.Append(", links ", fmt.Sprint(dependencies))
		}
	}
	return buffer
}
