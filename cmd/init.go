package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/crytic/bytereactor/compilation"
	"github.com/crytic/bytereactor/logging/colors"
	"github.com/crytic/bytereactor/reactor/config"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// supportedPlatforms caches the platforms init accepts, for argument validation and shell completion
var supportedPlatforms = compilation.GetSupportedCompilationPlatforms()

// initCmd represents the command provider for init
var initCmd = &cobra.Command{
	Use:   "init [platform]",
	Short: "Initializes a project configuration",
	Long: `Writes a default project configuration for the given compilation platform, updated with the provided flags.
The configuration is written to ` + DefaultProjectConfigFilename + ` in the working directory unless --out is given.`,
	Args:              cmdValidateInitArgs,
	ValidArgsFunction: cmdValidInitArgs,
	RunE:              cmdRunInit,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

func init() {
	// Add flags to init command
	err := addInitFlags()
	if err != nil {
		cmdLogger.Panic("Failed to initialize the init command", err)
	}

	// Add the init command and its associated flags to the root command
	rootCmd.AddCommand(initCmd)
}

// cmdValidInitArgs completes unused flags, and platforms while none was given
func cmdValidInitArgs(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var suggestions []string
	anyFlagChanged := false
	cmd.Flags().VisitAll(func(flag *pflag.Flag) {
		if flag.Changed {
			anyFlagChanged = true
			return
		}
		suggestions = append(suggestions, "--"+flag.Name)
	})

	// Once flags are used, the platform positional is assumed to be omitted
	if len(args) == 0 && !anyFlagChanged {
		suggestions = append(suggestions, supportedPlatforms...)
	}
	return suggestions, cobra.ShellCompDirectiveNoFileComp
}

// cmdValidateInitArgs validates CLI arguments
func cmdValidateInitArgs(cmd *cobra.Command, args []string) error {
	var err error
	if len(args) > 1 {
		err = fmt.Errorf("init accepts at most 1 platform argument (options: %s), the default platform is %s",
			strings.Join(supportedPlatforms, ", "), DefaultCompilationPlatform)
	} else if len(args) == 1 && !compilation.IsSupportedCompilationPlatform(args[0]) {
		err = fmt.Errorf("init was provided invalid platform argument '%s' (options: %s)", args[0], strings.Join(supportedPlatforms, ", "))
	}
	if err != nil {
		cmdLogger.Error("Failed to validate args to the init command", err)
	}
	return err
}

// cmdRunInit executes the init CLI command and updates the project configuration with any flags
func cmdRunInit(cmd *cobra.Command, args []string) error {
	outputPath, err := initOutputPath(cmd)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	platform := DefaultCompilationPlatform
	if len(args) == 1 {
		platform = args[0]
	}
	projectConfig, err := config.GetDefaultProjectConfig(platform)
	if err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// Update the project configuration given whatever flags were set using the CLI
	if err = updateProjectConfigWithInitFlags(cmd, projectConfig); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}

	// Existing configurations are only replaced with --force or after confirmation
	if _, err = os.Stat(outputPath); err == nil {
		overwrite, err := confirmOverwrite(cmd, outputPath)
		if err != nil {
			cmdLogger.Error("Failed to run the init command", err)
			return err
		}
		if !overwrite {
			cmdLogger.Info("Left the existing project configuration untouched")
			return nil
		}
	}

	if err = projectConfig.WriteToFile(outputPath); err != nil {
		cmdLogger.Error("Failed to run the init command", err)
		return err
	}
	cmdLogger.Info("Project configuration successfully output to: ", colors.Bold, outputPath, colors.Reset)
	return nil
}

// initOutputPath returns the absolute path the configuration is written to
func initOutputPath(cmd *cobra.Command) (string, error) {
	outputPath, err := cmd.Flags().GetString("out")
	if err != nil {
		return "", err
	}
	if outputPath == "" {
		outputPath = DefaultProjectConfigFilename
	}
	return filepath.Abs(outputPath)
}

// confirmOverwrite returns true if --force was given, otherwise asks the user on the command's input
func confirmOverwrite(cmd *cobra.Command, outputPath string) (bool, error) {
	force, err := cmd.Flags().GetBool("force")
	if err != nil || force {
		return force, err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s already exists. Overwrite? (y/n): ", outputPath)
	response, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && response == "" {
		return false, err
	}
	response = strings.TrimSpace(response)
	return response == "y" || response == "Y", nil
}
