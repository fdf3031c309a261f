package cmd

import (
	"github.com/crytic/bytereactor/reactor/config"
	"github.com/spf13/cobra"
)

// addCompileFlags adds the various flags for the compile command
func addCompileFlags() error {
	// Config file
	compileCmd.Flags().String("config", "", "path to config file")

	// Console colors
	compileCmd.Flags().Bool("no-color", false, "disabled colored terminal output")

	// Artifact hash
	compileCmd.Flags().Bool("hash-cache", true, "compare the produced artifacts with the ones of the previous run")

	// Flags shared with the init command
	addProjectConfigFlags(compileCmd)

	return nil
}

// updateProjectConfigWithCompileFlags will update the given projectConfig with any CLI arguments that were provided to
// the compile command
func updateProjectConfigWithCompileFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	var err error

	// Update console colors
	if cmd.Flags().Changed("no-color") {
		projectConfig.Logging.NoColor, err = cmd.Flags().GetBool("no-color")
		if err != nil {
			return err
		}
	}

	return updateProjectConfigWithSharedFlags(cmd, projectConfig)
}
