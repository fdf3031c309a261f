package cmd

import (
	"github.com/crytic/bytereactor/reactor/config"
	"github.com/spf13/cobra"
)

// addInitFlags adds the various flags for the init command
func addInitFlags() error {
	// Output path for configuration
	initCmd.Flags().String("out", "", "output path for the new project configuration file")

	// Overwrite an existing configuration without asking
	initCmd.Flags().Bool("force", false, "overwrite an existing project configuration without confirmation")

	// Flags shared with the compile command
	addProjectConfigFlags(initCmd)

	return nil
}

// updateProjectConfigWithInitFlags will update the given projectConfig with any CLI arguments that were provided to the init command
func updateProjectConfigWithInitFlags(cmd *cobra.Command, projectConfig *config.ProjectConfig) error {
	return updateProjectConfigWithSharedFlags(cmd, projectConfig)
}
