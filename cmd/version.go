package cmd

import (
	"fmt"
	"os/exec"

	"github.com/crytic/bytereactor/compilation/platforms"
	"github.com/crytic/bytereactor/version"
	"github.com/spf13/cobra"
)

// versionCmd represents the version command that displays build information.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and build information",
	Long: `Print the version of bytereactor, the commit it was built from and the Go version used to build it.
With --compiler, the version of the given solc binary is reported as well.`,
	Args:          cobra.NoArgs,
	RunE:          cmdRunVersion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	versionCmd.Flags().String("compiler", "", "solc binary whose version should be reported")
	rootCmd.AddCommand(versionCmd)
}

// cmdRunVersion prints the build information and, if requested, the version of a solc binary
func cmdRunVersion(cmd *cobra.Command, args []string) error {
	fmt.Fprint(cmd.OutOrStdout(), version.GetInfo().String())

	binary, err := cmd.Flags().GetString("compiler")
	if err != nil || binary == "" {
		return err
	}
	if _, err = exec.LookPath(binary); err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "  Compiler:   %s not found\n", binary)
		return nil
	}
	solcVersion, err := platforms.GetSolcVersion(binary)
	if err != nil {
		cmdLogger.Error("Failed to determine the compiler version", err)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "  Compiler:   %s %s\n", binary, solcVersion)
	return nil
}
