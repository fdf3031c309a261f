package cmd

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// completionCmd generates shell completion scripts for the bytereactor CLI
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate the shell completion script for the specified shell",
	Long: `Generates a completion script for bytereactor commands, platforms and flags.

Bash:
  $ source <(bytereactor completion bash)

Zsh:
  $ bytereactor completion zsh > "${fpath[1]}/_bytereactor"

Fish:
  $ bytereactor completion fish | source`,
	ValidArgs:     []string{"bash", "zsh", "fish", "powershell"},
	Args:          cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE:          cmdRunCompletion,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// cmdRunCompletion writes the completion script for the requested shell to stdout
func cmdRunCompletion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	var err error
	switch args[0] {
	case "bash":
		err = cmd.Root().GenBashCompletionV2(out, true)
	case "zsh":
		err = cmd.Root().GenZshCompletion(out)
	case "fish":
		err = cmd.Root().GenFishCompletion(out, true)
	case "powershell":
		err = cmd.Root().GenPowerShellCompletionWithDesc(out)
	}
	return errors.Wrapf(err, "could not generate the %s completion script", args[0])
}
