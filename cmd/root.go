package cmd

import (
	"os"

	"github.com/crytic/bytereactor/logging"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

// cmdLogger is the logger used by the cmd package
var cmdLogger = logging.NewLogger(zerolog.InfoLevel)

var rootCmd = &cobra.Command{
	Use:   "bytereactor",
	Short: "Compiles, caches and loads smart contract artifacts on demand",
	Long:  "bytereactor compiles source units on demand and loads the produced artifacts into isolated scopes",
}

func init() {
	cmdLogger.AddWriter(os.Stdout, logging.UNSTRUCTURED, true)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
