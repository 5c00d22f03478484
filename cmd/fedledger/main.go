package main

import (
	"os"

	cmd "github.com/fedledger/fedledger/cmd/fedledger/commands"
)

func main() {
	rootCmd := cmd.RootCmd

	rootCmd.AddCommand(
		cmd.VersionCmd,
		cmd.NewRunCmd(),
		cmd.NewSimulateCmd(),
		cmd.NewIdentCmd(),
		cmd.NewSubmitCmd(),
	)

	//Do not print usage when error occurs
	rootCmd.SilenceUsage = true

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
