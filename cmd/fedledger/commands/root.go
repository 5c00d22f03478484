package commands

import (
	"github.com/spf13/cobra"
)

var (
	_config = NewDefaultCLIConfig()
)

//RootCmd is the root command for FedLedger
var RootCmd = &cobra.Command{
	Use:              "fedledger",
	Short:            "federated transaction ledger",
	TraverseChildren: true,
}
