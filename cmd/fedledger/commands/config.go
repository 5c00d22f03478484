package commands

import (
	"github.com/fedledger/fedledger/src/config"
)

//CLIConfig contains configuration for the Run command
type CLIConfig struct {
	FedLedger config.Config `mapstructure:",squash"`
}

//NewDefaultCLIConfig creates a CLIConfig with default values
func NewDefaultCLIConfig() *CLIConfig {
	return &CLIConfig{
		FedLedger: *config.NewDefaultConfig(),
	}
}
