package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/fedledger/fedledger/src/fedledger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

//NewRunCmd returns the command that starts a FedLedger node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadConfig,
		RunE:    runFedLedger,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runFedLedger(cmd *cobra.Command, args []string) error {
	engine := fedledger.NewFedLedger(&_config.FedLedger)

	if err := engine.Init(); err != nil {
		_config.FedLedger.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		<-sigCh
		_config.FedLedger.Logger().Info("Received interrupt, shutting down")
		engine.Shutdown()
	}()

	engine.Run()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

//AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {

	cmd.Flags().String("datadir", _config.FedLedger.DataDir, "Top-level directory for configuration and data")
	cmd.Flags().String("log", _config.FedLedger.LogLevel, "debug, info, warn, error, fatal, panic")
	cmd.Flags().String("log-file", _config.FedLedger.LogFile, "Also write info and debug logs to this file")

	// Federation
	cmd.Flags().StringP("federation", "f", _config.FedLedger.Federation, "Federation handle used when no federation.json exists")
	cmd.Flags().StringP("organization", "o", _config.FedLedger.Organization, "Handle of the Organization this node speaks for")
	cmd.Flags().Int64("seed", _config.FedLedger.Seed, "Seed of the identifier generator (0 seeds from the clock)")

	// Network
	cmd.Flags().StringP("listen", "l", _config.FedLedger.BindAddr, "Listen IP:Port for fedledger node")
	cmd.Flags().StringP("advertise", "a", _config.FedLedger.AdvertiseAddr, "Advertise IP:Port for fedledger node")
	cmd.Flags().DurationP("timeout", "t", _config.FedLedger.TCPTimeout, "TCP Timeout")
	cmd.Flags().Duration("validate-timeout", _config.FedLedger.ValidateTimeout, "Timeout of validation requests")
	cmd.Flags().Int("max-pool", _config.FedLedger.MaxPool, "Connection pool size max")

	// Service
	cmd.Flags().Bool("no-service", _config.FedLedger.NoService, "Disable HTTP service")
	cmd.Flags().StringP("service-listen", "s", _config.FedLedger.ServiceAddr, "Listen IP:Port for HTTP service")

	// Store
	cmd.Flags().Bool("store", _config.FedLedger.Store, "Use badgerDB instead of in-mem DB")
	cmd.Flags().String("db", _config.FedLedger.DatabaseDir, "Dabatabase directory")

	// Ledger configuration
	cmd.Flags().Int("window-size", _config.FedLedger.WindowSize, "Number of confirmed transactions kept in the window")
	cmd.Flags().Duration("peer-timeout", _config.FedLedger.PeerTimeout, "Wait for each vote of a distributed validation")
	cmd.Flags().String("parent-policy", _config.FedLedger.ParentPolicy, "accept-orphan, reject or defer")
	cmd.Flags().Duration("defer-ttl", _config.FedLedger.DeferTTL, "How long a transaction waits for missing parents")

	// Throttle
	cmd.Flags().Float64("tx-rate", _config.FedLedger.TxRate, "Inbound transactions admitted per second (0 disables)")
	cmd.Flags().Int("tx-burst", _config.FedLedger.TxBurst, "Burst size of the inbound transaction throttle")
}

func loadConfig(cmd *cobra.Command, args []string) error {

	err := bindFlagsLoadViper(cmd)
	if err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.FedLedger.SetDataDir(_config.FedLedger.DataDir)

	logFields := logrus.Fields{
		"fedledger.DataDir":         _config.FedLedger.DataDir,
		"fedledger.LogLevel":        _config.FedLedger.LogLevel,
		"fedledger.LogFile":         _config.FedLedger.LogFile,
		"fedledger.Federation":      _config.FedLedger.Federation,
		"fedledger.Organization":    _config.FedLedger.Organization,
		"fedledger.BindAddr":        _config.FedLedger.BindAddr,
		"fedledger.AdvertiseAddr":   _config.FedLedger.AdvertiseAddr,
		"fedledger.NoService":       _config.FedLedger.NoService,
		"fedledger.ServiceAddr":     _config.FedLedger.ServiceAddr,
		"fedledger.MaxPool":         _config.FedLedger.MaxPool,
		"fedledger.TCPTimeout":      _config.FedLedger.TCPTimeout,
		"fedledger.ValidateTimeout": _config.FedLedger.ValidateTimeout,
		"fedledger.WindowSize":      _config.FedLedger.WindowSize,
		"fedledger.PeerTimeout":     _config.FedLedger.PeerTimeout,
		"fedledger.ParentPolicy":    _config.FedLedger.ParentPolicy,
		"fedledger.DeferTTL":        _config.FedLedger.DeferTTL,
		"fedledger.Store":           _config.FedLedger.Store,
		"fedledger.TxRate":          _config.FedLedger.TxRate,
		"fedledger.TxBurst":         _config.FedLedger.TxBurst,
	}

	if _config.FedLedger.Store {
		logFields["fedledger.DatabaseDir"] = _config.FedLedger.DatabaseDir
	}

	_config.FedLedger.Logger().WithFields(logFields).Debug("RUN")

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/fedledger.toml (.json, .yaml also work)
	viper.SetConfigName("fedledger")               // name of config file (without extension)
	viper.AddConfigPath(_config.FedLedger.DataDir) // search root directory

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		_config.FedLedger.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else if _, ok := err.(viper.ConfigFileNotFoundError); ok {
		_config.FedLedger.Logger().Debugf("No config file found in: %s", _config.FedLedger.DataDir)
	} else {
		return err
	}

	// second unmarshal to read from config file
	return viper.Unmarshal(_config)
}
