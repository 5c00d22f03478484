// Package config defines the configuration for a fedledger node.
//
// Regardless of how fedledger is started, directly from Go code or as a
// standalone process from the command line, it uses the Config object defined
// in this package to store and forward configuration options. On top of these
// options, a node relies on a data directory, defined by Config.DataDir, where
// it expects to find:
//
//  federation.json // (optional) the Federation, its Organizations and their addresses.
//  fedledger.toml // (optional) configuration values, when started from the CLI.
//  badger_db // the transaction database, when Store is set.
package config
