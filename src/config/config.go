package config

import (
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/fedledger/fedledger/src/common"
	"github.com/fedledger/fedledger/src/dag"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database
	DefaultBadgerFile = "badger_db"

	// DefaultPeersFile is the default name of the file describing the
	// Federation and the addresses of its Organizations.
	DefaultPeersFile = "federation.json"
)

// Default configuration values.
const (
	DefaultLogLevel        = "debug"
	DefaultBindAddr        = "127.0.0.1:1337"
	DefaultServiceAddr     = "127.0.0.1:8000"
	DefaultTCPTimeout      = 1000 * time.Millisecond
	DefaultValidateTimeout = 5000 * time.Millisecond
	DefaultMaxPool         = 2
	DefaultWindowSize      = 10
	DefaultPeerTimeout     = 1000 * time.Millisecond
	DefaultParentPolicy    = "accept-orphan"
	DefaultDeferTTL        = 30 * time.Second
	DefaultStore           = false
	DefaultFederation      = "test"
	DefaultTxRate          = 100
	DefaultTxBurst         = 20
)

// Config contains all the configuration properties of a fedledger node.
type Config struct {
	// DataDir is the top-level directory containing the configuration and
	// data
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, also writes info and debug entries to this file.
	LogFile string `mapstructure:"log-file"`

	// BindAddr is the local address:port where this node exchanges messages
	// with other nodes.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes.
	AdvertiseAddr string `mapstructure:"advertise"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceAddr is the address:port of the optional HTTP service.
	ServiceAddr string `mapstructure:"service-listen"`

	// MaxPool controls how many connections are pooled per target.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// ValidateTimeout is the timeout of ValidationRequests, which wait for a
	// quorum on the remote side.
	ValidateTimeout time.Duration `mapstructure:"validate-timeout"`

	// WindowSize is the number of confirmed transactions kept in the
	// streaming window.
	WindowSize int `mapstructure:"window-size"`

	// PeerTimeout bounds the wait for each vote of a distributed validation.
	PeerTimeout time.Duration `mapstructure:"peer-timeout"`

	// ParentPolicy is one of accept-orphan, reject or defer.
	ParentPolicy string `mapstructure:"parent-policy"`

	// DeferTTL is how long a transaction waits for missing parents under the
	// defer policy.
	DeferTTL time.Duration `mapstructure:"defer-ttl"`

	// Store activates persistant storage.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	// Federation is the handle of the Federation created when no peers file
	// exists.
	Federation string `mapstructure:"federation"`

	// Organization is the handle of the Organization this node speaks for.
	Organization string `mapstructure:"organization"`

	// Seed seeds the identifier generator. Zero seeds from the clock.
	Seed int64 `mapstructure:"seed"`

	// TxRate is the number of inbound transactions admitted per second.
	TxRate float64 `mapstructure:"tx-rate"`

	// TxBurst is the burst size of the inbound transaction throttle.
	TxBurst int `mapstructure:"tx-burst"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:         DefaultDataDir(),
		LogLevel:        DefaultLogLevel,
		BindAddr:        DefaultBindAddr,
		ServiceAddr:     DefaultServiceAddr,
		MaxPool:         DefaultMaxPool,
		TCPTimeout:      DefaultTCPTimeout,
		ValidateTimeout: DefaultValidateTimeout,
		WindowSize:      DefaultWindowSize,
		PeerTimeout:     DefaultPeerTimeout,
		ParentPolicy:    DefaultParentPolicy,
		DeferTTL:        DefaultDeferTTL,
		Store:           DefaultStore,
		DatabaseDir:     DefaultDatabaseDir(),
		Federation:      DefaultFederation,
		TxRate:          DefaultTxRate,
		TxBurst:         DefaultTxBurst,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	return config
}

// SetDataDir sets the top-level directory, and updates the database
// directory if it is currently set to the default value. If the database
// directory is not currently the default, it means the user has explicitely
// set it to something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// PeersFile returns the full path of the federation directory file.
func (c *Config) PeersFile() string {
	return filepath.Join(c.DataDir, DefaultPeersFile)
}

// Policy parses ParentPolicy.
func (c *Config) Policy() (dag.ParentPolicy, error) {
	return dag.ParsePolicy(c.ParentPolicy)
}

// Logger returns a formatted logrus Entry, with prefix set to "fedledger".
func (c *Config) Logger() *logrus.Entry {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(lfshook.NewHook(
				lfshook.PathMap{
					logrus.InfoLevel:  c.LogFile,
					logrus.DebugLevel: c.LogFile,
				},
				&logrus.TextFormatter{},
			))
		}
	}
	return c.logger.WithField("prefix", "fedledger")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config
// based on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".FedLedger")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "FedLedger")
		} else {
			return filepath.Join(home, ".fedledger")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
