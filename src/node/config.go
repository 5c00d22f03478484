package node

import (
	"testing"

	"github.com/fedledger/fedledger/src/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Config holds the node options that are not owned by the ledger.
type Config struct {
	// TxRate is the number of inbound Tx messages admitted per second. Zero
	// or less disables throttling.
	TxRate float64 `mapstructure:"tx-rate"`

	// TxBurst is the size of the token bucket.
	TxBurst int `mapstructure:"tx-burst"`

	Logger *logrus.Entry
}

// NewConfig ...
func NewConfig(txRate float64, txBurst int, logger *logrus.Entry) *Config {
	return &Config{
		TxRate:  txRate,
		TxBurst: txBurst,
		Logger:  logger,
	}
}

// DefaultConfig ...
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		TxRate:  100,
		TxBurst: 20,
		Logger:  logrus.NewEntry(logger),
	}
}

// TestConfig returns the default configuration with logs going to t.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestEntry(t)
	return config
}

func (c *Config) limiter() *rate.Limiter {
	if c.TxRate <= 0 {
		return rate.NewLimiter(rate.Inf, c.TxBurst)
	}
	return rate.NewLimiter(rate.Limit(c.TxRate), c.TxBurst)
}
