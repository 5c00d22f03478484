package common

import (
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
)

// testWriter sends each log line to t.Log, so output only shows for failed or
// verbose tests.
type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(d []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(d), "\n"))
	return len(d), nil
}

// NewTestLogger returns a logrus Logger that writes through t.Log at the given
// level.
func NewTestLogger(t testing.TB, level logrus.Level) *logrus.Logger {
	logger := logrus.New()
	logger.Out = testWriter{t: t}
	logger.Level = level
	return logger
}

// NewTestEntry is the debug-level test logger wrapped in an Entry, which is
// what most constructors take.
func NewTestEntry(t testing.TB) *logrus.Entry {
	return logrus.NewEntry(NewTestLogger(t, logrus.DebugLevel))
}
