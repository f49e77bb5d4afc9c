package testoutput

import (
	"io"
	"os"
	"testing"

	"github.com/abc0922001/apkupdater/pkg/logging"
	"github.com/sirupsen/logrus"
)

// New returns a writer that writes strings (assuming lines) to the testing
// logger.
func New(t testing.TB) io.Writer {
	return &testoutput{t}
}

// Logger returns a debug level logger for component whose entries are
// interlaced with the test's output.
func Logger(t testing.TB, component string) logging.Logger {
	l := logrus.New()
	l.SetOutput(New(t))
	l.SetLevel(logrus.DebugLevel)
	return l.WithField("component", component)
}

// Setter may be given to logging to send the shared root logger's output to
// the test. Parallel tests must not use it: they'd write to the wrong test or
// to the Revert'd output.
func Setter(t testing.TB) logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(New(t))
		l.SetLevel(logrus.DebugLevel)
		return nil
	}
}

// Revert restores the root logger output to stderr.
func Revert() logging.Setter {
	return func(l *logrus.Logger) error {
		l.SetOutput(os.Stderr)
		return nil
	}
}

type testoutput struct {
	t testing.TB
}

func (l *testoutput) Write(p []byte) (n int, err error) {
	l.t.Helper()
	l.t.Logf("%s", p)
	return len(p), nil
}
