package logging

import (
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// SubComponentField names the field used to distinguish workers within a
// component's log output.
const SubComponentField = "worker"

type Setter func(*logrus.Logger) error

var root = struct {
	logger *logrus.Logger
	mutex  *sync.Mutex
}{
	logger: func() *logrus.Logger {
		l := logrus.New()

		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})

		return l
	}(),
	mutex: &sync.Mutex{},
}

type Logger interface {
	logrus.FieldLogger

	Writer() *io.PipeWriter
	WriterLevel(logrus.Level) *io.PipeWriter
}

// SubLogger is the narrower logger handed to helpers that only emit entries.
type SubLogger interface {
	logrus.FieldLogger
}

// New returns a Logger for the named component. Setters are applied to the
// shared root logger before the component logger is derived.
func New(component string, setters ...Setter) Logger {
	for _, setter := range setters {
		if err := Set(setter); err != nil {
			root.logger.WithError(err).Warn("unable to apply logger setting")
		}
	}
	return root.logger.WithField("component", component)
}

// Set applies setter to the root logger.
func Set(setter Setter) error {
	root.mutex.Lock()
	err := setter(root.logger)
	root.mutex.Unlock()
	return err
}

// Level returns a Setter for the named level, falling back to debug when the
// level cannot be parsed.
func Level(lvl string) Setter {
	l, err := logrus.ParseLevel(lvl)
	if err != nil {
		root.logger.WithError(err).Errorf("unable to parse provided level %q", lvl)
		l = logrus.DebugLevel
	}
	return func(r *logrus.Logger) error {
		r.SetLevel(l)
		return nil
	}
}

// Output returns a Setter that redirects all entries to w.
func Output(w io.Writer) Setter {
	return func(r *logrus.Logger) error {
		r.SetOutput(w)
		return nil
	}
}
