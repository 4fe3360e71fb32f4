package datalake

import (
	"io"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Statter is the interface for recording metrics. Names are dotted, e.g.
// "ingest.records".
type Statter interface {
	Count(name string, value int64, rate float64, tags ...string)
	Gauge(name string, value float64, rate float64, tags ...string)
	Histogram(name string, value float64, rate float64, tags ...string)
	Set(name string, value string, rate float64, tags ...string)
	Timing(name string, value time.Duration, rate float64, tags ...string)
}

// NopStatter is a Statter that does nothing.
type NopStatter struct{}

func (NopStatter) Count(name string, value int64, rate float64, tags ...string) {}

func (NopStatter) Gauge(name string, value float64, rate float64, tags ...string) {}

func (NopStatter) Histogram(name string, value float64, rate float64, tags ...string) {}

func (NopStatter) Set(name string, value string, rate float64, tags ...string) {}

func (NopStatter) Timing(name string, value time.Duration, rate float64, tags ...string) {}

// Logger is the logging interface used throughout datalake. A
// logrus.FieldLogger satisfies it.
type Logger interface {
	Printf(format string, v ...interface{})
	Debugf(format string, v ...interface{})
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Printf(format string, v ...interface{}) {}

func (NopLogger) Debugf(format string, v ...interface{}) {}

// StdLogger logs Printf calls and drops Debugf calls.
type StdLogger struct {
	*logrus.Logger
}

// NewStdLogger returns a StdLogger writing text lines to w.
func NewStdLogger(w io.Writer) StdLogger {
	return StdLogger{Logger: newLogrus(w, logrus.InfoLevel)}
}

func (s StdLogger) Printf(format string, v ...interface{}) {
	s.Logger.Infof(format, v...)
}

func (StdLogger) Debugf(format string, v ...interface{}) {}

// VerboseLogger logs both Printf and Debugf calls.
type VerboseLogger struct {
	*logrus.Logger
}

// NewVerboseLogger returns a VerboseLogger writing text lines to w.
func NewVerboseLogger(w io.Writer) VerboseLogger {
	return VerboseLogger{Logger: newLogrus(w, logrus.DebugLevel)}
}

func (s VerboseLogger) Printf(format string, v ...interface{}) {
	s.Logger.Infof(format, v...)
}

func (s VerboseLogger) Debugf(format string, v ...interface{}) {
	s.Logger.Debugf(format, v...)
}

// WithField returns a Logger which attaches key=value to every line. Loggers
// which aren't backed by logrus are returned unchanged.
func WithField(l Logger, key string, value interface{}) Logger {
	switch ll := l.(type) {
	case StdLogger:
		return stdEntry{ll.Logger.WithField(key, value)}
	case VerboseLogger:
		return ll.Logger.WithField(key, value)
	case stdEntry:
		return stdEntry{ll.Entry.WithField(key, value)}
	case *logrus.Entry:
		return ll.WithField(key, value)
	}
	return l
}

// stdEntry keeps StdLogger's behaviour of dropping debug lines after fields
// have been attached.
type stdEntry struct {
	*logrus.Entry
}

func (s stdEntry) Printf(format string, v ...interface{}) {
	s.Entry.Infof(format, v...)
}

func (stdEntry) Debugf(format string, v ...interface{}) {}

// OpenLogger returns a VerboseLogger if verbose is set and a StdLogger
// otherwise, writing to the file at logPath or to stderr if logPath is empty.
func OpenLogger(logPath string, verbose bool) (Logger, error) {
	var out io.Writer = os.Stderr
	if logPath != "" {
		f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return nil, errors.Wrap(err, "opening log file")
		}
		out = f
	}
	if verbose {
		return NewVerboseLogger(out), nil
	}
	return NewStdLogger(out), nil
}

func newLogrus(w io.Writer, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}
