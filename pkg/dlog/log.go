// Package dlog provides the daemon's shared structured logger.
package dlog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is the global logger instance used by every package in this repo.
var Logger = logrus.New()

func init() {
	Logger.SetOutput(os.Stderr)
	Logger.SetLevel(logrus.InfoLevel)
	Logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
}

// SetLevel sets the logging level from a level name (e.g. "debug", "warn").
func SetLevel(level string) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}
	Logger.SetLevel(lvl)
	return nil
}

// SetOutput sets the log output destination.
func SetOutput(w io.Writer) {
	Logger.SetOutput(w)
}

// SetJSONFormat switches to structured JSON log lines, useful when the
// daemon runs under a supervisor that collects JSON logs.
func SetJSONFormat() {
	Logger.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: "2006-01-02T15:04:05Z07:00",
	})
}

// WithField returns an entry with a single field attached.
func WithField(key string, value interface{}) *logrus.Entry {
	return Logger.WithField(key, value)
}

// WithFields returns an entry with multiple fields attached.
func WithFields(fields logrus.Fields) *logrus.Entry {
	return Logger.WithFields(fields)
}

// WithDevice returns an entry tagged with the device host, the field every
// pool and router log line carries so `grep` on a host isolates its history.
func WithDevice(host string) *logrus.Entry {
	return Logger.WithField("device", host)
}

// WithOperation returns an entry tagged with the operation name.
func WithOperation(op string) *logrus.Entry {
	return Logger.WithField("operation", op)
}
