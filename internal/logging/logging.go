package logging

import (
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger with millisecond timestamps. An unparseable
// level falls back to info.
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	logger.SetLevel(logrus.InfoLevel)
	if level != "" {
		if parsed, err := logrus.ParseLevel(level); err == nil {
			logger.SetLevel(parsed)
		} else {
			logger.Warnf("Unknown log level %q, using info", level)
		}
	}
	return logger
}

// Level picks the effective level: LOG_LEVEL wins, then -verbose, then the
// configured default.
func Level(verbose bool, configured string) string {
	if env := os.Getenv("LOG_LEVEL"); env != "" {
		return env
	}
	if verbose {
		return "debug"
	}
	return configured
}
