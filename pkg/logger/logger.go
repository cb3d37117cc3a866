// Package logger provides structured logging for the catalog service.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LoggingConfig controls the behaviour of a Logger.
type LoggingConfig struct {
	Level  string
	Format string // "json" or "text"
	Output string // "stdout", "stderr" or a file path
}

// Logger wraps a logrus entry so every line carries the service field.
type Logger struct {
	*logrus.Entry
}

// New creates a logger from the given configuration.
func New(service string, cfg LoggingConfig) *Logger {
	base := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		level = logrus.InfoLevel
	}
	base.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "text":
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		base.SetFormatter(&logrus.JSONFormatter{})
	}

	base.SetOutput(resolveOutput(cfg.Output))

	return &Logger{Entry: base.WithField("service", service)}
}

// NewDefault returns an info-level JSON logger writing to stdout.
func NewDefault(service string) *Logger {
	return New(service, LoggingConfig{Level: "info", Format: "json", Output: "stdout"})
}

// WithField returns a logger with an additional field attached.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithFields returns a logger with additional fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithError returns a logger with the error attached as a field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

func resolveOutput(output string) io.Writer {
	switch strings.ToLower(strings.TrimSpace(output)) {
	case "", "stdout":
		return os.Stdout
	case "stderr":
		return os.Stderr
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return os.Stdout
		}
		return f
	}
}
