// Package logger wraps logrus behind a small structured-logging interface
// shared by every component of the service.
package logger

import (
	"io"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"
)

// LogField is a single structured key/value pair. Values are pre-rendered to
// strings so log output stays stable across formatters.
type LogField struct {
	Key   string
	Value string
}

// Logger is the logging surface handed to every component.
type Logger interface {
	Info(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
	Debug(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	WithFields(fields ...LogField) Logger
	WithCorrelationID(id string) Logger
	HTTPMiddleware(next http.Handler) http.Handler
}

// Config represents logger configuration
type Config struct {
	Level   Level
	Format  string    // "json" (default) or "text"
	Service string    // added as the "service" field when set
	Output  io.Writer // defaults to os.Stdout
}

type logger struct {
	entry  *logrus.Logger
	fields []LogField
}

// NewLogger creates a logger from cfg.
func NewLogger(cfg Config) Logger {
	l := logrus.New()

	if cfg.Format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	if cfg.Output != nil {
		l.SetOutput(cfg.Output)
	} else {
		l.SetOutput(os.Stdout)
	}

	l.SetLevel(cfg.Level.logrusLevel())

	var base []LogField
	if cfg.Service != "" {
		base = append(base, StringField("service", cfg.Service))
	}

	return &logger{entry: l, fields: base}
}

// NewNopLogger returns a logger that discards everything. Handy in tests.
func NewNopLogger() Logger {
	return NewLogger(Config{Level: ErrorLevel, Output: io.Discard})
}

// WithFields returns a child logger; the receiver is left untouched.
func (l *logger) WithFields(fields ...LogField) Logger {
	merged := make([]LogField, 0, len(l.fields)+len(fields))
	merged = append(merged, l.fields...)
	merged = append(merged, fields...)
	return &logger{entry: l.entry, fields: merged}
}

// WithCorrelationID returns a child logger tagged with the correlation id.
func (l *logger) WithCorrelationID(id string) Logger {
	return l.WithFields(CorrelationIDField(id))
}

func (l *logger) Info(msg string, fields ...LogField)  { l.log(logrus.InfoLevel, msg, fields) }
func (l *logger) Error(msg string, fields ...LogField) { l.log(logrus.ErrorLevel, msg, fields) }
func (l *logger) Debug(msg string, fields ...LogField) { l.log(logrus.DebugLevel, msg, fields) }
func (l *logger) Warn(msg string, fields ...LogField)  { l.log(logrus.WarnLevel, msg, fields) }

func (l *logger) log(level logrus.Level, msg string, fields []LogField) {
	if !l.entry.IsLevelEnabled(level) {
		return
	}
	out := make(logrus.Fields, len(l.fields)+len(fields))
	for _, f := range l.fields {
		out[f.Key] = f.Value
	}
	for _, f := range fields {
		out[f.Key] = f.Value
	}
	l.entry.WithFields(out).Log(level, msg)
}
