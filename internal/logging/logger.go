// Package logging carries a leveled, structured logger through contexts.
package logging

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/bombsimon/logrusr/v4"
	"github.com/go-logr/logr"
	"github.com/sirupsen/logrus"
)

type Level uint32

const (
	ErrorLevel = Level(logrus.ErrorLevel)
	InfoLevel  = Level(logrus.InfoLevel)
	DebugLevel = Level(logrus.DebugLevel)
	TraceLevel = Level(logrus.TraceLevel)
)

// Format selects how log entries are rendered.
type Format string

const (
	TextFormat Format = "text"
	JSONFormat Format = "json"
)

type loggerContextKey struct{}

var globalLogger *Logger

func init() {
	level, err := ParseLevel(envOr("LOG_LEVEL", "INFO"))
	if err != nil {
		panic(err)
	}
	format, err := ParseFormat(envOr("LOG_FORMAT", string(TextFormat)))
	if err != nil {
		panic(err)
	}
	globalLogger = New(Options{Level: level, Format: format, Output: os.Stderr})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// ParseLevel parses a level name. Only the levels logr can express are
// accepted.
func ParseLevel(s string) (Level, error) {
	level, err := logrus.ParseLevel(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	switch level {
	case logrus.ErrorLevel, logrus.InfoLevel, logrus.DebugLevel, logrus.TraceLevel:
	default:
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return Level(level), nil
}

// ParseFormat parses a format name, ignoring case.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case TextFormat, JSONFormat:
		return f, nil
	default:
		return "", fmt.Errorf("invalid log format %q", s)
	}
}

// Options configure a new Logger. The zero value logs at the error level as
// text to stderr.
type Options struct {
	Level  Level
	Format Format
	Output io.Writer
}

// Logger is a wrapper around logr.Logger that provides a more ergonomic API.
type Logger struct {
	callStackHelper func()
	logger          logr.Logger
}

// Wrap returns a new *Logger that wraps the provided logr.Logger.
func Wrap(logrLogger logr.Logger) *Logger {
	logger := &Logger{}
	logger.callStackHelper, logger.logger = logrLogger.WithCallStackHelper()
	return logger
}

// New returns a *Logger configured by opts.
func New(opts Options) *Logger {
	logrusLogger := logrus.New()
	if opts.Output != nil {
		logrusLogger.SetOutput(opts.Output)
	}
	if opts.Format == JSONFormat {
		logrusLogger.SetFormatter(&logrus.JSONFormatter{})
	}
	logrusLogger.SetLevel(logrus.Level(opts.Level))
	return Wrap(logrusr.New(logrusLogger))
}

// NewLogger returns a new *Logger with the provided log level.
func NewLogger(level Level) *Logger {
	return New(Options{Level: level})
}

// NewLoggerWithOutput returns a new text *Logger with the provided log level
// that writes to w.
func NewLoggerWithOutput(level Level, w io.Writer) *Logger {
	return New(Options{Level: level, Output: w})
}

// ContextWithLogger returns a context.Context that has been augmented with
// the provided *Logger.
func ContextWithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerContextKey{}, logger)
}

// LoggerFromContext returns the *Logger of ctx, or the global one.
func LoggerFromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerContextKey{}).(*Logger); ok && logger != nil {
		return logger
	}
	return globalLogger
}

// SetGlobal replaces the logger returned for contexts that carry none.
func SetGlobal(logger *Logger) {
	if logger != nil {
		globalLogger = logger
	}
}

// Error logs a message at the error level.
func (l *Logger) Error(err error, msg string, keysAndValues ...any) {
	l.callStackHelper()
	l.logger.Error(err, msg, keysAndValues...)
}

// Info logs a message at the info level.
func (l *Logger) Info(msg string, keysAndValues ...any) {
	l.callStackHelper()
	l.logger.Info(msg, keysAndValues...)
}

// Debug logs a message at the debug level.
func (l *Logger) Debug(msg string, keysAndValues ...any) {
	l.callStackHelper()
	l.logger.V(1).Info(msg, keysAndValues...)
}

// Trace logs a message at the trace level.
func (l *Logger) Trace(msg string, keysAndValues ...any) {
	l.callStackHelper()
	l.logger.V(2).Info(msg, keysAndValues...)
}

// GetLogger returns the underlying logr.Logger.
func (l *Logger) GetLogger() logr.Logger {
	return l.logger
}

// WithValues adds key-value pairs to a logger's context.
func (l *Logger) WithValues(keysAndValues ...any) *Logger {
	return &Logger{
		callStackHelper: l.callStackHelper,
		logger:          l.logger.WithValues(keysAndValues...),
	}
}
