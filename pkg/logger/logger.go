// Package logger is the structured logging facade over zerolog.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wonny/insiderperf/pkg/config"
)

// Fields are structured key/value pairs attached to an entry
type Fields map[string]interface{}

// Logger carries a zerolog logger with its bound fields. Derived loggers
// never mutate their parent.
// ⭐ SSOT: all logging goes through this package
type Logger struct {
	zlog zerolog.Logger
}

// New builds the process logger on stderr; stdout carries CSV results.
// ⭐ SSOT: the zerolog instance is created here only
func New(cfg *config.Config) *Logger {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter builds a logger on w. Every entry carries a timestamp and
// the deployment env.
func NewWithWriter(cfg *config.Config, w io.Writer) *Logger {
	zlog := zerolog.New(sink(cfg.LogFormat, w)).
		Level(parseLogLevel(cfg.LogLevel)).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger()
	return &Logger{zlog: zlog}
}

// Nop discards everything
func Nop() *Logger {
	return &Logger{zlog: zerolog.Nop()}
}

// sink picks human-readable console output for "console" and "pretty",
// JSON lines otherwise
func sink(format string, w io.Writer) io.Writer {
	switch strings.ToLower(format) {
	case "console", "pretty":
		return zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	default:
		return w
	}
}

// parseLogLevel falls back to info for anything zerolog does not know
func parseLogLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

func (l *Logger) derive(ctx zerolog.Context) *Logger {
	return &Logger{zlog: ctx.Logger()}
}

// WithField binds one field
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return l.derive(l.zlog.With().Interface(key, value))
}

// WithFields binds every pair in fields; keys are written sorted
func (l *Logger) WithFields(fields Fields) *Logger {
	return l.derive(l.zlog.With().Fields(map[string]interface{}(fields)))
}

// WithError binds err under "error"
func (l *Logger) WithError(err error) *Logger {
	return l.derive(l.zlog.With().Err(err))
}

// WithRun scopes the logger to one attribution run
func (l *Logger) WithRun(runID string) *Logger {
	return l.derive(l.zlog.With().Str("run_id", runID))
}

// WithInvestor scopes the logger to one investor group
func (l *Logger) WithInvestor(ownerCIK, ownerName string) *Logger {
	return l.derive(l.zlog.With().Str("owner_cik", ownerCIK).Str("owner_name", ownerName))
}

func (l *Logger) emit(level zerolog.Level, msg string) {
	l.zlog.WithLevel(level).Msg(msg)
}

// Debug logs at debug level
func (l *Logger) Debug(msg string) { l.emit(zerolog.DebugLevel, msg) }

// Info logs at info level
func (l *Logger) Info(msg string) { l.emit(zerolog.InfoLevel, msg) }

// Warn logs at warn level
func (l *Logger) Warn(msg string) { l.emit(zerolog.WarnLevel, msg) }

// Error logs at error level
func (l *Logger) Error(msg string) { l.emit(zerolog.ErrorLevel, msg) }

// Debugf formats at debug level
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.zlog.Debug().Msgf(format, args...)
}

// Infof formats at info level
func (l *Logger) Infof(format string, args ...interface{}) {
	l.zlog.Info().Msgf(format, args...)
}

// Zerolog exposes the underlying logger for packages that log through
// zerolog events directly
func (l *Logger) Zerolog() zerolog.Logger {
	return l.zlog
}
