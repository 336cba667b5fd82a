package logger

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with the action-chaining API used across the
// service. Every entry carries the service name and hostname.
type Logger struct {
	zl zerolog.Logger
}

// New builds a JSON logger for the given service. The level is taken from
// LOG_LEVEL (debug|info|warn|error), defaulting to info.
func New(service string) *Logger {
	hostname, _ := os.Hostname()

	level := zerolog.InfoLevel
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	zl := zerolog.New(os.Stdout).
		Level(level).
		With().
		Timestamp().
		Str("service", service).
		Str("hostname", hostname).
		Logger()

	return &Logger{zl: zl}
}

// Nop returns a logger that discards everything. Used by tests.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// Action returns a child logger tagged with the given action name.
func (l *Logger) Action(action string) *Logger {
	return &Logger{zl: l.zl.With().Str("action", action).Logger()}
}

// With returns a child logger carrying the given key/value pairs.
func (l *Logger) With(kv ...any) *Logger {
	return &Logger{zl: l.zl.With().Fields(kv).Logger()}
}

func (l *Logger) Info(msg string, kv ...any) {
	l.zl.Info().Fields(kv).Msg(msg)
}

func (l *Logger) Debug(msg string, kv ...any) {
	l.zl.Debug().Fields(kv).Msg(msg)
}

func (l *Logger) Warn(msg string, kv ...any) {
	l.zl.Warn().Fields(kv).Msg(msg)
}

func (l *Logger) Error(msg string, err error, kv ...any) {
	l.zl.Error().Err(err).Fields(kv).Msg(msg)
}
