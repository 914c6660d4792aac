package triedb

import (
	"fmt"
	"os"

	"github.com/cockroachdb/pebble/v2"
)

// Logger is the structured logger used by the database and the tries built
// on it. *slog.Logger satisfies it.
type Logger interface {
	// Debug logs a message at the debug level with context key/value pairs
	Debug(msg string, ctx ...any)

	// Info logs a message at the info level with context key/value pairs
	Info(msg string, ctx ...any)

	// Warn logs a message at the warn level with context key/value pairs
	Warn(msg string, ctx ...any)

	// Error logs a message at the error level with context key/value pairs
	Error(msg string, ctx ...any)
}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// pebbleLogger forwards pebble's printf-style output to a Logger.
type pebbleLogger struct {
	l  Logger
	fn string
}

var _ pebble.Logger = (*pebbleLogger)(nil)

func (p *pebbleLogger) Infof(format string, args ...any) {
	p.l.Info(fmt.Sprintf(format, args...), "db", p.fn)
}

func (p *pebbleLogger) Errorf(format string, args ...any) {
	p.l.Error(fmt.Sprintf(format, args...), "db", p.fn)
}

// Fatalf logs and exits, as pebble expects the process to stop here.
func (p *pebbleLogger) Fatalf(format string, args ...any) {
	p.l.Error(fmt.Sprintf(format, args...), "db", p.fn, "fatal", true)
	os.Exit(1)
}
