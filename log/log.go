// Package log declares the narrow logging contract the rest of the
// module depends on. Per design, the OGM treats logging as an external
// sink: it never owns where logs go, only what gets logged and at what
// level. graphmodel/log/zaplog provides the default zap-backed sink.
package log

// Logger is the structured, leveled logging contract every package in
// this module accepts (never a concrete *zap.Logger), so the facade can
// be wired to any sink a caller prefers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)

	// With returns a Logger that always includes the given fields,
	// mirroring zap.Logger.With.
	With(fields ...Field) Logger
}

// Field is a single structured key-value pair.
type Field struct {
	Key   string
	Value any
}

// F constructs a Field.
func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Nop is a Logger that discards everything; used as the default when no
// logger is configured, so call sites never need a nil check.
var Nop Logger = nopLogger{}

type nopLogger struct{}

func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}
func (n nopLogger) With(...Field) Logger { return n }
