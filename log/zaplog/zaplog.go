// Package zaplog adapts go.uber.org/zap to the graphmodel/log.Logger
// contract, the way the teacher wires *zap.Logger through its DI
// container (infrastructure/di/providers.go). graphstore.Open does not
// wire it: Open uses log.Nop, and a zap sink is installed by passing
// New(...) to graphstore.WithLogger.
package zaplog

import (
	"go.uber.org/zap"

	"graphmodel/log"
)

type adapter struct {
	z *zap.Logger
}

// New wraps an existing *zap.Logger.
func New(z *zap.Logger) log.Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return adapter{z: z}
}

// NewProduction builds a production zap.Logger and wraps it, for callers
// that just want a sensible default.
func NewProduction() (log.Logger, error) {
	z, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}
	return New(z), nil
}

func toZapFields(fields []log.Field) []zap.Field {
	zf := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		zf = append(zf, zap.Any(f.Key, f.Value))
	}
	return zf
}

func (a adapter) Debug(msg string, fields ...log.Field) { a.z.Debug(msg, toZapFields(fields)...) }
func (a adapter) Info(msg string, fields ...log.Field)  { a.z.Info(msg, toZapFields(fields)...) }
func (a adapter) Warn(msg string, fields ...log.Field)  { a.z.Warn(msg, toZapFields(fields)...) }
func (a adapter) Error(msg string, fields ...log.Field) { a.z.Error(msg, toZapFields(fields)...) }

func (a adapter) With(fields ...log.Field) log.Logger {
	return adapter{z: a.z.With(toZapFields(fields)...)}
}
