// Package ctxutil carries a small set of request-scoped values through
// context.Context, generalized from pkg/common/context.go's
// correlation-id/actor propagation down to two helpers: a request id
// for log correlation and a thin per-call timeout wrapper. No other
// package in this module reads these values; they are for callers.
package ctxutil

import (
	"context"
	"time"
)

type ctxKey int

const (
	requestIDKey ctxKey = iota
)

// WithRequestID attaches a correlation id to ctx, readable back with
// RequestID. The execution layer does not add it to its log lines.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the correlation id set by WithRequestID, or "" if
// none was set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithTimeout is a thin wrapper over context.WithTimeout kept here so
// callers depend on one ctxutil import instead of juggling context and
// ctxutil separately at call sites that set both a request id and a
// deadline.
func WithTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d)
}
