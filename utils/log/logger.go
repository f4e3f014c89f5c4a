package log

import (
	"context"
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Pointer[zap.Logger]

func init() {
	l, _ := zap.NewProduction()
	logger.Store(l)
}

type requestIDKey struct{}

// SetLogger replaces the process logger. Called once from main after the
// configuration is loaded.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}

// L returns the process logger.
func L() *zap.Logger {
	return logger.Load()
}

// ContextWithRequestID attaches id so WithCtx can tag log lines with it.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request id stored in ctx, if any.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

func WithCtx(ctx context.Context) *zap.Logger {
	fields := []zap.Field{}

	if id := RequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}

	return L().With(fields...)
}

func With(fields ...zap.Field) *zap.Logger {
	return L().With(fields...)
}
