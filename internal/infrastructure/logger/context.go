package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	actorUIDKey  contextKey = "actor_uid"
	actorRoleKey contextKey = "actor_role"
)

// WithContext returns a new context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request id in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActor stores the authenticated caller in ctx
func WithActor(ctx context.Context, uid, role string) context.Context {
	ctx = context.WithValue(ctx, actorUIDKey, uid)
	return context.WithValue(ctx, actorRoleKey, role)
}

// GetRequestID retrieves the request id from context
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// GetActorUID retrieves the caller uid from context
func GetActorUID(ctx context.Context) string {
	v, _ := ctx.Value(actorUIDKey).(string)
	return v
}

// L returns the context logger enriched with trace, request and actor fields.
//
//	logger.L(ctx).Info("order approved", zap.String("order_id", id))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the context's correlation fields to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		l = l.With(
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		l = l.With(zap.String("request_id", id))
	}
	if uid := GetActorUID(ctx); uid != "" {
		l = l.With(zap.String("actor_uid", uid))
	}
	if role, _ := ctx.Value(actorRoleKey).(string); role != "" {
		l = l.With(zap.String("actor_role", role))
	}
	return l
}
