// Package middleware provides the HTTP middleware of the order API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig configures the otelgin wrapper
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig opens one server span per request through otelgin.
// Span names follow "METHOD route", e.g. "PATCH /api/v1/orders/:id/approve".
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanErrorMarker flags the request span as failed for 4xx and 5xx answers.
// It must run inside TracingWithConfig.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		status := c.Writer.Status()
		span := trace.SpanFromContext(c.Request.Context())
		if status < http.StatusBadRequest || !span.IsRecording() {
			return
		}
		span.SetAttributes(attribute.Int("http.status_code", status))
		span.SetStatus(codes.Error, http.StatusText(status))
	}
}

// TracingAttributeInjector tags the span with the request id and the caller uid.
// Mount it after Authenticate.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if who, ok := GetIdentity(c); ok {
				span.SetAttributes(attribute.String("actor.uid", who.UID))
			}
		}
		c.Next()
	}
}
