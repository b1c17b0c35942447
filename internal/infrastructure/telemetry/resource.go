// Package telemetry provides OpenTelemetry tracing, the OTLP log bridge and Prometheus metrics.
package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

// Collector addresses the OTLP gRPC collector shared by the trace and log pipelines.
type Collector struct {
	Endpoint       string
	Insecure       bool
	ServiceName    string
	ServiceVersion string
}

func (c Collector) resource() (*resource.Resource, error) {
	version := c.ServiceVersion
	if version == "" {
		version = "dev"
	}
	res, err := resource.Merge(resource.Default(), resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(c.ServiceName),
		semconv.ServiceVersion(version),
	))
	if err != nil {
		return nil, fmt.Errorf("build otel resource: %w", err)
	}
	return res, nil
}

// shutdown runs fn with a bounded deadline. A nil fn means the pipeline never started.
func shutdown(ctx context.Context, log *zap.Logger, pipeline string, fn func(context.Context) error) error {
	if fn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		log.Error("Telemetry shutdown failed", zap.String("pipeline", pipeline), zap.Error(err))
		return fmt.Errorf("shutdown %s provider: %w", pipeline, err)
	}
	log.Debug("Telemetry pipeline flushed", zap.String("pipeline", pipeline))
	return nil
}
