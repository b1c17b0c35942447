package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/log/global"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogsConfig enables OTLP log export.
type LogsConfig struct {
	Enabled   bool
	Collector Collector
}

// LoggerProvider owns the SDK log provider behind the zap bridge.
type LoggerProvider struct {
	sdk *sdklog.LoggerProvider
	log *zap.Logger
}

func NewLoggerProvider(ctx context.Context, cfg LogsConfig, log *zap.Logger) (*LoggerProvider, error) {
	lp := &LoggerProvider{log: log.Named("otel_logs")}
	if !cfg.Enabled {
		return lp, nil
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithEndpoint(cfg.Collector.Endpoint)}
	if cfg.Collector.Insecure {
		opts = append(opts, otlploggrpc.WithInsecure())
	}
	exporter, err := otlploggrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create log exporter: %w", err)
	}
	res, err := cfg.Collector.resource()
	if err != nil {
		return nil, err
	}

	lp.sdk = sdklog.NewLoggerProvider(
		sdklog.WithResource(res),
		sdklog.WithProcessor(sdklog.NewBatchProcessor(exporter)),
	)
	global.SetLoggerProvider(lp.sdk)
	lp.log.Info("Log export enabled", zap.String("collector", cfg.Collector.Endpoint))
	return lp, nil
}

func (lp *LoggerProvider) Enabled() bool { return lp != nil && lp.sdk != nil }

// Core bridges zap entries at or above level to the collector.
// It is a no-op core while export is disabled, so callers can always tee it.
func (lp *LoggerProvider) Core(serviceName string, level zapcore.Level) zapcore.Core {
	if !lp.Enabled() {
		return zapcore.NewNopCore()
	}
	core := otelzap.NewCore(serviceName, otelzap.WithLoggerProvider(lp.sdk))
	filtered, err := zapcore.NewIncreaseLevelCore(core, level)
	if err != nil {
		return core
	}
	return filtered
}

// Shutdown flushes buffered records.
func (lp *LoggerProvider) Shutdown(ctx context.Context) error {
	if !lp.Enabled() {
		return nil
	}
	return shutdown(ctx, lp.log, "log", lp.sdk.Shutdown)
}
