package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLoggerProvider_Disabled(t *testing.T) {
	ctx := context.Background()
	lp, err := NewLoggerProvider(ctx, LogsConfig{
		Collector: Collector{Endpoint: "localhost:4317", ServiceName: "garmentflow-test"},
	}, zap.NewNop())
	require.NoError(t, err)

	assert.False(t, lp.Enabled())
	assert.False(t, lp.Core("garmentflow", zapcore.DebugLevel).Enabled(zapcore.ErrorLevel))
	assert.NoError(t, lp.Shutdown(ctx))
	assert.NoError(t, lp.Shutdown(ctx))

	var missing *LoggerProvider
	assert.False(t, missing.Core("garmentflow", zapcore.InfoLevel).Enabled(zapcore.ErrorLevel))
}

func TestLoggerProvider_CoreLevel(t *testing.T) {
	ctx := context.Background()
	// the gRPC exporter dials lazily, no collector needed
	lp, err := NewLoggerProvider(ctx, LogsConfig{
		Enabled:   true,
		Collector: Collector{Endpoint: "localhost:19999", Insecure: true, ServiceName: "garmentflow-test"},
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = lp.Shutdown(ctx) })
	require.True(t, lp.Enabled())

	debug := lp.Core("garmentflow", zapcore.DebugLevel)
	assert.True(t, debug.Enabled(zapcore.DebugLevel))

	warn := lp.Core("garmentflow", zapcore.WarnLevel)
	assert.False(t, warn.Enabled(zapcore.InfoLevel))
	assert.True(t, warn.Enabled(zapcore.WarnLevel))
	assert.True(t, warn.Enabled(zapcore.ErrorLevel))
}
