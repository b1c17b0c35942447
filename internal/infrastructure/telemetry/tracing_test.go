package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func flatten(kvs []attribute.KeyValue) map[string]string {
	m := make(map[string]string, len(kvs))
	for _, kv := range kvs {
		m[string(kv.Key)] = kv.Value.Emit()
	}
	return m
}

func TestStartAndEnd(t *testing.T) {
	sr := recordSpans(t)
	orderID := uuid.New()

	ctx, span := Start(context.Background(), "order.decide",
		SpanAttrOrderID, orderID,
		SpanAttrQuantity, 12,
		"unit_price", decimal.RequireFromString("9.50"),
		42, "ignored key",
		"dangling")
	assert.NotEmpty(t, TraceID(ctx))
	Annotate(span, SpanAttrOrderStatus, "Approved", "restocked", true)
	Event(span, "finalize_joined", "attempt", int64(2))
	End(span, nil)

	spans := sr.Ended()
	require.Len(t, spans, 1)
	got := spans[0]
	assert.Equal(t, "order.decide", got.Name())
	assert.Equal(t, trace.SpanKindInternal, got.SpanKind())
	assert.Equal(t, codes.Unset, got.Status().Code)
	assert.Equal(t, map[string]string{
		SpanAttrOrderID:     orderID.String(),
		SpanAttrQuantity:    "12",
		"unit_price":        "9.5",
		SpanAttrOrderStatus: "Approved",
		"restocked":         "true",
	}, flatten(got.Attributes()))

	require.Len(t, got.Events(), 1)
	assert.Equal(t, "finalize_joined", got.Events()[0].Name)
	assert.Equal(t, "2", flatten(got.Events()[0].Attributes)["attempt"])
}

func TestEnd_RecordsError(t *testing.T) {
	sr := recordSpans(t)

	_, span := Start(context.Background(), "order.cancel")
	End(span, errors.New("order already decided"))

	got := sr.Ended()[0]
	assert.Equal(t, codes.Error, got.Status().Code)
	assert.Equal(t, "order already decided", got.Status().Description)
	require.Len(t, got.Events(), 1)
	assert.Equal(t, "exception", got.Events()[0].Name)
}

func TestTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, TraceID(context.Background()))
}
