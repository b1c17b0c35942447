package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const TracerName = "garmentflow"

// Span attribute keys.
const (
	SpanAttrOrderID       = "order_id"
	SpanAttrOrderStatus   = "order_status"
	SpanAttrProductID     = "product_id"
	SpanAttrQuantity      = "quantity"
	SpanAttrPaymentMethod = "payment_method"
	SpanAttrSessionID     = "checkout_session_id"
	SpanAttrEventType     = "event_type"
)

// Start opens an internal span on the global provider. kv alternates keys and values.
//
//	ctx, span := telemetry.Start(ctx, "order.cancel", telemetry.SpanAttrOrderID, id)
//	defer func() { telemetry.End(span, err) }()
func Start(ctx context.Context, name string, kv ...any) (context.Context, trace.Span) {
	return otel.Tracer(TracerName).Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attrs(kv)...))
}

func Annotate(span trace.Span, kv ...any) {
	span.SetAttributes(attrs(kv)...)
}

func Event(span trace.Span, name string, kv ...any) {
	span.AddEvent(name, trace.WithAttributes(attrs(kv)...))
}

// End marks the span failed when err is set, then ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// TraceID is empty when ctx carries no valid span.
func TraceID(ctx context.Context) string {
	if id := trace.SpanContextFromContext(ctx).TraceID(); id.IsValid() {
		return id.String()
	}
	return ""
}

// attrs drops pairs whose key is not a string and a trailing odd value.
func attrs(kv []any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		out = append(out, attr(key, kv[i+1]))
	}
	return out
}

func attr(key string, v any) attribute.KeyValue {
	switch v := v.(type) {
	case string:
		return attribute.String(key, v)
	case bool:
		return attribute.Bool(key, v)
	case int:
		return attribute.Int(key, v)
	case int64:
		return attribute.Int64(key, v)
	case float64:
		return attribute.Float64(key, v)
	case fmt.Stringer:
		return attribute.String(key, v.String())
	}
	return attribute.String(key, fmt.Sprint(v))
}
