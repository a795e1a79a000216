package tracing

import (
	"context"
	"testing"

	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type created struct {
	eventbus.Envelope
}

func (created) EventType() string { return "ORDER_CREATED" }

func TestEventHeadersRoundTrip(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tp := sdktrace.NewTracerProvider()
	defer func() { _ = tp.Shutdown(context.Background()) }()

	ctx, span := tp.Tracer("test").Start(context.Background(), "produce")
	defer span.End()

	ev := created{Envelope: eventbus.NewEnvelope("ORDER_CREATED", 42, 7, "corr-1")}
	headers := InjectEventHeaders(ctx, ev)
	require.Len(t, headers, 4)
	assert.Equal(t, HeaderEventType, headers[0].Key)
	assert.Equal(t, TraceparentHeader, headers[3].Key)

	extracted, meta := ExtractEventHeaders(context.Background(), headers)
	assert.Equal(t, EventHeaders{Type: "ORDER_CREATED", EventID: ev.EventID, CorrelationID: "corr-1"}, meta)
	got := trace.SpanContextFromContext(extracted)
	assert.Equal(t, span.SpanContext().TraceID(), got.TraceID())
	assert.True(t, got.IsRemote())
}

func TestExtractEventHeadersWithoutHeaders(t *testing.T) {
	otel.SetTextMapPropagator(propagation.TraceContext{})

	ctx, meta := ExtractEventHeaders(context.Background(), []kafka.Header{{Key: "other", Value: []byte("x")}})
	assert.Equal(t, EventHeaders{}, meta)
	assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
}
