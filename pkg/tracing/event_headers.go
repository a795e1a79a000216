package tracing

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
)

const (
	HeaderEventType     = "event_type"
	HeaderEventID       = "event_id"
	HeaderCorrelationID = "correlation_id"
	TraceparentHeader   = "traceparent"
)

// EventHeaders is the identity of an event as carried on a Kafka message.
type EventHeaders struct {
	Type          string
	EventID       string
	CorrelationID string
}

// headerCarrier lets the otel propagator read and write kafka headers in place.
type headerCarrier struct {
	headers *[]kafka.Header
}

func (c headerCarrier) Get(key string) string {
	for _, h := range *c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range *c.headers {
		if h.Key == key {
			(*c.headers)[i].Value = []byte(value)
			return
		}
	}
	*c.headers = append(*c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(*c.headers))
	for _, h := range *c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

// InjectEventHeaders stamps the event's type, id and correlation id, followed
// by the trace context of ctx.
func InjectEventHeaders(ctx context.Context, ev eventbus.Event) []kafka.Header {
	meta := ev.Meta()
	headers := []kafka.Header{
		{Key: HeaderEventType, Value: []byte(ev.EventType())},
		{Key: HeaderEventID, Value: []byte(meta.EventID)},
		{Key: HeaderCorrelationID, Value: []byte(meta.CorrelationID)},
	}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier{headers: &headers})
	return headers
}

// ExtractEventHeaders is the reverse of InjectEventHeaders. Missing headers
// come back empty.
func ExtractEventHeaders(ctx context.Context, headers []kafka.Header) (context.Context, EventHeaders) {
	c := headerCarrier{headers: &headers}
	return otel.GetTextMapPropagator().Extract(ctx, c), EventHeaders{
		Type:          c.Get(HeaderEventType),
		EventID:       c.Get(HeaderEventID),
		CorrelationID: c.Get(HeaderCorrelationID),
	}
}
