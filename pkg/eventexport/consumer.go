package eventexport

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const consumerName = "event-tail"

// Exported is one event as written by the Dispatcher, plus where it was read from.
type Exported struct {
	Type          string          `json:"type"`
	EventID       string          `json:"eventId"`
	CorrelationID string          `json:"correlationId"`
	OrderKey      string          `json:"orderId"`
	Partition     int             `json:"partition"`
	Offset        int64           `json:"offset"`
	Data          json.RawMessage `json:"data"`
}

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Sink receives every exported event once.
type Sink func(ctx context.Context, ev Exported) error

type Consumer struct {
	log    *slog.Logger
	reader Reader
	idem   idempotency.Checker
	sink   Sink
	tracer trace.Tracer
}

func NewReader(brokers []string, topic, group string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
}

func NewConsumer(log *slog.Logger, reader Reader, idem idempotency.Checker, sink Sink) *Consumer {
	return &Consumer{
		log:    log.With("component", consumerName),
		reader: reader,
		idem:   idem,
		sink:   sink,
		tracer: otel.Tracer(consumerName),
	}
}

// Run reads until ctx ends. A cancelled context is a clean stop.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if err := c.Handle(ctx, msg); err != nil {
			c.log.Error("exported event not handled", "offset", msg.Offset, "err", err)
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			return err
		}
	}
}

// Handle decodes one message and hands it to the sink unless its event id was seen before.
func (c *Consumer) Handle(ctx context.Context, msg kafka.Message) error {
	msgCtx, meta := tracing.ExtractEventHeaders(ctx, msg.Headers)
	eventID := meta.EventID
	if eventID == "" {
		return errors.New("message has no event_id header")
	}
	seen, err := c.idem.Seen(ctx, idempotency.EventKey(consumerName, eventID))
	if err != nil {
		return err
	}
	if seen {
		c.log.Info("duplicate message skipped", "event_id", eventID)
		return nil
	}

	msgCtx, span := c.tracer.Start(msgCtx, "ConsumeExportedEvent")
	defer span.End()

	var rec struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(msg.Value, &rec); err != nil {
		return err
	}
	return c.sink(msgCtx, Exported{
		Type:          rec.Type,
		EventID:       eventID,
		CorrelationID: meta.CorrelationID,
		OrderKey:      string(msg.Key),
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Data:          rec.Data,
	})
}
