// Package eventexport forwards bus events to Kafka so systems outside the
// process can observe order journeys. Delivery is best effort.
package eventexport

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/tracing"
	"github.com/segmentio/kafka-go"
)

const HandlerName = "kafka-export"

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log.With("component", "event-export"), producer: producer, topic: topic}
}

type record struct {
	Type string         `json:"type"`
	Data eventbus.Event `json:"data"`
}

// Register subscribes the dispatcher to every event type.
func (d *Dispatcher) Register(bus *eventbus.Bus) {
	bus.SubscribeAll(HandlerName, d.Dispatch)
}

func (d *Dispatcher) Dispatch(ctx context.Context, ev eventbus.Event) error {
	meta := ev.Meta()
	payload, err := json.Marshal(record{Type: ev.EventType(), Data: ev})
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(strconv.FormatInt(meta.OrderID, 10)),
		Value:   payload,
		Headers: tracing.InjectEventHeaders(ctx, ev),
		Time:    meta.OccurredAt,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("event export failed", "event_id", meta.EventID, "err", err)
		return err
	}
	d.log.Debug("event exported", "event_id", meta.EventID, "type", ev.EventType())
	return nil
}
