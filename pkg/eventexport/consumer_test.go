package eventexport

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
	closed    bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.msgs) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	m := r.msgs[0]
	r.msgs = r.msgs[1:]
	return m, nil
}

func (r *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func exportedMessages(t *testing.T, evs ...eventbus.Event) []kafka.Message {
	t.Helper()
	p := &fakeProducer{}
	d := NewDispatcher(slog.New(slog.NewTextHandler(io.Discard, nil)), p, "order.events")
	for _, ev := range evs {
		require.NoError(t, d.Dispatch(context.Background(), ev))
	}
	for i := range p.msgs {
		p.msgs[i].Offset = int64(i)
	}
	return p.msgs
}

func TestConsumerDeliversEachEventOnce(t *testing.T) {
	ev := shipped{Envelope: eventbus.NewEnvelope("ORDER_SHIPPED", 42, 7, "corr-9"), TrackingNumber: "UPS12345678"}
	msgs := exportedMessages(t, ev)
	msgs = append(msgs, msgs[0])
	msgs[1].Offset = 1
	reader := &fakeReader{msgs: msgs}

	var got []Exported
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), reader, idempotency.NewMemoryStore(time.Minute),
		func(_ context.Context, e Exported) error {
			got = append(got, e)
			return nil
		})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	require.NoError(t, c.Run(ctx))

	require.Len(t, got, 1)
	assert.Equal(t, "ORDER_SHIPPED", got[0].Type)
	assert.Equal(t, ev.EventID, got[0].EventID)
	assert.Equal(t, "corr-9", got[0].CorrelationID)
	assert.Equal(t, "42", got[0].OrderKey)
	assert.Contains(t, string(got[0].Data), "UPS12345678")
	assert.Equal(t, []int64{0, 1}, reader.committed)
	assert.True(t, reader.closed)
}

func TestConsumerRejectsMessageWithoutEventID(t *testing.T) {
	c := NewConsumer(slog.New(slog.NewTextHandler(io.Discard, nil)), &fakeReader{}, idempotency.NewMemoryStore(time.Minute),
		func(context.Context, Exported) error { return nil })

	err := c.Handle(context.Background(), kafka.Message{Value: []byte(`{"type":"ORDER_CREATED"}`)})
	assert.Error(t, err)
}
