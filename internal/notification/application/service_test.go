package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	invdomain "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	"github.com/dmehra2102/order-fulfillment/internal/notification/infrastructure/memory"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	ordermemory "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	paydomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	shipdomain "github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/idempotency"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu      sync.Mutex
	channel domain.Channel
	fail    error
	sent    []domain.Message
}

func (r *recordingSender) Channel() domain.Channel { return r.channel }

func (r *recordingSender) Send(_ context.Context, msg domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail != nil {
		return r.fail
	}
	r.sent = append(r.sent, msg)
	return nil
}

type fixture struct {
	svc     *Service
	order   orderdomain.Order
	history *memory.History
	senders map[domain.Channel]*recordingSender
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	orders := ordermemory.NewRepository()
	o := orderdomain.NewOrder(7, "221B Baker Street, NW1", []int64{1, 2}, decimal.RequireFromString("42.50"), orderdomain.PaymentCreditCard, orderdomain.ShippingExpress)
	o.CustomerEmail = "jane@example.com"
	o.CustomerPhone = "+15551234567"
	saved, err := orders.Create(context.Background(), o)
	require.NoError(t, err)

	f := fixture{order: saved, history: memory.NewHistory(0), senders: map[domain.Channel]*recordingSender{}}
	var senders []Sender
	for _, ch := range []domain.Channel{domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPush, domain.ChannelDeepLink} {
		s := &recordingSender{channel: ch}
		f.senders[ch] = s
		senders = append(senders, s)
	}
	f.svc = NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), orders, f.history,
		idempotency.NewMemoryStore(time.Hour), nil, senders...)
	return f
}

func (f fixture) envelope(eventType string) eventbus.Envelope {
	return eventbus.NewEnvelope(eventType, f.order.ID, f.order.UserID, "corr")
}

func TestOrderCreated_FansOutToStandardChannels(t *testing.T) {
	f := newFixture(t)
	ev := orderdomain.NewOrderCreated(f.order)

	require.NoError(t, f.svc.Handle(context.Background(), ev))

	email := f.senders[domain.ChannelEmail].sent
	require.Len(t, email, 1)
	assert.Equal(t, domain.KindOrderConfirmation, email[0].Kind)
	assert.Equal(t, "jane@example.com", email[0].Recipient)
	assert.Contains(t, email[0].Body, f.order.OrderNumber())
	assert.Contains(t, email[0].Body, "$42.50")

	require.Len(t, f.senders[domain.ChannelSMS].sent, 1)
	assert.Equal(t, "+15551234567", f.senders[domain.ChannelSMS].sent[0].Recipient)
	require.Len(t, f.senders[domain.ChannelPush].sent, 1)
	assert.Equal(t, "user:7", f.senders[domain.ChannelPush].sent[0].Recipient)
	assert.Empty(t, f.senders[domain.ChannelDeepLink].sent)

	history, err := f.svc.History(context.Background(), f.order.ID)
	require.NoError(t, err)
	assert.Len(t, history, 3)
	assert.Equal(t, ev.EventID, history[0].EventID)
}

func TestOrderShipped_AddsTrackingDeepLink(t *testing.T) {
	f := newFixture(t)
	ev := shipdomain.OrderShipped{
		Envelope:          f.envelope(shipdomain.EventOrderShipped),
		TrackingNumber:    "UPS00000042",
		Carrier:           "UPS",
		EstimatedDelivery: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC),
	}

	require.NoError(t, f.svc.Handle(context.Background(), ev))

	links := f.senders[domain.ChannelDeepLink].sent
	require.Len(t, links, 1)
	assert.Equal(t, "orderapp://orders/1/track", links[0].Link)
	assert.Equal(t, domain.KindOrderShipped, links[0].Kind)

	body := f.senders[domain.ChannelEmail].sent[0].Body
	assert.Contains(t, body, "UPS00000042")
	assert.Contains(t, body, "Jun 04, 2025")
	assert.Empty(t, f.senders[domain.ChannelEmail].sent[0].Link)
}

func TestMessageKindPerEvent(t *testing.T) {
	cases := []struct {
		name string
		ev   func(f fixture) eventbus.Event
		kind domain.Kind
		text string
	}{
		{
			name: "inventory reserved",
			ev: func(f fixture) eventbus.Event {
				return invdomain.InventoryReserved{Envelope: f.envelope(invdomain.EventInventoryReserved), ReservedProductIDs: []int64{1, 2}}
			},
			kind: domain.KindInventoryConfirmed,
			text: "All 2 item(s)",
		},
		{
			name: "payment approved",
			ev: func(f fixture) eventbus.Event {
				return paydomain.PaymentProcessed{Envelope: f.envelope(paydomain.EventPaymentProcessed), Success: true, TransactionID: "TXN_ABCDEF12", Amount: decimal.RequireFromString("42.5")}
			},
			kind: domain.KindPaymentConfirmed,
			text: "TXN_ABCDEF12",
		},
		{
			name: "payment declined",
			ev: func(f fixture) eventbus.Event {
				return paydomain.PaymentProcessed{Envelope: f.envelope(paydomain.EventPaymentProcessed), FailureReason: "insufficient funds"}
			},
			kind: domain.KindPaymentFailed,
			text: "insufficient funds",
		},
		{
			name: "cancelled",
			ev: func(f fixture) eventbus.Event {
				return orderdomain.OrderCancelled{Envelope: f.envelope(orderdomain.EventOrderCancelled), Reason: "changed my mind"}
			},
			kind: domain.KindOrderCancelled,
			text: "changed my mind",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.svc.Handle(context.Background(), tc.ev(f)))

			sent := f.senders[domain.ChannelEmail].sent
			require.Len(t, sent, 1)
			assert.Equal(t, tc.kind, sent[0].Kind)
			assert.Contains(t, sent[0].Body, tc.text)
		})
	}
}

func TestDuplicateEventIsSentOnce(t *testing.T) {
	f := newFixture(t)
	ev := orderdomain.NewOrderCreated(f.order)

	require.NoError(t, f.svc.Handle(context.Background(), ev))
	require.NoError(t, f.svc.Handle(context.Background(), ev))

	assert.Len(t, f.senders[domain.ChannelEmail].sent, 1)
}

func TestSenderFailureIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.senders[domain.ChannelSMS].fail = errors.New("provider down")

	err := f.svc.Handle(context.Background(), orderdomain.NewOrderCreated(f.order))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
	assert.Len(t, f.senders[domain.ChannelEmail].sent, 1)
	assert.Len(t, f.senders[domain.ChannelPush].sent, 1)

	history, _ := f.svc.History(context.Background(), f.order.ID)
	require.Len(t, history, 3)
	assert.Equal(t, "provider down", history[1].Error)
}

func TestUnknownOrderFails(t *testing.T) {
	f := newFixture(t)
	ev := orderdomain.OrderCancelled{Envelope: eventbus.NewEnvelope(orderdomain.EventOrderCancelled, 999, 7, "corr")}

	err := f.svc.Handle(context.Background(), ev)
	require.ErrorIs(t, err, orderdomain.ErrOrderNotFound)
}

func TestSendCustom(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.SendCustom(context.Background(), f.order.ID, domain.ChannelPush, "Heads up", "Your courier is nearby")
	require.NoError(t, err)
	assert.Equal(t, domain.KindCustom, d.Kind)
	assert.Empty(t, d.Error)
	require.Len(t, f.senders[domain.ChannelPush].sent, 1)
	assert.Equal(t, "Your courier is nearby", f.senders[domain.ChannelPush].sent[0].Body)

	_, err = f.svc.SendCustom(context.Background(), f.order.ID, domain.Channel("PIGEON"), "x", "y")
	require.ErrorIs(t, err, domain.ErrUnknownChannel)
}
