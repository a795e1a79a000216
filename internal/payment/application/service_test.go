package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	invdomain "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	ordermemory "github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	paymemory "github.com/dmehra2102/order-fulfillment/internal/payment/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (p *capturePublisher) Publish(_ context.Context, ev eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

type stubGateway struct {
	approve     bool
	err         error
	refunded    []string
	onAuthorize func()
}

func (g *stubGateway) Authorize(context.Context, AuthorizationRequest) (domain.Authorization, error) {
	if g.onAuthorize != nil {
		g.onAuthorize()
	}
	if g.err != nil {
		return domain.Authorization{}, g.err
	}
	if g.approve {
		return domain.Authorization{Approved: true, TransactionID: "TXN_00C0FFEE"}, nil
	}
	return domain.Authorization{TransactionID: "TXN_DEADBEEF", DeclineReason: "insufficient funds"}, nil
}

func (g *stubGateway) Refund(_ context.Context, txn string, _ decimal.Decimal) error {
	g.refunded = append(g.refunded, txn)
	return nil
}

type fixture struct {
	svc      *Service
	gw       *stubGateway
	orders   *ordermemory.Repository
	payments *paymemory.Repository
	pub      *capturePublisher
}

func newFixture(gw *stubGateway) fixture {
	orders := ordermemory.NewRepository()
	payments := paymemory.NewRepository()
	pub := &capturePublisher{}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixture{
		svc:      NewService(log, payments, gw, orders, pub),
		gw:       gw,
		orders:   orders,
		payments: payments,
		pub:      pub,
	}
}

func (f fixture) reserved(t *testing.T, status orderdomain.OrderStatus) invdomain.InventoryReserved {
	t.Helper()
	o := orderdomain.NewOrder(4, "500 Oracle Parkway, 94065", []int64{1, 2}, decimal.RequireFromString("42.50"), orderdomain.PaymentApplePay, "")
	saved, err := f.orders.Create(context.Background(), o)
	require.NoError(t, err)
	require.NoError(t, f.orders.UpdateStatus(context.Background(), saved.ID, status))
	return invdomain.InventoryReserved{
		Envelope:           eventbus.NewEnvelope(invdomain.EventInventoryReserved, saved.ID, saved.UserID, "corr"),
		ReservedProductIDs: []int64{1, 2},
	}
}

func (f fixture) status(t *testing.T, id int64) orderdomain.OrderStatus {
	t.Helper()
	o, err := f.orders.Get(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func TestApprovedPaymentConfirmsOrder(t *testing.T) {
	f := newFixture(&stubGateway{approve: true})
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)

	require.NoError(t, f.svc.HandleInventoryReserved(context.Background(), ev))

	assert.Equal(t, orderdomain.StatusPaymentConfirmed, f.status(t, ev.OrderID))
	require.Len(t, f.pub.events, 1)
	pe := f.pub.events[0].(domain.PaymentProcessed)
	assert.True(t, pe.Success)
	assert.Equal(t, "TXN_00C0FFEE", pe.TransactionID)
	assert.Equal(t, "APPLE_PAY", pe.PaymentMethod)
	assert.True(t, decimal.RequireFromString("42.50").Equal(pe.Amount))
	assert.Equal(t, "corr", pe.CorrelationID)
	assert.Equal(t, []int64{1, 2}, pe.ReservedProductIDs)

	p, err := f.svc.GetPayment(context.Background(), ev.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAuthorized, p.Status)
}

func TestDeclinedPaymentFailsOrder(t *testing.T) {
	f := newFixture(&stubGateway{approve: false})
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)

	require.NoError(t, f.svc.HandleInventoryReserved(context.Background(), ev))

	assert.Equal(t, orderdomain.StatusPaymentFailed, f.status(t, ev.OrderID))
	pe := f.pub.events[0].(domain.PaymentProcessed)
	assert.False(t, pe.Success)
	assert.Equal(t, "insufficient funds", pe.FailureReason)

	p, _ := f.payments.Get(context.Background(), ev.OrderID)
	assert.Equal(t, domain.StatusDeclined, p.Status)
}

func TestGatewayErrorCountsAsDecline(t *testing.T) {
	f := newFixture(&stubGateway{err: errors.New("timeout")})
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)

	require.NoError(t, f.svc.HandleInventoryReserved(context.Background(), ev))

	assert.Equal(t, orderdomain.StatusPaymentFailed, f.status(t, ev.OrderID))
	pe := f.pub.events[0].(domain.PaymentProcessed)
	assert.Equal(t, "gateway error: timeout", pe.FailureReason)
}

func TestSkipsOrderNotAwaitingPayment(t *testing.T) {
	f := newFixture(&stubGateway{approve: true})
	ev := f.reserved(t, orderdomain.StatusCancelled)

	require.NoError(t, f.svc.HandleInventoryReserved(context.Background(), ev))

	assert.Equal(t, orderdomain.StatusCancelled, f.status(t, ev.OrderID))
	assert.Empty(t, f.pub.events)
	_, err := f.payments.Get(context.Background(), ev.OrderID)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}

func TestCancelDuringAuthorizationRefunds(t *testing.T) {
	gw := &stubGateway{approve: true}
	f := newFixture(gw)
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)
	gw.onAuthorize = func() {
		_ = f.orders.UpdateStatus(context.Background(), ev.OrderID, orderdomain.StatusCancelled)
	}

	require.NoError(t, f.svc.HandleInventoryReserved(context.Background(), ev))

	assert.Equal(t, orderdomain.StatusCancelled, f.status(t, ev.OrderID))
	assert.Empty(t, f.pub.events)
	assert.Equal(t, []string{"TXN_00C0FFEE"}, gw.refunded)
	p, _ := f.payments.Get(context.Background(), ev.OrderID)
	assert.Equal(t, domain.StatusRefunded, p.Status)
}

func TestPanicMarksPaymentFailed(t *testing.T) {
	gw := &stubGateway{onAuthorize: func() { panic("gateway sdk bug") }}
	f := newFixture(gw)
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)

	err := f.svc.HandleInventoryReserved(context.Background(), ev)
	require.Error(t, err)
	assert.Equal(t, orderdomain.StatusPaymentFailed, f.status(t, ev.OrderID))

	require.Len(t, f.pub.events, 1)
	pe := f.pub.events[0].(domain.PaymentProcessed)
	assert.False(t, pe.Success)
	assert.Equal(t, ReasonProcessingError, pe.FailureReason)
	assert.Equal(t, []int64{1, 2}, pe.ReservedProductIDs)
	assert.Equal(t, "corr", pe.CorrelationID)
}

func TestFailedMarkerDoesNotRepublishForMovedOrder(t *testing.T) {
	gw := &stubGateway{}
	f := newFixture(gw)
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)
	gw.onAuthorize = func() {
		_ = f.orders.UpdateStatus(context.Background(), ev.OrderID, orderdomain.StatusCancelled)
		panic("gateway sdk bug")
	}

	require.Error(t, f.svc.HandleInventoryReserved(context.Background(), ev))
	assert.Equal(t, orderdomain.StatusCancelled, f.status(t, ev.OrderID))
	assert.Empty(t, f.pub.events)
}

func TestRefund(t *testing.T) {
	gw := &stubGateway{approve: true}
	f := newFixture(gw)
	ev := f.reserved(t, orderdomain.StatusInventoryReserved)
	require.NoError(t, f.svc.HandleInventoryReserved(context.Background(), ev))

	p, err := f.svc.Refund(context.Background(), ev.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRefunded, p.Status)
	assert.Equal(t, []string{"TXN_00C0FFEE"}, gw.refunded)

	_, err = f.svc.Refund(context.Background(), ev.OrderID)
	assert.ErrorIs(t, err, domain.ErrNotRefundable)

	_, err = f.svc.Refund(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrPaymentNotFound)
}
