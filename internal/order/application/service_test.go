package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/order/infrastructure/memory"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu     sync.Mutex
	events []eventbus.Event
	err    error
}

func (p *capturePublisher) Publish(_ context.Context, ev eventbus.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *capturePublisher) last() eventbus.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.events[len(p.events)-1]
}

type countingMetrics struct{ placed, cancelled int }

func (m *countingMetrics) OrderPlaced()    { m.placed++ }
func (m *countingMetrics) OrderCancelled() { m.cancelled++ }

func newService(t *testing.T) (*Service, *memory.Repository, *capturePublisher) {
	t.Helper()
	repo := memory.NewRepository()
	pub := &capturePublisher{}
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, pub), repo, pub
}

func validRequest() PlaceOrderRequest {
	return PlaceOrderRequest{
		UserID:          11,
		ProductIDs:      []int64{1, 2},
		TotalAmount:     decimal.RequireFromString("59.90"),
		ShippingAddress: "742 Evergreen Terrace, Springfield 49007",
		PaymentMethod:   "CREDIT_CARD",
		CustomerEmail:   "homer@example.com",
		CustomerPhone:   "+15551234567",
	}
}

func TestPlaceOrderReturnsCreatedAndPublishes(t *testing.T) {
	svc, repo, pub := newService(t)
	m := &countingMetrics{}
	WithMetrics(m)(svc)

	conf, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCreated, conf.Status)
	assert.Equal(t, "ORD-00000001", conf.OrderNumber)
	assert.True(t, decimal.RequireFromString("59.90").Equal(conf.TotalAmount))
	assert.False(t, conf.OrderDate.IsZero())
	assert.Equal(t, 1, m.placed)

	stored, err := repo.Get(context.Background(), conf.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.ShippingStandard, stored.ShippingMethod)
	assert.NotEmpty(t, stored.CorrelationID)

	ev, ok := pub.last().(domain.OrderCreated)
	require.True(t, ok)
	assert.Equal(t, conf.OrderID, ev.OrderID)
	assert.Equal(t, []int64{1, 2}, ev.ProductIDs)
	assert.Equal(t, stored.CorrelationID, ev.CorrelationID)
}

func TestPlaceOrderSurvivesPublishFailure(t *testing.T) {
	svc, _, pub := newService(t)
	pub.err = eventbus.ErrQueueFull

	conf, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCreated, conf.Status)
}

func TestPlaceOrderValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PlaceOrderRequest)
		field  string
	}{
		{"missing user", func(r *PlaceOrderRequest) { r.UserID = 0 }, "userId"},
		{"no products", func(r *PlaceOrderRequest) { r.ProductIDs = nil }, "productIds"},
		{"too many products", func(r *PlaceOrderRequest) { r.ProductIDs = make([]int64, 51) }, "productIds"},
		{"bad product id", func(r *PlaceOrderRequest) { r.ProductIDs = []int64{1, -4} }, "productIds[1]"},
		{"zero amount", func(r *PlaceOrderRequest) { r.TotalAmount = decimal.Zero }, "totalAmount"},
		{"huge amount", func(r *PlaceOrderRequest) { r.TotalAmount = decimal.NewFromInt(100000) }, "totalAmount"},
		{"three decimals", func(r *PlaceOrderRequest) { r.TotalAmount = decimal.RequireFromString("10.005") }, "totalAmount"},
		{"short address", func(r *PlaceOrderRequest) { r.ShippingAddress = "Nowhere" }, "shippingAddress"},
		{"payment method", func(r *PlaceOrderRequest) { r.PaymentMethod = "BITCOIN" }, "paymentMethod"},
		{"shipping method", func(r *PlaceOrderRequest) { r.ShippingMethod = "TELEPORT" }, "shippingMethod"},
		{"email", func(r *PlaceOrderRequest) { r.CustomerEmail = "not-an-email" }, "customerEmail"},
		{"phone", func(r *PlaceOrderRequest) { r.CustomerPhone = "0123" }, "customerPhone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, pub := newService(t)
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.PlaceOrder(context.Background(), req)
			var verr *ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tt.field)
			assert.Empty(t, pub.events)
		})
	}
}

func TestPlaceOrderAcceptsOptionalFields(t *testing.T) {
	svc, _, _ := newService(t)
	req := validRequest()
	req.CustomerEmail = ""
	req.CustomerPhone = ""
	req.ShippingMethod = "OVERNIGHT"
	req.TotalAmount = decimal.RequireFromString("10.500")

	_, err := svc.PlaceOrder(context.Background(), req)
	assert.NoError(t, err)
}

func TestValidationErrorMessageIsStable(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"userId": "must be greater than 0", "email": "bad"}}
	assert.Equal(t, "validation failed: email: bad; userId: must be greater than 0", err.Error())
}

func TestGetStatusIsIdempotent(t *testing.T) {
	svc, _, _ := newService(t)
	conf, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)

	first, err := svc.GetStatus(context.Background(), conf.OrderID)
	require.NoError(t, err)
	second, err := svc.GetStatus(context.Background(), conf.OrderID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, err = svc.GetStatus(context.Background(), 404)
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestCancelAllowedBeforeShipment(t *testing.T) {
	for _, st := range domain.Statuses {
		t.Run(string(st), func(t *testing.T) {
			svc, repo, pub := newService(t)
			conf, err := svc.PlaceOrder(context.Background(), validRequest())
			require.NoError(t, err)
			require.NoError(t, repo.UpdateStatus(context.Background(), conf.OrderID, st))

			o, err := svc.Cancel(context.Background(), conf.OrderID, "")
			if st.Cancellable() {
				require.NoError(t, err)
				assert.Equal(t, domain.StatusCancelled, o.Status)
				ev, ok := pub.last().(domain.OrderCancelled)
				require.True(t, ok)
				assert.Equal(t, st, ev.PreviousStatus)
				assert.Equal(t, "cancelled by customer", ev.Reason)
				return
			}
			assert.ErrorIs(t, err, domain.ErrNotCancellable)
			stored, _ := repo.Get(context.Background(), conf.OrderID)
			assert.Equal(t, st, stored.Status)
		})
	}
}

func TestCancelUnknownOrder(t *testing.T) {
	svc, _, _ := newService(t)
	_, err := svc.Cancel(context.Background(), 404, "")
	assert.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestUpdateStatusFollowsTransitions(t *testing.T) {
	svc, repo, _ := newService(t)
	conf, _ := svc.PlaceOrder(context.Background(), validRequest())

	_, err := svc.UpdateStatus(context.Background(), conf.OrderID, "SHIPPED")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), conf.OrderID, "LOST")
	assert.ErrorIs(t, err, domain.ErrUnknownStatus)

	require.NoError(t, repo.UpdateStatus(context.Background(), conf.OrderID, domain.StatusShipped))
	o, err := svc.UpdateStatus(context.Background(), conf.OrderID, "DELIVERED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDelivered, o.Status)
}

func TestUpdateStatusToCancelledAnnouncesCancellation(t *testing.T) {
	svc, repo, pub := newService(t)
	conf, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), conf.OrderID, domain.StatusPaymentProcessed))

	o, err := svc.UpdateStatus(context.Background(), conf.OrderID, "CANCELLED")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)

	ev, ok := pub.last().(domain.OrderCancelled)
	require.True(t, ok)
	assert.Equal(t, domain.StatusPaymentProcessed, ev.PreviousStatus)
	assert.Equal(t, []int64{1, 2}, ev.ProductIDs)
}

func TestUpdateStatusRefusesPaymentFailed(t *testing.T) {
	svc, repo, _ := newService(t)
	conf, err := svc.PlaceOrder(context.Background(), validRequest())
	require.NoError(t, err)
	require.NoError(t, repo.UpdateStatus(context.Background(), conf.OrderID, domain.StatusPaymentProcessed))

	_, err = svc.UpdateStatus(context.Background(), conf.OrderID, "PAYMENT_FAILED")
	assert.ErrorIs(t, err, domain.ErrInvalidStatus)

	o, err := svc.GetOrder(context.Background(), conf.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPaymentProcessed, o.Status)
}

func TestAttachTrackingNumber(t *testing.T) {
	svc, _, _ := newService(t)
	conf, _ := svc.PlaceOrder(context.Background(), validRequest())

	_, err := svc.AttachTrackingNumber(context.Background(), conf.OrderID, "  ")
	assert.ErrorIs(t, err, ErrTrackingRequired)

	o, err := svc.AttachTrackingNumber(context.Background(), conf.OrderID, "DHL00001234")
	require.NoError(t, err)
	assert.Equal(t, "DHL00001234", o.TrackingNumber)
}

func TestListByUserAndStatistics(t *testing.T) {
	svc, repo, _ := newService(t)
	ctx := context.Background()
	first, _ := svc.PlaceOrder(ctx, validRequest())
	second, _ := svc.PlaceOrder(ctx, validRequest())
	other := validRequest()
	other.UserID = 12
	_, _ = svc.PlaceOrder(ctx, other)
	require.NoError(t, repo.UpdateStatus(ctx, first.OrderID, domain.StatusShipped))

	list, err := svc.ListByUser(ctx, 11)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []int64{first.OrderID, second.OrderID}, []int64{list[0].ID, list[1].ID})
	assert.False(t, list[0].CreatedAt.Before(list[1].CreatedAt))

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalOrders)
	assert.Equal(t, int64(2), stats.ByStatus[domain.StatusCreated])
	assert.Equal(t, int64(1), stats.ByStatus[domain.StatusShipped])
	assert.Len(t, stats.ByStatus, len(domain.Statuses))
}
