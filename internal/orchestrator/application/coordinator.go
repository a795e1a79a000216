package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	invdomain "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/orchestrator/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	paydomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	shipdomain "github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
)

const (
	CompensationHandler = "compensation"
	JourneyHandler      = "journey"
)

// Coordinator undoes the side effects of orders that will not ship and keeps
// a journey of every workflow event per order.
type Coordinator struct {
	log      *slog.Logger
	stock    StockReleaser
	payments Refunder
	journeys JourneyStore
	now      func() time.Time
}

func NewCoordinator(log *slog.Logger, stock StockReleaser, payments Refunder, journeys JourneyStore) *Coordinator {
	return &Coordinator{
		log:      log.With("component", "coordinator"),
		stock:    stock,
		payments: payments,
		journeys: journeys,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (c *Coordinator) Register(bus *eventbus.Bus) {
	bus.Subscribe(paydomain.EventPaymentProcessed, CompensationHandler, c.OnPaymentProcessed)
	bus.Subscribe(orderdomain.EventOrderCancelled, CompensationHandler, c.OnOrderCancelled)
	bus.SubscribeAll(JourneyHandler, c.Track)
}

// OnPaymentProcessed returns reserved stock when payment was declined.
func (c *Coordinator) OnPaymentProcessed(ctx context.Context, ev eventbus.Event) error {
	e, ok := ev.(paydomain.PaymentProcessed)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}
	if e.Success {
		return nil
	}

	c.log.Info("releasing stock after declined payment", "order_id", e.OrderID, "products", len(e.ReservedProductIDs), "reason", e.FailureReason)
	c.stock.ReleaseAll(ctx, e.ReservedProductIDs)
	return c.compensated(ctx, e.OrderID, domain.StepStockReleased, fmt.Sprintf("%d unit(s)", len(e.ReservedProductIDs)))
}

// OnOrderCancelled undoes whatever the cancelled order already holds.
func (c *Coordinator) OnOrderCancelled(ctx context.Context, ev eventbus.Event) error {
	e, ok := ev.(orderdomain.OrderCancelled)
	if !ok {
		return fmt.Errorf("unexpected event %T", ev)
	}
	log := c.log.With("order_id", e.OrderID, "previous_status", e.PreviousStatus)

	var errs []error
	if e.PreviousStatus.PaymentCaptured() {
		p, err := c.payments.Refund(ctx, e.OrderID)
		if err != nil {
			log.Error("refund after cancel failed", "err", err)
			errs = append(errs, err)
		} else {
			errs = append(errs, c.compensated(ctx, e.OrderID, domain.StepPaymentRefunded, p.TransactionID))
		}
	}
	if e.PreviousStatus.HoldsReservation() {
		c.stock.ReleaseAll(ctx, e.ProductIDs)
		errs = append(errs, c.compensated(ctx, e.OrderID, domain.StepStockReleased, fmt.Sprintf("%d unit(s)", len(e.ProductIDs))))
	}
	log.Info("cancellation compensated")
	return errors.Join(errs...)
}

// Track appends the event to the order's journey.
func (c *Coordinator) Track(ctx context.Context, ev eventbus.Event) error {
	meta := ev.Meta()
	step := domain.Step{Name: ev.EventType(), EventID: meta.EventID, At: meta.OccurredAt}
	var next domain.JourneyState

	switch e := ev.(type) {
	case orderdomain.OrderCreated:
		next = domain.StateStarted
	case invdomain.InventoryReserved:
		next = domain.StateReserved
	case paydomain.PaymentProcessed:
		if e.Success {
			next = domain.StatePaid
			step.Detail = e.TransactionID
		} else {
			next = domain.StateFailed
			step.Detail = e.FailureReason
		}
	case shipdomain.OrderShipped:
		next = domain.StateShipped
		step.Detail = e.Carrier + " " + e.TrackingNumber
	case orderdomain.OrderCancelled:
		next = domain.StateCancelled
		step.Detail = e.Reason
	}

	return c.journeys.Update(ctx, meta.OrderID, func(j *domain.Journey) {
		if j.CorrelationID == "" {
			j.CorrelationID = meta.CorrelationID
		}
		j.Record(step, next)
	})
}

func (c *Coordinator) Journey(ctx context.Context, orderID int64) (domain.Journey, error) {
	return c.journeys.Get(ctx, orderID)
}

func (c *Coordinator) compensated(ctx context.Context, orderID int64, name, detail string) error {
	return c.journeys.Update(ctx, orderID, func(j *domain.Journey) {
		j.Record(domain.Step{Name: name, At: c.now(), Detail: detail, Compensation: true}, "")
	})
}
