package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	paydomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/latency"
	"github.com/dmehra2102/order-fulfillment/pkg/randx"
	"github.com/shopspring/decimal"
)

const HandlerName = "shipping"

// ReasonShipmentFailed is the cancellation reason when shipping stopped on an internal error.
const ReasonShipmentFailed = "shipment failed"

var (
	defaultParcelKg = decimal.NewFromInt(1)

	ErrNegativeWeight = errors.New("weight must not be negative")
)

// RandomCarrier picks uniformly from domain.Carriers.
type RandomCarrier struct {
	Rng randx.Source
}

func (r RandomCarrier) Select(context.Context, orderdomain.Order) domain.Carrier {
	return domain.Carriers[r.Rng.IntN(len(domain.Carriers))]
}

type Service struct {
	log      *slog.Logger
	orders   OrderStore
	bus      Publisher
	carriers CarrierSelector
	rng      randx.Source
	delay    latency.Injector
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(log *slog.Logger, orders OrderStore, bus Publisher, carriers CarrierSelector, rng randx.Source, delay latency.Injector, opts ...Option) *Service {
	if delay == nil {
		delay = latency.None{}
	}
	s := &Service{
		log:      log.With("component", "shipping"),
		orders:   orders,
		bus:      bus,
		carriers: carriers,
		rng:      rng,
		delay:    delay,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Register(bus *eventbus.Bus) {
	bus.Subscribe(paydomain.EventPaymentProcessed, HandlerName, s.HandlePaymentProcessed)
}

// HandlePaymentProcessed ships paid orders. The order is SHIPPED and carries
// its tracking number before OrderShipped goes out.
func (s *Service) HandlePaymentProcessed(ctx context.Context, ev eventbus.Event) (err error) {
	e, ok := ev.(paydomain.PaymentProcessed)
	if !ok {
		return fmt.Errorf("shipping: unexpected event %T", ev)
	}
	if !e.Success {
		return nil
	}
	log := s.log.With("order_id", e.OrderID, "correlation_id", e.CorrelationID)

	prev, moved, err := s.orders.TransitionStatus(ctx, e.OrderID,
		[]orderdomain.OrderStatus{orderdomain.StatusPaymentConfirmed}, orderdomain.StatusPreparingShipment)
	if err != nil {
		return fmt.Errorf("mark preparing shipment: %w", err)
	}
	if !moved {
		log.Warn("shipment skipped, order not confirmed", "status", prev)
		return nil
	}

	defer func() {
		if r := recover(); r != nil {
			s.abandon(ctx, log, e)
			err = fmt.Errorf("shipping panicked: %v", r)
		}
	}()

	order, err := s.orders.Get(ctx, e.OrderID)
	if err != nil {
		s.abandon(ctx, log, e)
		return fmt.Errorf("load order: %w", err)
	}
	method, err := domain.LookupMethod(string(order.ShippingMethod))
	if err != nil {
		log.Warn("unknown shipping method, using standard", "method", order.ShippingMethod)
		method, _ = domain.LookupMethod("")
	}

	if err := s.delay.Wait(ctx, latency.ShippingCarrier); err != nil {
		s.abandon(ctx, log, e)
		return err
	}
	carrier := s.carriers.Select(ctx, order)
	tracking := domain.TrackingNumber(carrier.Name, s.rng.IntN(100_000_000))
	eta := domain.EstimatedDelivery(s.now(), method.MinDays+s.rng.IntN(method.MaxDays-method.MinDays+1))

	if err := s.delay.Wait(ctx, latency.ShippingLabel); err != nil {
		s.abandon(ctx, log, e)
		return err
	}
	prev, moved, err = s.orders.TransitionStatus(ctx, order.ID,
		[]orderdomain.OrderStatus{orderdomain.StatusPreparingShipment}, orderdomain.StatusShipped)
	if err != nil {
		s.abandon(ctx, log, e)
		return fmt.Errorf("mark shipped: %w", err)
	}
	if !moved {
		log.Warn("order changed while preparing shipment", "status", prev)
		return nil
	}
	// The parcel is out; a lost tracking number is logged, not undone.
	if err := s.orders.SetTrackingNumber(ctx, order.ID, tracking); err != nil {
		log.Error("store tracking number failed", "tracking_number", tracking, "err", err)
	}

	log.Info("order shipped", "carrier", carrier.Name, "tracking_number", tracking, "eta", eta.Format(domain.DeliveryDateLayout))
	return s.bus.Publish(ctx, domain.OrderShipped{
		Envelope:          eventbus.NewEnvelope(domain.EventOrderShipped, order.ID, order.UserID, e.CorrelationID),
		TrackingNumber:    tracking,
		Carrier:           carrier.Name,
		EstimatedDelivery: eta,
		ShippingMethod:    method.Name,
		ShippingCost:      method.Cost(defaultParcelKg),
	})
}

// abandon cancels an order stuck in PREPARING_SHIPMENT after an internal
// error, so the payment is refunded and the stock released.
func (s *Service) abandon(ctx context.Context, log *slog.Logger, e paydomain.PaymentProcessed) {
	_, moved, err := s.orders.TransitionStatus(ctx, e.OrderID,
		[]orderdomain.OrderStatus{orderdomain.StatusPreparingShipment}, orderdomain.StatusCancelled)
	if err != nil {
		log.Error("cancel unshippable order", "err", err)
		return
	}
	if !moved {
		return
	}
	log.Warn("order cancelled after shipping error")
	if err := s.bus.Publish(ctx, orderdomain.OrderCancelled{
		Envelope:       eventbus.NewEnvelope(orderdomain.EventOrderCancelled, e.OrderID, e.UserID, e.CorrelationID),
		PreviousStatus: orderdomain.StatusPreparingShipment,
		Reason:         ReasonShipmentFailed,
		ProductIDs:     append([]int64(nil), e.ReservedProductIDs...),
	}); err != nil {
		log.Error("publish shipment cancellation", "err", err)
	}
}

type Quote struct {
	Method           string          `json:"method"`
	Cost             decimal.Decimal `json:"cost"`
	EarliestDelivery time.Time       `json:"earliestDelivery"`
	LatestDelivery   time.Time       `json:"latestDelivery"`
}

func (s *Service) Methods() []domain.Method {
	return domain.Methods()
}

func (s *Service) Quote(method string, weightKg decimal.Decimal) (Quote, error) {
	m, err := domain.LookupMethod(method)
	if err != nil {
		return Quote{}, err
	}
	if weightKg.IsNegative() {
		return Quote{}, ErrNegativeWeight
	}
	now := s.now()
	return Quote{
		Method:           m.Name,
		Cost:             m.Cost(weightKg),
		EarliestDelivery: domain.EstimatedDelivery(now, m.MinDays),
		LatestDelivery:   domain.EstimatedDelivery(now, m.MaxDays),
	}, nil
}
