package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	invdomain "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
)

const HandlerName = "payment"

// ReasonProcessingError is the failure reason when payment stopped on an internal error.
const ReasonProcessingError = "processing error"

type Service struct {
	log     *slog.Logger
	repo    PaymentRepository
	gateway Gateway
	orders  OrderStore
	bus     Publisher
	now     func() time.Time
}

func NewService(log *slog.Logger, repo PaymentRepository, gateway Gateway, orders OrderStore, bus Publisher) *Service {
	return &Service{
		log:     log.With("component", "payment"),
		repo:    repo,
		gateway: gateway,
		orders:  orders,
		bus:     bus,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Register(bus *eventbus.Bus) {
	bus.Subscribe(invdomain.EventInventoryReserved, HandlerName, s.HandleInventoryReserved)
}

func (s *Service) HandleInventoryReserved(ctx context.Context, ev eventbus.Event) (err error) {
	e, ok := ev.(invdomain.InventoryReserved)
	if !ok {
		return fmt.Errorf("payment: unexpected event %T", ev)
	}
	log := s.log.With("order_id", e.OrderID, "correlation_id", e.CorrelationID)

	defer func() {
		if r := recover(); r != nil {
			s.markFailed(ctx, log, e)
			err = fmt.Errorf("payment processing panicked: %v", r)
		}
	}()

	prev, moved, err := s.orders.TransitionStatus(ctx, e.OrderID,
		[]orderdomain.OrderStatus{orderdomain.StatusInventoryReserved}, orderdomain.StatusPaymentProcessed)
	if err != nil {
		s.markFailed(ctx, log, e)
		return fmt.Errorf("mark payment processing: %w", err)
	}
	if !moved {
		log.Warn("payment skipped, order not awaiting payment", "status", prev)
		return nil
	}

	order, err := s.orders.Get(ctx, e.OrderID)
	if err != nil {
		s.markFailed(ctx, log, e)
		return fmt.Errorf("load order: %w", err)
	}

	auth, gwErr := s.gateway.Authorize(ctx, AuthorizationRequest{
		OrderID: order.ID,
		Amount:  order.TotalAmount,
		Method:  string(order.PaymentMethod),
	})
	if gwErr != nil {
		log.Error("payment gateway error", "err", gwErr)
		auth = domain.Authorization{DeclineReason: "gateway error: " + gwErr.Error()}
	}

	now := s.now()
	record := domain.Payment{
		OrderID:       order.ID,
		TransactionID: auth.TransactionID,
		Method:        string(order.PaymentMethod),
		Amount:        order.TotalAmount,
		Status:        domain.StatusDeclined,
		FailureReason: auth.DeclineReason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	next := orderdomain.StatusPaymentFailed
	if auth.Approved {
		next = orderdomain.StatusPaymentConfirmed
		record.Status = domain.StatusAuthorized
	}

	prev, moved, err = s.orders.TransitionStatus(ctx, order.ID,
		[]orderdomain.OrderStatus{orderdomain.StatusPaymentProcessed}, next)
	if err != nil {
		if auth.Approved {
			s.refundAuthorization(ctx, log, &record)
		}
		s.save(ctx, log, record)
		s.markFailed(ctx, log, e)
		return fmt.Errorf("record payment outcome: %w", err)
	}
	if !moved {
		log.Warn("order changed during payment, outcome discarded", "status", prev, "approved", auth.Approved)
		if auth.Approved {
			s.refundAuthorization(ctx, log, &record)
		}
		s.save(ctx, log, record)
		return nil
	}
	s.save(ctx, log, record)

	if auth.Approved {
		log.Info("payment confirmed", "transaction_id", auth.TransactionID, "amount", order.TotalAmount.StringFixed(2))
	} else {
		log.Warn("payment declined", "reason", auth.DeclineReason)
	}

	return s.bus.Publish(ctx, domain.PaymentProcessed{
		Envelope:           eventbus.NewEnvelope(domain.EventPaymentProcessed, order.ID, order.UserID, e.CorrelationID),
		Success:            auth.Approved,
		TransactionID:      auth.TransactionID,
		PaymentMethod:      string(order.PaymentMethod),
		Amount:             order.TotalAmount,
		FailureReason:      auth.DeclineReason,
		ReservedProductIDs: e.ReservedProductIDs,
	})
}

// Refund returns an authorized payment, e.g. after the order was cancelled.
func (s *Service) Refund(ctx context.Context, orderID int64) (domain.Payment, error) {
	p, err := s.repo.Get(ctx, orderID)
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Status != domain.StatusAuthorized {
		return domain.Payment{}, fmt.Errorf("%w: status is %s", domain.ErrNotRefundable, p.Status)
	}
	if err := s.gateway.Refund(ctx, p.TransactionID, p.Amount); err != nil {
		return domain.Payment{}, fmt.Errorf("refund %s: %w", p.TransactionID, err)
	}
	p.Status = domain.StatusRefunded
	p.UpdatedAt = s.now()
	if err := s.repo.Save(ctx, p); err != nil {
		return domain.Payment{}, err
	}
	s.log.Info("payment refunded", "order_id", orderID, "transaction_id", p.TransactionID)
	return p, nil
}

func (s *Service) GetPayment(ctx context.Context, orderID int64) (domain.Payment, error) {
	return s.repo.Get(ctx, orderID)
}

func (s *Service) refundAuthorization(ctx context.Context, log *slog.Logger, p *domain.Payment) {
	if err := s.gateway.Refund(ctx, p.TransactionID, p.Amount); err != nil {
		log.Error("refund of orphaned authorization failed", "transaction_id", p.TransactionID, "err", err)
		return
	}
	p.Status = domain.StatusRefunded
	log.Info("orphaned authorization refunded", "transaction_id", p.TransactionID)
}

func (s *Service) save(ctx context.Context, log *slog.Logger, p domain.Payment) {
	if err := s.repo.Save(ctx, p); err != nil {
		log.Error("save payment record failed", "err", err)
	}
}

// markFailed parks the order in PAYMENT_FAILED after an internal error and
// announces it like a decline so the reserved stock is released.
func (s *Service) markFailed(ctx context.Context, log *slog.Logger, e invdomain.InventoryReserved) {
	_, moved, err := s.orders.TransitionStatus(ctx, e.OrderID,
		[]orderdomain.OrderStatus{orderdomain.StatusInventoryReserved, orderdomain.StatusPaymentProcessed},
		orderdomain.StatusPaymentFailed)
	if err != nil {
		log.Error("mark payment failed", "err", err)
		return
	}
	if !moved {
		return
	}
	log.Warn("order marked payment failed after error")
	if err := s.bus.Publish(ctx, domain.PaymentProcessed{
		Envelope:           eventbus.NewEnvelope(domain.EventPaymentProcessed, e.OrderID, e.UserID, e.CorrelationID),
		FailureReason:      ReasonProcessingError,
		ReservedProductIDs: e.ReservedProductIDs,
	}); err != nil {
		log.Error("publish payment failure", "err", err)
	}
}
