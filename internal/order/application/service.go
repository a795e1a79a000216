package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrTrackingRequired = errors.New("tracking number is required")

type PlaceOrderRequest struct {
	UserID              int64           `json:"userId" validate:"gt=0"`
	ProductIDs          []int64         `json:"productIds" validate:"required,min=1,max=50,dive,gt=0"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	ShippingAddress     string          `json:"shippingAddress" validate:"required,min=10,max=500"`
	PaymentMethod       string          `json:"paymentMethod" validate:"required,oneof=CREDIT_CARD DEBIT_CARD PAYPAL APPLE_PAY GOOGLE_PAY"`
	ShippingMethod      string          `json:"shippingMethod" validate:"omitempty,oneof=STANDARD EXPRESS OVERNIGHT"`
	SpecialInstructions string          `json:"specialInstructions" validate:"max=1000"`
	CustomerEmail       string          `json:"customerEmail" validate:"omitempty,email"`
	CustomerPhone       string          `json:"customerPhone" validate:"omitempty,phone"`
}

type OrderConfirmation struct {
	OrderID        int64              `json:"orderId"`
	Status         domain.OrderStatus `json:"status"`
	Message        string             `json:"message"`
	OrderNumber    string             `json:"orderNumber"`
	TotalAmount    decimal.Decimal    `json:"totalAmount"`
	OrderDate      time.Time          `json:"orderDate"`
	TrackingNumber string             `json:"trackingNumber,omitempty"`
}

type StatusView struct {
	OrderID        int64              `json:"orderId"`
	OrderNumber    string             `json:"orderNumber"`
	Status         domain.OrderStatus `json:"status"`
	TrackingNumber string             `json:"trackingNumber,omitempty"`
	UpdatedAt      time.Time          `json:"updatedAt"`
}

type Statistics struct {
	TotalOrders int64                        `json:"totalOrders"`
	ByStatus    map[domain.OrderStatus]int64 `json:"byStatus"`
}

// Service is the synchronous entry point of the fulfillment workflow.
type Service struct {
	log       *slog.Logger
	repo      OrderRepository
	bus       Publisher
	validator *RequestValidator
	metrics   Metrics
}

type Option func(*Service)

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewService(log *slog.Logger, repo OrderRepository, bus Publisher, opts ...Option) *Service {
	s := &Service{
		log:       log.With("component", "order-service"),
		repo:      repo,
		bus:       bus,
		validator: NewRequestValidator(),
		metrics:   nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder persists a CREATED order, starts the pipeline and returns
// without waiting for any stage.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (OrderConfirmation, error) {
	if err := s.validator.Validate(req); err != nil {
		return OrderConfirmation{}, err
	}

	o := domain.NewOrder(
		req.UserID,
		strings.TrimSpace(req.ShippingAddress),
		req.ProductIDs,
		req.TotalAmount.Round(2),
		domain.PaymentMethod(req.PaymentMethod),
		domain.ShippingMethod(req.ShippingMethod),
	)
	o.SpecialInstructions = req.SpecialInstructions
	o.CustomerEmail = req.CustomerEmail
	o.CustomerPhone = req.CustomerPhone
	o.CorrelationID = uuid.NewString()

	saved, err := s.repo.Create(ctx, o)
	if err != nil {
		return OrderConfirmation{}, fmt.Errorf("save order: %w", err)
	}

	if err := s.bus.Publish(ctx, domain.NewOrderCreated(saved)); err != nil {
		// The order is stored; a dropped handler leaves it for the caller to poll or cancel.
		s.log.Error("publish order created failed", "order_id", saved.ID, "err", err)
	}
	s.metrics.OrderPlaced()
	s.log.Info("order placed", "order_id", saved.ID, "user_id", saved.UserID, "correlation_id", saved.CorrelationID, "products", len(saved.ProductIDs))

	return OrderConfirmation{
		OrderID:     saved.ID,
		Status:      saved.Status,
		Message:     "Order placed successfully. Processing has started.",
		OrderNumber: saved.OrderNumber(),
		TotalAmount: saved.TotalAmount,
		OrderDate:   saved.CreatedAt,
	}, nil
}

func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetStatus(ctx context.Context, id int64) (StatusView, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return StatusView{}, err
	}
	return StatusView{
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber(),
		Status:         o.Status,
		TrackingNumber: o.TrackingNumber,
		UpdatedAt:      o.UpdatedAt,
	}, nil
}

func (s *Service) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateStatus applies a manual status change along the allowed transitions.
// CANCELLED goes through Cancel so compensation runs; PAYMENT_FAILED belongs
// to the payment stage and is refused.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status string) (domain.Order, error) {
	to, err := domain.ParseStatus(status)
	if err != nil {
		return domain.Order{}, err
	}
	switch to {
	case domain.StatusCancelled:
		return s.Cancel(ctx, id, "status set to CANCELLED")
	case domain.StatusPaymentFailed:
		return domain.Order{}, fmt.Errorf("%w: %s is set by payment processing", domain.ErrInvalidStatus, to)
	}
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !domain.CanTransition(o.Status, to) {
		return domain.Order{}, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatus, o.Status, to)
	}
	prev, ok, err := s.repo.TransitionStatus(ctx, id, []domain.OrderStatus{o.Status}, to)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: status changed concurrently to %s", domain.ErrInvalidStatus, prev)
	}
	s.log.Info("order status updated", "order_id", id, "from", prev, "to", to)
	return s.repo.Get(ctx, id)
}

func (s *Service) AttachTrackingNumber(ctx context.Context, id int64, tracking string) (domain.Order, error) {
	tracking = strings.TrimSpace(tracking)
	if tracking == "" {
		return domain.Order{}, ErrTrackingRequired
	}
	if err := s.repo.SetTrackingNumber(ctx, id, tracking); err != nil {
		return domain.Order{}, err
	}
	s.log.Info("tracking number attached", "order_id", id, "tracking_number", tracking)
	return s.repo.Get(ctx, id)
}

// Cancel moves a pre-shipment order to CANCELLED and announces it so reserved
// stock and payments can be compensated.
func (s *Service) Cancel(ctx context.Context, id int64, reason string) (domain.Order, error) {
	o, err := s.repo.Get(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}
	if !o.Status.Cancellable() {
		return domain.Order{}, fmt.Errorf("%w: status is %s", domain.ErrNotCancellable, o.Status)
	}

	prev, ok, err := s.repo.TransitionStatus(ctx, id, domain.CancellableStatuses(), domain.StatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}
	if !ok {
		return domain.Order{}, fmt.Errorf("%w: status is %s", domain.ErrNotCancellable, prev)
	}
	if reason == "" {
		reason = "cancelled by customer"
	}

	if err := s.bus.Publish(ctx, domain.NewOrderCancelled(o, prev, reason)); err != nil {
		s.log.Error("publish order cancelled failed", "order_id", id, "err", err)
	}
	s.metrics.OrderCancelled()
	s.log.Info("order cancelled", "order_id", id, "previous_status", prev)

	o.Status = domain.StatusCancelled
	return o, nil
}

func (s *Service) Statistics(ctx context.Context) (Statistics, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Statistics{}, err
	}
	stats := Statistics{ByStatus: make(map[domain.OrderStatus]int64, len(domain.Statuses))}
	for _, st := range domain.Statuses {
		n := counts[st]
		stats.ByStatus[st] = n
		stats.TotalOrders += n
	}
	return stats, nil
}
