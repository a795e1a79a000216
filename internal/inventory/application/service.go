package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/dmehra2102/order-fulfillment/pkg/latency"
)

const HandlerName = "inventory"

type Service struct {
	log      *slog.Logger
	products ProductRepository
	orders   OrderStatusStore
	bus      Publisher
	delay    latency.Injector
}

func NewService(log *slog.Logger, products ProductRepository, orders OrderStatusStore, bus Publisher, delay latency.Injector) *Service {
	if delay == nil {
		delay = latency.None{}
	}
	return &Service{
		log:      log.With("component", "inventory"),
		products: products,
		orders:   orders,
		bus:      bus,
		delay:    delay,
	}
}

func (s *Service) Register(bus *eventbus.Bus) {
	bus.Subscribe(orderdomain.EventOrderCreated, HandlerName, s.HandleOrderCreated)
}

// HandleOrderCreated reserves one unit per product reference. Any failure
// gives back the units already taken and cancels the order.
func (s *Service) HandleOrderCreated(ctx context.Context, ev eventbus.Event) (err error) {
	e, ok := ev.(orderdomain.OrderCreated)
	if !ok {
		return fmt.Errorf("inventory: unexpected event %T", ev)
	}
	log := s.log.With("order_id", e.OrderID, "correlation_id", e.CorrelationID)

	var res domain.Reservation
	defer func() {
		if r := recover(); r != nil {
			s.ReleaseAll(ctx, res.Reserved)
			s.cancel(ctx, log, e.OrderID)
			err = fmt.Errorf("inventory reservation panicked: %v", r)
		}
	}()

	s.reserve(ctx, e.ProductIDs, &res)
	if !res.OK() {
		log.Warn("inventory reservation failed",
			"product_id", res.FailedProductID,
			"reason", res.Failure,
			"rolled_back", len(res.Reserved),
		)
		s.ReleaseAll(ctx, res.Reserved)
		s.cancel(ctx, log, e.OrderID)
		return res.Err
	}

	prev, moved, err := s.orders.TransitionStatus(ctx, e.OrderID,
		[]orderdomain.OrderStatus{orderdomain.StatusCreated}, orderdomain.StatusInventoryReserved)
	if err != nil {
		s.ReleaseAll(ctx, res.Reserved)
		s.cancel(ctx, log, e.OrderID)
		return fmt.Errorf("mark inventory reserved: %w", err)
	}
	if !moved {
		log.Warn("order left CREATED during reservation, releasing stock", "status", prev)
		s.ReleaseAll(ctx, res.Reserved)
		return nil
	}

	log.Info("inventory reserved", "units", len(res.Reserved))
	return s.bus.Publish(ctx, domain.InventoryReserved{
		Envelope:           eventbus.NewEnvelope(domain.EventInventoryReserved, e.OrderID, e.UserID, e.CorrelationID),
		ReservedProductIDs: res.Reserved,
	})
}

func (s *Service) reserve(ctx context.Context, productIDs []int64, res *domain.Reservation) {
	for _, id := range productIDs {
		if err := s.delay.Wait(ctx, latency.InventoryLookup); err != nil {
			res.Fail(id, domain.FailureStore, err)
			return
		}
		outcome, err := s.products.Reserve(ctx, id)
		if err != nil {
			res.Fail(id, domain.FailureStore, fmt.Errorf("reserve product %d: %w", id, err))
			return
		}
		switch outcome {
		case domain.Reserved:
			res.Reserved = append(res.Reserved, id)
		case domain.OutOfStock:
			res.Fail(id, domain.FailureOutOfStock, nil)
			return
		default:
			res.Fail(id, domain.FailureProductMissing, nil)
			return
		}
	}
}

// ReleaseAll returns one unit per entry. Each release is independent; a
// failed one is logged and the rest still run.
func (s *Service) ReleaseAll(ctx context.Context, productIDs []int64) {
	for _, id := range productIDs {
		if err := s.products.Release(ctx, id); err != nil {
			s.log.Error("stock release failed", "product_id", id, "err", err)
			continue
		}
		s.log.Debug("stock released", "product_id", id)
	}
}

func (s *Service) cancel(ctx context.Context, log *slog.Logger, orderID int64) {
	prev, moved, err := s.orders.TransitionStatus(ctx, orderID,
		[]orderdomain.OrderStatus{orderdomain.StatusCreated}, orderdomain.StatusCancelled)
	switch {
	case err != nil:
		log.Error("cancel order after failed reservation", "err", err)
	case !moved:
		log.Warn("order not cancelled, status already moved", "status", prev)
	default:
		log.Info("order cancelled by inventory")
	}
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

func (s *Service) IsInStock(ctx context.Context, id int64) (bool, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return false, err
	}
	return p.InStock(), nil
}

func (s *Service) StockLevel(ctx context.Context, id int64) (int, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return p.StockQuantity, nil
}

func (s *Service) SetStock(ctx context.Context, id int64, qty int) (domain.Product, error) {
	if qty < 0 {
		return domain.Product{}, domain.ErrNegativeStock
	}
	p, err := s.products.SetStock(ctx, id, qty)
	if err != nil {
		return domain.Product{}, err
	}
	s.log.Info("stock updated", "product_id", id, "stock", qty)
	return p, nil
}
