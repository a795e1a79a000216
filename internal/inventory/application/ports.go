package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
)

type ProductRepository interface {
	Get(ctx context.Context, id int64) (domain.Product, error)
	List(ctx context.Context) ([]domain.Product, error)
	// Reserve takes one unit if stock is positive, atomically.
	Reserve(ctx context.Context, id int64) (domain.ReserveOutcome, error)
	// Release gives one unit back.
	Release(ctx context.Context, id int64) error
	SetStock(ctx context.Context, id int64, qty int) (domain.Product, error)
}

type OrderStatusStore interface {
	TransitionStatus(ctx context.Context, id int64, from []orderdomain.OrderStatus, to orderdomain.OrderStatus) (orderdomain.OrderStatus, bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev eventbus.Event) error
}
