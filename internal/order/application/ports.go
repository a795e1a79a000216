package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
)

type OrderRepository interface {
	// Create assigns the order id.
	Create(ctx context.Context, o domain.Order) (domain.Order, error)
	Get(ctx context.Context, id int64) (domain.Order, error)
	// ListByUser returns the user's orders, newest first.
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	// TransitionStatus moves the order to `to` only if its current status is one
	// of `from`. It returns the status found before the call.
	TransitionStatus(ctx context.Context, id int64, from []domain.OrderStatus, to domain.OrderStatus) (domain.OrderStatus, bool, error)
	SetTrackingNumber(ctx context.Context, id int64, tracking string) error
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev eventbus.Event) error
}

type Metrics interface {
	OrderPlaced()
	OrderCancelled()
}

type nopMetrics struct{}

func (nopMetrics) OrderPlaced()    {}
func (nopMetrics) OrderCancelled() {}
