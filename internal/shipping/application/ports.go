package application

import (
	"context"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
)

type OrderStore interface {
	Get(ctx context.Context, id int64) (orderdomain.Order, error)
	TransitionStatus(ctx context.Context, id int64, from []orderdomain.OrderStatus, to orderdomain.OrderStatus) (orderdomain.OrderStatus, bool, error)
	SetTrackingNumber(ctx context.Context, id int64, tracking string) error
}

type Publisher interface {
	Publish(ctx context.Context, ev eventbus.Event) error
}

// CarrierSelector picks the carrier for a shipment.
type CarrierSelector interface {
	Select(ctx context.Context, order orderdomain.Order) domain.Carrier
}
