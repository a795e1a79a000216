package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type Sender interface {
	Channel() domain.Channel
	Send(ctx context.Context, msg domain.Message) error
}

type OrderReader interface {
	Get(ctx context.Context, id int64) (orderdomain.Order, error)
}

type HistoryStore interface {
	Append(ctx context.Context, d domain.Delivery) error
	ForOrder(ctx context.Context, orderID int64) ([]domain.Delivery, error)
}
