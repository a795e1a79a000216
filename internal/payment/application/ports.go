package application

import (
	"context"

	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/shopspring/decimal"
)

type PaymentRepository interface {
	Save(ctx context.Context, p domain.Payment) error
	Get(ctx context.Context, orderID int64) (domain.Payment, error)
}

type AuthorizationRequest struct {
	OrderID int64
	Amount  decimal.Decimal
	Method  string
}

// Gateway authorizes and refunds payments. The bundled implementation simulates one.
type Gateway interface {
	Authorize(ctx context.Context, req AuthorizationRequest) (domain.Authorization, error)
	Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error
}

type OrderStore interface {
	Get(ctx context.Context, id int64) (orderdomain.Order, error)
	TransitionStatus(ctx context.Context, id int64, from []orderdomain.OrderStatus, to orderdomain.OrderStatus) (orderdomain.OrderStatus, bool, error)
}

type Publisher interface {
	Publish(ctx context.Context, ev eventbus.Event) error
}
