package application

import (
	"context"

	"github.com/dmehra2102/order-fulfillment/internal/orchestrator/domain"
	paydomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
)

type StockReleaser interface {
	ReleaseAll(ctx context.Context, productIDs []int64)
}

type Refunder interface {
	Refund(ctx context.Context, orderID int64) (paydomain.Payment, error)
}

// JourneyStore serializes updates per order through fn.
type JourneyStore interface {
	Update(ctx context.Context, orderID int64, fn func(*domain.Journey)) error
	Get(ctx context.Context, orderID int64) (domain.Journey, error)
}
