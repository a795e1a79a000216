// Package latency injects artificial delays into named workflow steps.
package latency

import (
	"context"
	"time"
)

type Injector interface {
	Wait(ctx context.Context, step string) error
}

// None never delays.
type None struct{}

func (None) Wait(ctx context.Context, _ string) error { return ctx.Err() }

// Fixed delays each known step by its configured duration. Unknown steps pass through.
type Fixed map[string]time.Duration

func (f Fixed) Wait(ctx context.Context, step string) error {
	d, ok := f[step]
	if !ok || d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Step names used by the fulfillment stages.
const (
	InventoryLookup      = "inventory.lookup"
	PaymentValidate      = "payment.validate"
	PaymentCardCheck     = "payment.card_check"
	PaymentTransaction   = "payment.transaction"
	PaymentAuthorize     = "payment.authorize"
	ShippingCarrier      = "shipping.carrier"
	ShippingLabel        = "shipping.label"
	NotificationDispatch = "notification.dispatch"
)

// Simulated returns delays resembling a slow demo environment.
func Simulated() Fixed {
	return Fixed{
		InventoryLookup:      100 * time.Millisecond,
		PaymentValidate:      500 * time.Millisecond,
		PaymentCardCheck:     300 * time.Millisecond,
		PaymentTransaction:   800 * time.Millisecond,
		PaymentAuthorize:     400 * time.Millisecond,
		ShippingCarrier:      300 * time.Millisecond,
		ShippingLabel:        200 * time.Millisecond,
		NotificationDispatch: 50 * time.Millisecond,
	}
}
