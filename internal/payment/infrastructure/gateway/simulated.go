// Package gateway simulates a card processor. No money moves.
package gateway

import (
	"context"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/internal/payment/application"
	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/latency"
	"github.com/dmehra2102/order-fulfillment/pkg/randx"
	"github.com/shopspring/decimal"
)

var declineReasons = []string{
	"insufficient funds",
	"card declined by issuer",
	"suspected fraud",
}

type Simulated struct {
	log         *slog.Logger
	rng         randx.Source
	delay       latency.Injector
	successRate float64
}

// NewSimulated approves a request when the random draw is below successRate.
func NewSimulated(log *slog.Logger, rng randx.Source, delay latency.Injector, successRate float64) *Simulated {
	if delay == nil {
		delay = latency.None{}
	}
	return &Simulated{
		log:         log.With("component", "payment-gateway"),
		rng:         rng,
		delay:       delay,
		successRate: successRate,
	}
}

func (g *Simulated) Authorize(ctx context.Context, req application.AuthorizationRequest) (domain.Authorization, error) {
	for _, step := range []string{latency.PaymentValidate, latency.PaymentCardCheck, latency.PaymentTransaction, latency.PaymentAuthorize} {
		if err := g.delay.Wait(ctx, step); err != nil {
			return domain.Authorization{}, err
		}
	}

	txn := domain.NewTransactionID()
	if g.rng.Float64() < g.successRate {
		g.log.Debug("authorization approved", "order_id", req.OrderID, "transaction_id", txn)
		return domain.Authorization{Approved: true, TransactionID: txn}, nil
	}
	reason := declineReasons[g.rng.IntN(len(declineReasons))]
	g.log.Debug("authorization declined", "order_id", req.OrderID, "reason", reason)
	return domain.Authorization{TransactionID: txn, DeclineReason: reason}, nil
}

func (g *Simulated) Refund(ctx context.Context, transactionID string, amount decimal.Decimal) error {
	if err := g.delay.Wait(ctx, latency.PaymentTransaction); err != nil {
		return err
	}
	g.log.Info("refund issued", "transaction_id", transactionID, "amount", amount.StringFixed(2))
	return nil
}
