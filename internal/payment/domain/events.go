package domain

import (
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/shopspring/decimal"
)

const EventPaymentProcessed = "PAYMENT_PROCESSED"

type PaymentProcessed struct {
	eventbus.Envelope
	Success            bool            `json:"success"`
	TransactionID      string          `json:"transactionId"`
	PaymentMethod      string          `json:"paymentMethod"`
	Amount             decimal.Decimal `json:"amount"`
	FailureReason      string          `json:"failureReason,omitempty"`
	ReservedProductIDs []int64         `json:"reservedProductIds"`
}

func (PaymentProcessed) EventType() string { return EventPaymentProcessed }
