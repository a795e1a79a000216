package domain

import (
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated   = "ORDER_CREATED"
	EventOrderCancelled = "ORDER_CANCELLED"
)

type OrderCreated struct {
	eventbus.Envelope
	ProductIDs     []int64         `json:"productIds"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	ShippingMethod ShippingMethod  `json:"shippingMethod"`
}

func (OrderCreated) EventType() string { return EventOrderCreated }

func NewOrderCreated(o Order) OrderCreated {
	return OrderCreated{
		Envelope:       eventbus.NewEnvelope(EventOrderCreated, o.ID, o.UserID, o.CorrelationID),
		ProductIDs:     append([]int64(nil), o.ProductIDs...),
		TotalAmount:    o.TotalAmount,
		PaymentMethod:  o.PaymentMethod,
		ShippingMethod: o.ShippingMethod,
	}
}

// OrderCancelled is published when a customer cancels. PreviousStatus tells
// compensating handlers what has to be undone.
type OrderCancelled struct {
	eventbus.Envelope
	PreviousStatus OrderStatus `json:"previousStatus"`
	Reason         string      `json:"reason"`
	ProductIDs     []int64     `json:"productIds"`
}

func (OrderCancelled) EventType() string { return EventOrderCancelled }

func NewOrderCancelled(o Order, previous OrderStatus, reason string) OrderCancelled {
	return OrderCancelled{
		Envelope:       eventbus.NewEnvelope(EventOrderCancelled, o.ID, o.UserID, o.CorrelationID),
		PreviousStatus: previous,
		Reason:         reason,
		ProductIDs:     append([]int64(nil), o.ProductIDs...),
	}
}
