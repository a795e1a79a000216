package domain

import (
	"time"

	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
	"github.com/shopspring/decimal"
)

const EventOrderShipped = "ORDER_SHIPPED"

type OrderShipped struct {
	eventbus.Envelope
	TrackingNumber    string          `json:"trackingNumber"`
	Carrier           string          `json:"carrier"`
	EstimatedDelivery time.Time       `json:"estimatedDelivery"`
	ShippingMethod    string          `json:"shippingMethod"`
	ShippingCost      decimal.Decimal `json:"shippingCost"`
}

func (OrderShipped) EventType() string { return EventOrderShipped }
