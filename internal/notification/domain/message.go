package domain

import (
	"errors"
	"time"
)

var ErrUnknownChannel = errors.New("unknown notification channel")

type Channel string

const (
	ChannelEmail    Channel = "EMAIL"
	ChannelSMS      Channel = "SMS"
	ChannelPush     Channel = "PUSH"
	ChannelDeepLink Channel = "DEEP_LINK"
)

func ParseChannel(s string) (Channel, error) {
	switch c := Channel(s); c {
	case ChannelEmail, ChannelSMS, ChannelPush, ChannelDeepLink:
		return c, nil
	}
	return "", ErrUnknownChannel
}

type Kind string

const (
	KindOrderConfirmation  Kind = "ORDER_CONFIRMATION"
	KindInventoryConfirmed Kind = "INVENTORY_CONFIRMED"
	KindPaymentConfirmed   Kind = "PAYMENT_CONFIRMED"
	KindPaymentFailed      Kind = "PAYMENT_FAILED"
	KindOrderShipped       Kind = "ORDER_SHIPPED"
	KindOrderCancelled     Kind = "ORDER_CANCELLED"
	KindCustom             Kind = "CUSTOM"
)

type Message struct {
	OrderID   int64   `json:"orderId"`
	UserID    int64   `json:"userId"`
	Kind      Kind    `json:"kind"`
	Channel   Channel `json:"channel"`
	Recipient string  `json:"recipient"`
	Title     string  `json:"title"`
	Body      string  `json:"body"`
	Link      string  `json:"link,omitempty"`
}

// Delivery records one send attempt. Error is empty on success.
type Delivery struct {
	Message
	EventID string    `json:"eventId,omitempty"`
	SentAt  time.Time `json:"sentAt"`
	Error   string    `json:"error,omitempty"`
}
