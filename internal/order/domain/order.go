package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound  = errors.New("order not found")
	ErrUnknownStatus  = errors.New("unknown order status")
	ErrNotCancellable = errors.New("order cannot be cancelled")
	ErrInvalidStatus  = errors.New("invalid status transition")
)

type OrderStatus string

const (
	StatusCreated           OrderStatus = "CREATED"
	StatusInventoryReserved OrderStatus = "INVENTORY_RESERVED"
	StatusPaymentProcessed  OrderStatus = "PAYMENT_PROCESSED"
	StatusPaymentConfirmed  OrderStatus = "PAYMENT_CONFIRMED"
	StatusPreparingShipment OrderStatus = "PREPARING_SHIPMENT"
	StatusShipped           OrderStatus = "SHIPPED"
	StatusDelivered         OrderStatus = "DELIVERED"
	StatusCancelled         OrderStatus = "CANCELLED"
	StatusPaymentFailed     OrderStatus = "PAYMENT_FAILED"
)

// Statuses lists every status in pipeline order, terminal failures last.
var Statuses = []OrderStatus{
	StatusCreated,
	StatusInventoryReserved,
	StatusPaymentProcessed,
	StatusPaymentConfirmed,
	StatusPreparingShipment,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
	StatusPaymentFailed,
}

var validNext = map[OrderStatus]map[OrderStatus]bool{
	StatusCreated:           {StatusInventoryReserved: true, StatusCancelled: true},
	StatusInventoryReserved: {StatusPaymentProcessed: true, StatusCancelled: true},
	StatusPaymentProcessed:  {StatusPaymentConfirmed: true, StatusPaymentFailed: true, StatusCancelled: true},
	StatusPaymentConfirmed:  {StatusPreparingShipment: true, StatusCancelled: true},
	StatusPreparingShipment: {StatusShipped: true, StatusCancelled: true},
	StatusShipped:           {StatusDelivered: true},
	StatusDelivered:         {},
	StatusCancelled:         {},
	StatusPaymentFailed:     {},
}

func CanTransition(from, to OrderStatus) bool {
	return validNext[from][to]
}

func ParseStatus(s string) (OrderStatus, error) {
	st := OrderStatus(s)
	if _, ok := validNext[st]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
	return st, nil
}

// CancellableStatuses are the pre-shipment statuses a customer may cancel from.
func CancellableStatuses() []OrderStatus {
	return []OrderStatus{
		StatusCreated,
		StatusInventoryReserved,
		StatusPaymentProcessed,
		StatusPaymentConfirmed,
		StatusPreparingShipment,
	}
}

func (s OrderStatus) Cancellable() bool {
	for _, c := range CancellableStatuses() {
		if s == c {
			return true
		}
	}
	return false
}

// HoldsReservation reports whether stock was reserved for an order in this status.
func (s OrderStatus) HoldsReservation() bool {
	switch s {
	case StatusInventoryReserved, StatusPaymentProcessed, StatusPaymentConfirmed, StatusPreparingShipment:
		return true
	}
	return false
}

// PaymentCaptured reports whether an authorization exists that must be refunded on cancel.
func (s OrderStatus) PaymentCaptured() bool {
	return s == StatusPaymentConfirmed || s == StatusPreparingShipment
}

type PaymentMethod string

const (
	PaymentCreditCard PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard  PaymentMethod = "DEBIT_CARD"
	PaymentPayPal     PaymentMethod = "PAYPAL"
	PaymentApplePay   PaymentMethod = "APPLE_PAY"
	PaymentGooglePay  PaymentMethod = "GOOGLE_PAY"
)

type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "STANDARD"
	ShippingExpress   ShippingMethod = "EXPRESS"
	ShippingOvernight ShippingMethod = "OVERNIGHT"
	ShippingSameDay   ShippingMethod = "SAME_DAY"
)

// Order is one customer purchase. ProductIDs holds one entry per unit; a
// product listed twice reserves two units.
type Order struct {
	ID                  int64           `json:"orderId"`
	UserID              int64           `json:"userId"`
	ShippingAddress     string          `json:"shippingAddress"`
	ProductIDs          []int64         `json:"productIds"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`
	Status              OrderStatus     `json:"status"`
	PaymentMethod       PaymentMethod   `json:"paymentMethod"`
	ShippingMethod      ShippingMethod  `json:"shippingMethod"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
	CustomerEmail       string          `json:"customerEmail,omitempty"`
	CustomerPhone       string          `json:"customerPhone,omitempty"`
	TrackingNumber      string          `json:"trackingNumber,omitempty"`
	CorrelationID       string          `json:"correlationId"`
	CreatedAt           time.Time       `json:"orderDate"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

func NewOrder(userID int64, address string, productIDs []int64, total decimal.Decimal, pm PaymentMethod, sm ShippingMethod) Order {
	if sm == "" {
		sm = ShippingStandard
	}
	now := time.Now().UTC()
	return Order{
		UserID:          userID,
		ShippingAddress: address,
		ProductIDs:      append([]int64(nil), productIDs...),
		TotalAmount:     total,
		Status:          StatusCreated,
		PaymentMethod:   pm,
		ShippingMethod:  sm,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func (o Order) OrderNumber() string {
	return fmt.Sprintf("ORD-%08d", o.ID)
}
