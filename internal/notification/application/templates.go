package application

import (
	"fmt"

	invdomain "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
	orderdomain "github.com/dmehra2102/order-fulfillment/internal/order/domain"
	paydomain "github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	shipdomain "github.com/dmehra2102/order-fulfillment/internal/shipping/domain"
	"github.com/dmehra2102/order-fulfillment/pkg/eventbus"
)

func trackingLink(orderID int64) string {
	return fmt.Sprintf("orderapp://orders/%d/track", orderID)
}

func address(o orderdomain.Order, ch domain.Channel) domain.Message {
	msg := domain.Message{OrderID: o.ID, UserID: o.UserID, Channel: ch}
	switch ch {
	case domain.ChannelEmail:
		msg.Recipient = o.CustomerEmail
	case domain.ChannelSMS:
		msg.Recipient = o.CustomerPhone
	}
	if msg.Recipient == "" {
		msg.Recipient = fmt.Sprintf("user:%d", o.UserID)
	}
	return msg
}

func fanOut(o orderdomain.Order, kind domain.Kind, title, body string, channels ...domain.Channel) []domain.Message {
	out := make([]domain.Message, 0, len(channels))
	for _, ch := range channels {
		msg := address(o, ch)
		msg.Kind = kind
		msg.Title = title
		msg.Body = body
		out = append(out, msg)
	}
	return out
}

// compose renders the messages for one event. Unknown events yield none.
func compose(ev eventbus.Event, o orderdomain.Order) []domain.Message {
	number := o.OrderNumber()
	switch e := ev.(type) {
	case orderdomain.OrderCreated:
		return fanOut(o, domain.KindOrderConfirmation, "Order received",
			fmt.Sprintf("Thanks for your order %s. Total: $%s. We will let you know when it ships.", number, e.TotalAmount.StringFixed(2)),
			standardChannels...)

	case invdomain.InventoryReserved:
		return fanOut(o, domain.KindInventoryConfirmed, "Items reserved",
			fmt.Sprintf("All %d item(s) of order %s are reserved. Processing payment now.", len(e.ReservedProductIDs), number),
			standardChannels...)

	case paydomain.PaymentProcessed:
		if e.Success {
			return fanOut(o, domain.KindPaymentConfirmed, "Payment confirmed",
				fmt.Sprintf("Payment of $%s for order %s was approved (transaction %s).", e.Amount.StringFixed(2), number, e.TransactionID),
				standardChannels...)
		}
		return fanOut(o, domain.KindPaymentFailed, "Payment failed",
			fmt.Sprintf("Payment for order %s could not be completed: %s.", number, e.FailureReason),
			standardChannels...)

	case shipdomain.OrderShipped:
		body := fmt.Sprintf("Order %s shipped with %s. Tracking number %s. Estimated delivery %s.",
			number, e.Carrier, e.TrackingNumber, e.EstimatedDelivery.Format(shipdomain.DeliveryDateLayout))
		msgs := fanOut(o, domain.KindOrderShipped, "Your order is on its way", body,
			domain.ChannelEmail, domain.ChannelSMS, domain.ChannelPush, domain.ChannelDeepLink)
		msgs[len(msgs)-1].Link = trackingLink(o.ID)
		return msgs

	case orderdomain.OrderCancelled:
		return fanOut(o, domain.KindOrderCancelled, "Order cancelled",
			fmt.Sprintf("Order %s was cancelled: %s.", number, e.Reason),
			standardChannels...)
	}
	return nil
}
