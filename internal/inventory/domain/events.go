package domain

import "github.com/dmehra2102/order-fulfillment/pkg/eventbus"

const EventInventoryReserved = "INVENTORY_RESERVED"

type InventoryReserved struct {
	eventbus.Envelope
	ReservedProductIDs []int64 `json:"reservedProductIds"`
}

func (InventoryReserved) EventType() string { return EventInventoryReserved }
