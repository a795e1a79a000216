package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/order-fulfillment/internal/notification/domain"
)

const DefaultPerOrder = 50

// History keeps the most recent deliveries of each order, oldest first.
type History struct {
	mu       sync.RWMutex
	perOrder int
	byOrder  map[int64][]domain.Delivery
}

func NewHistory(perOrder int) *History {
	if perOrder <= 0 {
		perOrder = DefaultPerOrder
	}
	return &History{perOrder: perOrder, byOrder: make(map[int64][]domain.Delivery)}
}

func (h *History) Append(_ context.Context, d domain.Delivery) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	list := append(h.byOrder[d.OrderID], d)
	if over := len(list) - h.perOrder; over > 0 {
		list = append([]domain.Delivery(nil), list[over:]...)
	}
	h.byOrder[d.OrderID] = list
	return nil
}

func (h *History) ForOrder(_ context.Context, orderID int64) ([]domain.Delivery, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return append([]domain.Delivery(nil), h.byOrder[orderID]...), nil
}
