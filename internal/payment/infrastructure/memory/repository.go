package memory

import (
	"context"
	"sync"

	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
)

type Repository struct {
	mu       sync.RWMutex
	payments map[int64]domain.Payment
}

func NewRepository() *Repository {
	return &Repository{payments: make(map[int64]domain.Payment)}
}

func (r *Repository) Save(_ context.Context, p domain.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.payments[p.OrderID]; ok && !existing.CreatedAt.IsZero() {
		p.CreatedAt = existing.CreatedAt
	}
	r.payments[p.OrderID] = p
	return nil
}

func (r *Repository) Get(_ context.Context, orderID int64) (domain.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.payments[orderID]
	if !ok {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	return p, nil
}
