// Package memory keeps orders in process memory. It backs tests and the
// default STORE_DRIVER=memory mode.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

type Repository struct {
	mu     sync.RWMutex
	nextID int64
	orders map[int64]domain.Order
	now    func() time.Time
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[int64]domain.Order), now: func() time.Time { return time.Now().UTC() }}
}

func clone(o domain.Order) domain.Order {
	o.ProductIDs = append([]int64(nil), o.ProductIDs...)
	return o
}

func (r *Repository) Create(_ context.Context, o domain.Order) (domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	o.ID = r.nextID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now()
	}
	o.UpdatedAt = o.CreatedAt
	r.orders[o.ID] = clone(o)
	return clone(o), nil
}

func (r *Repository) Get(_ context.Context, id int64) (domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return clone(o), nil
}

func (r *Repository) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Order, 0)
	for _, o := range r.orders {
		if o.UserID == userID {
			out = append(out, clone(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UpdateStatus forces a status without any precondition. It is not part of
// the store port; tests use it to stage an order mid-pipeline.
func (r *Repository) UpdateStatus(_ context.Context, id int64, status domain.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = r.now()
	r.orders[id] = o
	return nil
}

func (r *Repository) TransitionStatus(_ context.Context, id int64, from []domain.OrderStatus, to domain.OrderStatus) (domain.OrderStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return "", false, domain.ErrOrderNotFound
	}
	prev := o.Status
	if !slices.Contains(from, prev) {
		return prev, false, nil
	}
	o.Status = to
	o.UpdatedAt = r.now()
	r.orders[id] = o
	return prev, true, nil
}

func (r *Repository) SetTrackingNumber(_ context.Context, id int64, tracking string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	o.TrackingNumber = tracking
	o.UpdatedAt = r.now()
	r.orders[id] = o
	return nil
}

func (r *Repository) CountByStatus(_ context.Context) (map[domain.OrderStatus]int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[domain.OrderStatus]int64)
	for _, o := range r.orders {
		counts[o.Status]++
	}
	return counts, nil
}
