package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
)

// Repository holds the product catalogue in memory. Reserve and Release are
// serialised by one mutex, which makes decrement-if-positive atomic.
type Repository struct {
	mu       sync.Mutex
	products map[int64]domain.Product
}

func NewRepository(products ...domain.Product) *Repository {
	r := &Repository{products: make(map[int64]domain.Product, len(products))}
	for _, p := range products {
		r.products[p.ID] = p
	}
	return r
}

func (r *Repository) Get(_ context.Context, id int64) (domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, nil
}

func (r *Repository) List(_ context.Context) ([]domain.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Product, 0, len(r.products))
	for _, p := range r.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repository) Reserve(_ context.Context, id int64) (domain.ReserveOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.NotFound, nil
	}
	if p.StockQuantity <= 0 {
		return domain.OutOfStock, nil
	}
	p.StockQuantity--
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return domain.Reserved, nil
}

func (r *Repository) Release(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.ErrProductNotFound
	}
	p.StockQuantity++
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return nil
}

func (r *Repository) SetStock(_ context.Context, id int64, qty int) (domain.Product, error) {
	if qty < 0 {
		return domain.Product{}, domain.ErrNegativeStock
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	p.StockQuantity = qty
	p.UpdatedAt = time.Now().UTC()
	r.products[id] = p
	return p, nil
}
