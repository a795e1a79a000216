package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{
		log:  log.With("component", "product-store"),
		pool: pool,
	}
}

const selectProduct = `SELECT id, name, description, price::text, stock_quantity, updated_at FROM products`

func (r *Repository) Get(ctx context.Context, id int64) (domain.Product, error) {
	p, err := scanProduct(r.pool.QueryRow(ctx, selectProduct+` WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func (r *Repository) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.pool.Query(ctx, selectProduct+` ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Product, error) {
		return scanProduct(row)
	})
}

// Reserve decrements in a single statement; the row lock taken by UPDATE
// serialises concurrent reservations of the same product.
func (r *Repository) Reserve(ctx context.Context, id int64) (domain.ReserveOutcome, error) {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity - 1, updated_at = now()
		WHERE id = $1 AND stock_quantity > 0`, id)
	if err != nil {
		return "", err
	}
	if ct.RowsAffected() == 1 {
		return domain.Reserved, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id=$1)`, id).Scan(&exists); err != nil {
		return "", err
	}
	if !exists {
		return domain.NotFound, nil
	}
	return domain.OutOfStock, nil
}

func (r *Repository) Release(ctx context.Context, id int64) error {
	ct, err := r.pool.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity + 1, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (r *Repository) SetStock(ctx context.Context, id int64, qty int) (domain.Product, error) {
	if qty < 0 {
		return domain.Product{}, domain.ErrNegativeStock
	}
	p, err := scanProduct(r.pool.QueryRow(ctx, `UPDATE products SET stock_quantity = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, description, price::text, stock_quantity, updated_at`, id, qty))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return p, err
}

func scanProduct(row pgx.Row) (domain.Product, error) {
	var (
		p     domain.Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.StockQuantity, &p.UpdatedAt); err != nil {
		return domain.Product{}, err
	}
	var err error
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return domain.Product{}, fmt.Errorf("product %d price: %w", p.ID, err)
	}
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
