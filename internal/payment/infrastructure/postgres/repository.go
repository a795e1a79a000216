package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/payment/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log.With("component", "payment-store"), pool: pool}
}

// Save upserts the ledger row of an order; created_at is kept from the first write.
func (r *Repository) Save(ctx context.Context, p domain.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO payments (order_id, transaction_id, method, amount, status, failure_reason, created_at, updated_at)
		VALUES ($1,$2,$3,$4::text::numeric,$5,$6,$7,$8)
		ON CONFLICT (order_id) DO UPDATE SET
			transaction_id=EXCLUDED.transaction_id, method=EXCLUDED.method, amount=EXCLUDED.amount,
			status=EXCLUDED.status, failure_reason=EXCLUDED.failure_reason, updated_at=EXCLUDED.updated_at`,
		p.OrderID, p.TransactionID, p.Method, p.Amount.String(), string(p.Status), p.FailureReason, p.CreatedAt, p.UpdatedAt)
	return err
}

func (r *Repository) Get(ctx context.Context, orderID int64) (domain.Payment, error) {
	var (
		p      domain.Payment
		amount string
		status string
	)
	err := r.pool.QueryRow(ctx, `SELECT order_id, transaction_id, method, amount::text, status, failure_reason, created_at, updated_at
		FROM payments WHERE order_id=$1`, orderID).
		Scan(&p.OrderID, &p.TransactionID, &p.Method, &amount, &status, &p.FailureReason, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Payment{}, domain.ErrPaymentNotFound
	}
	if err != nil {
		return domain.Payment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return domain.Payment{}, fmt.Errorf("payment %d amount: %w", orderID, err)
	}
	p.Status = domain.Status(status)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}
