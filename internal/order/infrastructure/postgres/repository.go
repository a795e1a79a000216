package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewRepository(log *slog.Logger, pool *pgxpool.Pool) *Repository {
	return &Repository{log: log.With("component", "order-store"), pool: pool}
}

const selectOrder = `
	SELECT o.id, o.user_id, a.line, o.total_amount::text, o.status, o.payment_method, o.shipping_method,
	       o.special_instructions, o.customer_email, o.customer_phone, o.tracking_number,
	       o.correlation_id, o.created_at, o.updated_at
	FROM orders o
	JOIN addresses a ON a.id = o.address_id`

func (r *Repository) Create(ctx context.Context, o domain.Order) (domain.Order, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Order{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `INSERT INTO users (id, email, phone) VALUES ($1,$2,$3)
		ON CONFLICT (id) DO UPDATE SET
			email = COALESCE(NULLIF(EXCLUDED.email, ''), users.email),
			phone = COALESCE(NULLIF(EXCLUDED.phone, ''), users.phone)`,
		o.UserID, o.CustomerEmail, o.CustomerPhone)
	if err != nil {
		return domain.Order{}, fmt.Errorf("upsert user: %w", err)
	}

	var addressID int64
	if err = tx.QueryRow(ctx, `INSERT INTO addresses (user_id, line) VALUES ($1,$2) RETURNING id`,
		o.UserID, o.ShippingAddress).Scan(&addressID); err != nil {
		return domain.Order{}, fmt.Errorf("insert address: %w", err)
	}

	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	o.UpdatedAt = o.CreatedAt
	err = tx.QueryRow(ctx, `INSERT INTO orders (user_id, address_id, total_amount, status, payment_method,
			shipping_method, special_instructions, customer_email, customer_phone, tracking_number,
			correlation_id, created_at, updated_at)
		VALUES ($1,$2,$3::text::numeric,$4,$5,$6,$7,$8,$9,$10,$11,$12,$12)
		RETURNING id`,
		o.UserID, addressID, o.TotalAmount.String(), string(o.Status), string(o.PaymentMethod),
		string(o.ShippingMethod), o.SpecialInstructions, o.CustomerEmail, o.CustomerPhone,
		o.TrackingNumber, o.CorrelationID, o.CreatedAt).Scan(&o.ID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	batch := &pgx.Batch{}
	for i, productID := range o.ProductIDs {
		batch.Queue(`INSERT INTO order_products (order_id, position, product_id) VALUES ($1,$2,$3)`,
			o.ID, i, productID)
	}
	if err = tx.SendBatch(ctx, batch).Close(); err != nil {
		return domain.Order{}, fmt.Errorf("insert order products: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return domain.Order{}, err
	}
	return o, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (domain.Order, error) {
	o, err := scanOrder(r.pool.QueryRow(ctx, selectOrder+` WHERE o.id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, err
	}

	products, err := r.productIDs(ctx, []int64{id})
	if err != nil {
		return domain.Order{}, err
	}
	o.ProductIDs = products[id]
	return o, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, selectOrder+` WHERE o.user_id=$1 ORDER BY o.created_at DESC, o.id DESC`, userID)
	if err != nil {
		return nil, err
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return []domain.Order{}, nil
	}

	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		ids = append(ids, o.ID)
	}
	products, err := r.productIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].ProductIDs = products[orders[i].ID]
	}
	return orders, nil
}

// TransitionStatus locks the row so two stages cannot both move the same order.
func (r *Repository) TransitionStatus(ctx context.Context, id int64, from []domain.OrderStatus, to domain.OrderStatus) (domain.OrderStatus, bool, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var current string
	err = tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1 FOR UPDATE`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, domain.ErrOrderNotFound
	}
	if err != nil {
		return "", false, err
	}
	prev := domain.OrderStatus(current)
	if !slices.Contains(from, prev) {
		return prev, false, tx.Commit(ctx)
	}

	if _, err = tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=now() WHERE id=$1`, id, string(to)); err != nil {
		return prev, false, err
	}
	if err = tx.Commit(ctx); err != nil {
		return prev, false, err
	}
	return prev, true, nil
}

func (r *Repository) SetTrackingNumber(ctx context.Context, id int64, tracking string) error {
	ct, err := r.pool.Exec(ctx, `UPDATE orders SET tracking_number=$2, updated_at=now() WHERE id=$1`, id, tracking)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (r *Repository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[domain.OrderStatus(status)] = n
	}
	return counts, rows.Err()
}

func (r *Repository) productIDs(ctx context.Context, orderIDs []int64) (map[int64][]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT order_id, product_id FROM order_products
		WHERE order_id = ANY($1) ORDER BY order_id, position`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]int64, len(orderIDs))
	for rows.Next() {
		var orderID, productID int64
		if err := rows.Scan(&orderID, &productID); err != nil {
			return nil, err
		}
		out[orderID] = append(out[orderID], productID)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (domain.Order, error) {
	var (
		o                     domain.Order
		total, status, pm, sm string
	)
	err := row.Scan(&o.ID, &o.UserID, &o.ShippingAddress, &total, &status, &pm, &sm,
		&o.SpecialInstructions, &o.CustomerEmail, &o.CustomerPhone, &o.TrackingNumber,
		&o.CorrelationID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return domain.Order{}, err
	}
	if o.TotalAmount, err = decimal.NewFromString(total); err != nil {
		return domain.Order{}, fmt.Errorf("order %d total: %w", o.ID, err)
	}
	o.Status = domain.OrderStatus(status)
	o.PaymentMethod = domain.PaymentMethod(pm)
	o.ShippingMethod = domain.ShippingMethod(sm)
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return o, nil
}
