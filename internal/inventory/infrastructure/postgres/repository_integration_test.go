//go:build integration

package postgres

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
	"github.com/dmehra2102/order-fulfillment/internal/platform/postgres/pgtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepo(t *testing.T) *Repository {
	env := pgtest.Setup(t)
	return NewRepository(slog.New(slog.NewTextHandler(io.Discard, nil)), env.Pool)
}

func TestRepository_SeededCatalogue(t *testing.T) {
	repo := newRepo(t)

	products, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 5)
	assert.Equal(t, "Wireless Mouse", products[0].Name)
	assert.Equal(t, "24.99", products[0].Price.StringFixed(2))
}

func TestRepository_ReserveOutcomes(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)

	_, err := repo.SetStock(ctx, 1, 1)
	require.NoError(t, err)

	out, err := repo.Reserve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.Reserved, out)

	out, err = repo.Reserve(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OutOfStock, out)

	out, err = repo.Reserve(ctx, 999)
	require.NoError(t, err)
	assert.Equal(t, domain.NotFound, out)

	require.NoError(t, repo.Release(ctx, 1))
	p, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, p.StockQuantity)

	assert.ErrorIs(t, repo.Release(ctx, 999), domain.ErrProductNotFound)
}

func TestRepository_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	_, err := repo.SetStock(ctx, 2, 10)
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		reserved int
	)
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := repo.Reserve(ctx, 2)
			assert.NoError(t, err)
			if out == domain.Reserved {
				mu.Lock()
				reserved++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, reserved)
	p, err := repo.Get(ctx, 2)
	require.NoError(t, err)
	assert.Zero(t, p.StockQuantity)
}

func TestRepository_SetStockRejectsNegative(t *testing.T) {
	repo := newRepo(t)

	_, err := repo.SetStock(context.Background(), 1, -1)
	assert.ErrorIs(t, err, domain.ErrNegativeStock)

	_, err = repo.SetStock(context.Background(), 999, 3)
	assert.ErrorIs(t, err, domain.ErrProductNotFound)
}
