package infrastructure_test

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopgrid/internal/service/inventory/domain"
	"shopgrid/internal/service/inventory/infrastructure"
)

func TestMemoryStock_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 10))

	remaining, err := store.Reserve(ctx, "p1", 4, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 6, remaining)

	remaining, err = store.Release(ctx, "p1", "order-1")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestMemoryStock_ReserveInsufficient(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 2))

	_, err := store.Reserve(ctx, "p1", 3, "order-1")
	var shortage *domain.InsufficientStock
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, 3, shortage.Requested)
	assert.Equal(t, 2, shortage.Available)

	qty, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, qty, "failed reserve must not touch stock")
}

func TestMemoryStock_ReserveUnknownProduct(t *testing.T) {
	store := infrastructure.NewMemoryStockStore()
	_, err := store.Reserve(context.Background(), "ghost", 1, "order-1")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestMemoryStock_ReserveIdempotentPerOrder(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 10))

	_, err := store.Reserve(ctx, "p1", 4, "order-1")
	require.NoError(t, err)

	// A retry of the same (product, order, quantity) reservation must not
	// decrement again.
	_, err = store.Reserve(ctx, "p1", 4, "order-1")
	require.NoError(t, err)

	qty, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, qty)
}

func TestMemoryStock_ReserveSameOrderDifferentQuantityRejected(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 10))

	_, err := store.Reserve(ctx, "p1", 4, "order-1")
	require.NoError(t, err)

	// Not a retry: the same order asking for a different quantity must not
	// be absorbed by the idempotency record.
	_, err = store.Reserve(ctx, "p1", 2, "order-1")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	qty, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 6, qty)
}

func TestMemoryStock_ReleaseWithoutReservationIsNoop(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 10))

	remaining, err := store.Release(ctx, "p1", "order-never-reserved")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestMemoryStock_ReleaseIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 10))

	_, err := store.Reserve(ctx, "p1", 4, "order-1")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		remaining, err := store.Release(ctx, "p1", "order-1")
		require.NoError(t, err)
		assert.Equal(t, 10, remaining)
	}
}

// Two orders racing for the last units: exactly one wins, stock never goes
// negative and never oversells.
func TestMemoryStock_ConcurrentReserveNeverOversells(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 5))

	const contenders = 2
	errs := make([]error, contenders)
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Reserve(ctx, "p1", 3, "order-"+strconv.Itoa(i))
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			var shortage *domain.InsufficientStock
			assert.True(t, errors.As(err, &shortage))
		}
	}
	assert.Equal(t, 1, succeeded)

	qty, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, qty)
}

func TestMemoryStock_ManyConcurrentReservesDrainExactly(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 50))

	const workers = 100
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.Reserve(ctx, "p1", 1, "order-"+strconv.Itoa(i)); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, succeeded)
	qty, err := store.Get(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, qty)
}

// A missing stock counter answers unknown-product even for an order that
// reserved before the counter went away.
func TestMemoryStock_ReserveAfterRemoveIsUnknown(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 10))

	_, err := store.Reserve(ctx, "p1", 4, "order-1")
	require.NoError(t, err)
	require.NoError(t, store.Remove(ctx, "p1"))

	_, err = store.Reserve(ctx, "p1", 4, "order-1")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestMemoryStock_Remove(t *testing.T) {
	ctx := context.Background()
	store := infrastructure.NewMemoryStockStore()
	require.NoError(t, store.Set(ctx, "p1", 5))
	require.NoError(t, store.Remove(ctx, "p1"))

	_, err := store.Get(ctx, "p1")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}
