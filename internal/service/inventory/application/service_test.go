package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"shopgrid/internal/service/inventory/application"
	"shopgrid/internal/service/inventory/domain"
	"shopgrid/internal/service/inventory/infrastructure"
)

func newService(t *testing.T) *application.InventoryService {
	t.Helper()
	return application.NewInventoryService(
		infrastructure.NewMemoryProductRepository(),
		infrastructure.NewMemoryStockStore(),
		otel.Tracer("test"),
	)
}

func TestCreateProduct_SeedsStock(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	product, err := svc.CreateProduct(ctx, application.ProductInput{
		Name: "Widget", Price: 9.99, Quantity: 25,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, product.ID)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 25, got.Quantity)
}

func TestCreateProduct_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.CreateProduct(ctx, application.ProductInput{Name: "", Price: 1, Quantity: 1})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.CreateProduct(ctx, application.ProductInput{Name: "X", Price: -1, Quantity: 1})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.CreateProduct(ctx, application.ProductInput{Name: "X", Price: 1, Quantity: -1})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestGetProduct_OverlaysLiveQuantity(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	product, err := svc.CreateProduct(ctx, application.ProductInput{
		Name: "Widget", Price: 9.99, Quantity: 10,
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, product.ID, 4, "order-1")
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, got.Quantity, "catalog read must reflect the live counter")
}

func TestReserve_Validation(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.Reserve(ctx, "p1", 0, "order-1")
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = svc.Reserve(ctx, "p1", 1, "")
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestReserve_UnknownProduct(t *testing.T) {
	svc := newService(t)
	_, err := svc.Reserve(context.Background(), "ghost", 1, "order-1")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}

func TestReserve_InsufficientStock(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	product, err := svc.CreateProduct(ctx, application.ProductInput{
		Name: "Widget", Price: 9.99, Quantity: 2,
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, product.ID, 5, "order-1")
	var shortage *domain.InsufficientStock
	require.True(t, errors.As(err, &shortage))
	assert.Equal(t, 2, shortage.Available)
}

func TestRelease_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	product, err := svc.CreateProduct(ctx, application.ProductInput{
		Name: "Widget", Price: 9.99, Quantity: 10,
	})
	require.NoError(t, err)

	_, err = svc.Reserve(ctx, product.ID, 4, "order-1")
	require.NoError(t, err)

	remaining, err := svc.Release(ctx, product.ID, "order-1")
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestUpdateProduct_ResetsCounter(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	product, err := svc.CreateProduct(ctx, application.ProductInput{
		Name: "Widget", Price: 9.99, Quantity: 10,
	})
	require.NoError(t, err)

	_, err = svc.UpdateProduct(ctx, product.ID, application.ProductInput{
		Name: "Widget v2", Price: 12.50, Quantity: 42,
	})
	require.NoError(t, err)

	got, err := svc.GetProduct(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget v2", got.Name)
	assert.Equal(t, 42, got.Quantity)
}

func TestDeleteProduct_RemovesCounter(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	product, err := svc.CreateProduct(ctx, application.ProductInput{
		Name: "Widget", Price: 9.99, Quantity: 10,
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProduct(ctx, product.ID))

	_, err = svc.GetProduct(ctx, product.ID)
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))

	_, err = svc.Reserve(ctx, product.ID, 1, "order-1")
	assert.True(t, errors.Is(err, domain.ErrProductNotFound))
}
