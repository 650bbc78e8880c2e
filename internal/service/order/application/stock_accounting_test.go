package application_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"shopgrid/internal/pkg/httpclient"
	"shopgrid/internal/pkg/registry"
	"shopgrid/internal/service/order/application"
	"shopgrid/internal/service/order/domain"
	"shopgrid/internal/service/order/infrastructure/adapter"

	invapp "shopgrid/internal/service/inventory/application"
	invdomain "shopgrid/internal/service/inventory/domain"
	invinfra "shopgrid/internal/service/inventory/infrastructure"
	invhttp "shopgrid/internal/service/inventory/interfaces"
)

// Runs the orchestrator against a real inventory service over the wire: the
// HTTP handler in front of the in-memory stores, resolved through a static
// table, reached via the production adapter.
func newInventoryFixture(t *testing.T) (*invapp.InventoryService, invdomain.StockStore, *adapter.InventoryHTTPAdapter) {
	t.Helper()

	stock := invinfra.NewMemoryStockStore()
	invSvc := invapp.NewInventoryService(invinfra.NewMemoryProductRepository(), stock, otel.Tracer("test"))

	mux := http.NewServeMux()
	invhttp.NewInventoryHandler(invSvc).RegisterRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	reg := registry.NewStatic(map[string]string{
		"inventory-service": strings.TrimPrefix(server.URL, "http://"),
	})
	invAdapter := adapter.NewInventoryHTTPAdapter(
		httpclient.New(otel.Tracer("test")), reg, "inventory-service", 3*time.Second)

	return invSvc, stock, invAdapter
}

func TestSubmitOrder_DuplicateLineItemsChargeStockOnce(t *testing.T) {
	ctx := context.Background()
	invSvc, stock, invAdapter := newInventoryFixture(t)

	product, err := invSvc.CreateProduct(ctx, invapp.ProductInput{
		Name: "Widget", Price: 10.0, Quantity: 100,
	})
	require.NoError(t, err)

	repo := &repoMock{}
	policy, err := application.NewAdmissionPolicy("")
	require.NoError(t, err)
	svc := application.NewOrderService(repo, invAdapter, nil, policy, "", otel.Tracer("test"))

	order, err := svc.SubmitOrder(ctx, alice, []application.SubmitItem{
		{ProductID: product.ID, Quantity: 2},
		{ProductID: product.ID, Quantity: 3},
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, order.TotalAmount, 1e-9)

	// The charged quantity and the reserved quantity must agree.
	qty, err := stock.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 95, qty)

	// Cancelling restores everything the order was charged for.
	repo.findByIDFn = func(string) (*domain.Order, error) { return order, nil }
	repo.updateStatusFn = func(id string, status domain.Status) (*domain.Order, error) {
		updated := *order
		updated.Status = status
		return &updated, nil
	}
	_, err = svc.SetStatus(ctx, order.ID, domain.StatusCancelled, alice)
	require.NoError(t, err)

	qty, err = stock.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, 100, qty)
}
