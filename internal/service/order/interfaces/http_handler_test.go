package interfaces_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"shopgrid/internal/service/order/application"
	"shopgrid/internal/service/order/domain"
	"shopgrid/internal/service/order/domain/port"
	"shopgrid/internal/service/order/interfaces"
)

type repoStub struct {
	orders map[string]*domain.Order
}

func (s *repoStub) Create(_ context.Context, o *domain.Order) error {
	s.orders[o.ID] = o
	return nil
}

func (s *repoStub) FindByID(_ context.Context, id string) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (s *repoStub) FindByOwner(_ context.Context, ownerID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *repoStub) FindAll(_ context.Context) ([]domain.Order, error) {
	var out []domain.Order
	for _, o := range s.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (s *repoStub) UpdateStatus(_ context.Context, id string, status domain.Status) (*domain.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	o.Status = status
	return o, nil
}

func (s *repoStub) Delete(_ context.Context, id string) error {
	if _, ok := s.orders[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.orders, id)
	return nil
}

type invStub struct {
	availability map[string]*port.Availability
	checkErr     error
}

func (s *invStub) CheckAvailability(_ context.Context, productID string, _ int) (*port.Availability, error) {
	if s.checkErr != nil {
		return nil, s.checkErr
	}
	avail, ok := s.availability[productID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return avail, nil
}

func (s *invStub) Reserve(context.Context, string, int, string) error { return nil }
func (s *invStub) Release(context.Context, string, int, string) error { return nil }

func newTestServer(t *testing.T, repo *repoStub, inv *invStub) *httptest.Server {
	t.Helper()
	policy, err := application.NewAdmissionPolicy("")
	require.NoError(t, err)
	svc := application.NewOrderService(repo, inv, nil, policy, application.StatusUpdateOpen, otel.Tracer("test"))

	mux := http.NewServeMux()
	interfaces.NewOrderHandler(svc).RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, body, userID string) *http.Response {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
		req.Header.Set("X-User-Name", "tester")
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func seededRepo() *repoStub {
	return &repoStub{orders: map[string]*domain.Order{
		"order-1": {
			ID:      "order-1",
			OwnerID: "user-1",
			Status:  domain.StatusPending,
			Items:   []domain.LineItem{{ProductID: "p1", Price: 10, Quantity: 1}},
		},
	}}
}

func stockedInventory() *invStub {
	return &invStub{availability: map[string]*port.Availability{
		"p1": {ProductID: "p1", Name: "Widget", Price: 10, Available: 5},
	}}
}

func TestSubmitOrder_Created(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodPost, server.URL+"/orders",
		`{"products":[{"product_id":"p1","quantity":2}]}`, "user-1")
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, "user-1", order.OwnerID)
	assert.Equal(t, domain.StatusPending, order.Status)
	assert.InDelta(t, 20.0, order.TotalAmount, 1e-9)
}

func TestSubmitOrder_MissingIdentity(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodPost, server.URL+"/orders",
		`{"products":[{"product_id":"p1","quantity":1}]}`, "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestSubmitOrder_MalformedBody(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodPost, server.URL+"/orders", `{not json`, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitOrder_InsufficientStockIsBadRequest(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodPost, server.URL+"/orders",
		`{"products":[{"product_id":"p1","quantity":99}]}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["message"], "insufficient stock")
}

func TestSubmitOrder_InventoryDown(t *testing.T) {
	inv := stockedInventory()
	inv.checkErr = domain.ErrUnavailable
	server := newTestServer(t, seededRepo(), inv)

	resp := do(t, http.MethodPost, server.URL+"/orders",
		`{"products":[{"product_id":"p1","quantity":1}]}`, "user-1")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestGetOrder_OwnerSeesOrder(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodGet, server.URL+"/orders/order-1", "", "user-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetOrder_NonOwnerForbidden(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodGet, server.URL+"/orders/order-1", "", "user-2")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestGetOrder_NotFound(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodGet, server.URL+"/orders/ghost", "", "user-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSetStatus_InvalidValue(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodPatch, server.URL+"/orders/order-1/status",
		`{"status":"shipped"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSetStatus_Updates(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodPatch, server.URL+"/orders/order-1/status",
		`{"status":"completed"}`, "user-2")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var order domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&order))
	assert.Equal(t, domain.StatusCompleted, order.Status)
}

func TestDeleteOrder_NonOwnerForbidden(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodDelete, server.URL+"/orders/order-1", "", "user-2")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestDeleteOrder_Owner(t *testing.T) {
	repo := seededRepo()
	server := newTestServer(t, repo, stockedInventory())

	resp := do(t, http.MethodDelete, server.URL+"/orders/order-1", "", "user-1")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, repo.orders)
}

func TestListOrders_ScopedToCaller(t *testing.T) {
	repo := seededRepo()
	repo.orders["order-2"] = &domain.Order{ID: "order-2", OwnerID: "user-2", Status: domain.StatusPending}
	server := newTestServer(t, repo, stockedInventory())

	resp := do(t, http.MethodGet, server.URL+"/orders", "", "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	require.Len(t, orders, 1)
	assert.Equal(t, "order-1", orders[0].ID)
}

func TestListAllOrders_ReturnsEveryOrder(t *testing.T) {
	repo := seededRepo()
	repo.orders["order-2"] = &domain.Order{ID: "order-2", OwnerID: "user-2", Status: domain.StatusPending}
	server := newTestServer(t, repo, stockedInventory())

	resp := do(t, http.MethodGet, server.URL+"/orders/all", "", "user-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var orders []domain.Order
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&orders))
	assert.Len(t, orders, 2)
}

func TestHealthz(t *testing.T) {
	server := newTestServer(t, seededRepo(), stockedInventory())

	resp := do(t, http.MethodGet, server.URL+"/healthz", "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
