package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"shopgrid/internal/pkg/httpclient"
	"shopgrid/internal/pkg/registry"
	"shopgrid/internal/service/order/domain"
	"shopgrid/internal/service/order/domain/port"
)

// InventoryHTTPAdapter implements port.InventoryService against the
// inventory service's HTTP surface. The service address is resolved through
// the registry on every call, and every call carries a bounded timeout;
// expiry and transport failures surface as ErrUnavailable.
type InventoryHTTPAdapter struct {
	client      *httpclient.Client
	registry    registry.Registry
	serviceName string
	timeout     time.Duration
}

func NewInventoryHTTPAdapter(client *httpclient.Client, reg registry.Registry, serviceName string, timeout time.Duration) *InventoryHTTPAdapter {
	return &InventoryHTTPAdapter{
		client:      client,
		registry:    reg,
		serviceName: serviceName,
		timeout:     timeout,
	}
}

type productResponse struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type adjustRequest struct {
	Quantity int    `json:"quantity"`
	OrderID  string `json:"order_id"`
}

type conflictResponse struct {
	Message   string `json:"message"`
	Available int    `json:"available"`
}

func (a *InventoryHTTPAdapter) CheckAvailability(ctx context.Context, productID string, quantity int) (*port.Availability, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	base, err := a.resolve(ctx)
	if err != nil {
		return nil, err
	}

	var resp productResponse
	url := fmt.Sprintf("%s/products/%s", base, productID)
	if err := a.client.DoJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return nil, a.mapError(err, productID, quantity)
	}

	return &port.Availability{
		ProductID: resp.ID,
		Name:      resp.Name,
		Price:     resp.Price,
		Available: resp.Quantity,
	}, nil
}

func (a *InventoryHTTPAdapter) Reserve(ctx context.Context, productID string, quantity int, orderID string) error {
	return a.adjust(ctx, "reserve", productID, quantity, orderID)
}

func (a *InventoryHTTPAdapter) Release(ctx context.Context, productID string, quantity int, orderID string) error {
	return a.adjust(ctx, "release", productID, quantity, orderID)
}

func (a *InventoryHTTPAdapter) adjust(ctx context.Context, op, productID string, quantity int, orderID string) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	base, err := a.resolve(ctx)
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/products/%s/%s", base, productID, op)
	req := adjustRequest{Quantity: quantity, OrderID: orderID}
	if err := a.client.DoJSON(ctx, http.MethodPost, url, req, nil); err != nil {
		return a.mapError(err, productID, quantity)
	}
	return nil
}

func (a *InventoryHTTPAdapter) resolve(ctx context.Context) (string, error) {
	addr, err := a.registry.Resolve(ctx, a.serviceName)
	if err != nil {
		return "", fmt.Errorf("%w: resolving %s: %v", domain.ErrUnavailable, a.serviceName, err)
	}
	return "http://" + addr, nil
}

// mapError translates transport and status failures into the domain
// taxonomy so the application layer never inspects HTTP details.
func (a *InventoryHTTPAdapter) mapError(err error, productID string, requested int) error {
	var serr *httpclient.StatusError
	if errors.As(err, &serr) {
		switch serr.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: product %s", domain.ErrNotFound, productID)
		case http.StatusConflict:
			var body conflictResponse
			_ = json.Unmarshal(serr.Body, &body)
			return &domain.StockShortage{
				ProductID: productID,
				Requested: requested,
				Available: body.Available,
			}
		case http.StatusBadRequest:
			return domain.Validationf("inventory rejected request for product %s", productID)
		default:
			return fmt.Errorf("%w: inventory returned %d", domain.ErrUnavailable, serr.StatusCode)
		}
	}
	// Timeouts, connection refusals, resolution races: all unavailability
	// from the orchestrator's point of view.
	return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
}
