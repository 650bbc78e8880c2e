package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"shopgrid/internal/pkg/logger"
	"shopgrid/internal/service/inventory/domain"
)

// ProductInput is a catalog create/update request. ID is optional on create;
// a fresh one is assigned when empty.
type ProductInput struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// InventoryService manages the product catalog and arbitrates stock. The
// catalog row carries the seed quantity; the stock store owns the live
// counter from then on, and every read overlays the live value.
type InventoryService struct {
	repo   domain.ProductRepository
	stock  domain.StockStore
	tracer trace.Tracer
}

func NewInventoryService(repo domain.ProductRepository, stock domain.StockStore, tracer trace.Tracer) *InventoryService {
	return &InventoryService{repo: repo, stock: stock, tracer: tracer}
}

func (s *InventoryService) CreateProduct(ctx context.Context, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}

	product := &domain.Product{
		ID:       in.ID,
		Name:     strings.TrimSpace(in.Name),
		Price:    in.Price,
		Quantity: in.Quantity,
	}
	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	if err := s.stock.Set(ctx, product.ID, product.Quantity); err != nil {
		return nil, fmt.Errorf("seed stock counter: %w", err)
	}

	logger.Ctx(ctx).Info().
		Str("product_id", product.ID).
		Int("quantity", product.Quantity).
		Msg("product created")
	return product, nil
}

// GetProduct returns the catalog entry with the live stock quantity
// overlaid. A missing counter falls back to the catalog seed.
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if qty, err := s.stock.Get(ctx, id); err == nil {
		product.Quantity = qty
	} else if !errors.Is(err, domain.ErrProductNotFound) {
		return nil, err
	}
	return product, nil
}

func (s *InventoryService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if qty, err := s.stock.Get(ctx, products[i].ID); err == nil {
			products[i].Quantity = qty
		}
	}
	return products, nil
}

// UpdateProduct replaces the catalog entry and resets the stock counter to
// the submitted quantity, dropping nothing from the reservation records.
func (s *InventoryService) UpdateProduct(ctx context.Context, id string, in ProductInput) (*domain.Product, error) {
	if err := validateProduct(in); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:       id,
		Name:     strings.TrimSpace(in.Name),
		Price:    in.Price,
		Quantity: in.Quantity,
	}
	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	if err := s.stock.Set(ctx, id, in.Quantity); err != nil {
		return nil, fmt.Errorf("reset stock counter: %w", err)
	}

	logger.Ctx(ctx).Info().
		Str("product_id", id).
		Int("quantity", in.Quantity).
		Msg("product updated")
	return product, nil
}

func (s *InventoryService) DeleteProduct(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.stock.Remove(ctx, id); err != nil {
		return fmt.Errorf("remove stock counter: %w", err)
	}
	logger.Ctx(ctx).Info().Str("product_id", id).Msg("product deleted")
	return nil
}

// Reserve decrements stock for an order via the store's conditional update.
// The returned quantity is the value after the decrement.
func (s *InventoryService) Reserve(ctx context.Context, productID string, quantity int, orderID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Reserve")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.Int("reserve.quantity", quantity),
		attribute.String("order.id", orderID),
	)

	if quantity <= 0 {
		return 0, fmt.Errorf("%w: quantity must be a positive integer", domain.ErrValidation)
	}
	if orderID == "" {
		return 0, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	remaining, err := s.stock.Reserve(ctx, productID, quantity, orderID)
	if err != nil {
		var shortage *domain.InsufficientStock
		if errors.As(err, &shortage) {
			logger.Ctx(ctx).Info().
				Str("product_id", productID).
				Int("requested", quantity).
				Int("available", shortage.Available).
				Msg("reservation rejected")
		}
		span.RecordError(err)
		return 0, err
	}

	logger.Ctx(ctx).Info().
		Str("product_id", productID).
		Str("order_id", orderID).
		Int("remaining", remaining).
		Msg("stock reserved")
	return remaining, nil
}

// Release returns the quantity held by an order to stock. Releasing an order
// that holds nothing is a successful no-op.
func (s *InventoryService) Release(ctx context.Context, productID string, orderID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Release")
	defer span.End()
	span.SetAttributes(
		attribute.String("product.id", productID),
		attribute.String("order.id", orderID),
	)

	if orderID == "" {
		return 0, fmt.Errorf("%w: order id is required", domain.ErrValidation)
	}

	remaining, err := s.stock.Release(ctx, productID, orderID)
	if err != nil {
		span.RecordError(err)
		return 0, err
	}

	logger.Ctx(ctx).Info().
		Str("product_id", productID).
		Str("order_id", orderID).
		Int("remaining", remaining).
		Msg("stock released")
	return remaining, nil
}

func validateProduct(in ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return fmt.Errorf("%w: product name is required", domain.ErrValidation)
	}
	if in.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", domain.ErrValidation)
	}
	if in.Quantity < 0 {
		return fmt.Errorf("%w: quantity must not be negative", domain.ErrValidation)
	}
	return nil
}
