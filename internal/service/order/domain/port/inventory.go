package port

import "context"

// Availability is the inventory service's answer to an advisory stock read.
// Name and Price feed the order's line-item snapshots.
type Availability struct {
	ProductID string
	Name      string
	Price     float64
	Available int
}

// InventoryService is the outbound port to the inventory boundary.
//
// CheckAvailability is advisory only: stock can change between check and
// reserve, so the authoritative admission decision is Reserve's atomic
// condition. Reserve and Release are tagged with the order id, which makes
// Release idempotent per (order, product) on the inventory side.
type InventoryService interface {
	CheckAvailability(ctx context.Context, productID string, quantity int) (*Availability, error)
	Reserve(ctx context.Context, productID string, quantity int, orderID string) error
	Release(ctx context.Context, productID string, quantity int, orderID string) error
}
