package domain

import "context"

// ProductRepository is the catalog persistence port.
type ProductRepository interface {
	Create(ctx context.Context, product *Product) error
	FindByID(ctx context.Context, id string) (*Product, error)
	FindAll(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, product *Product) error
	Delete(ctx context.Context, id string) error
}

// StockStore owns the authoritative per-product stock counters. Reserve and
// Release are single conditional operations at the storage layer — never a
// read-then-write pair — so concurrent reservations from any number of order
// service instances cannot oversell.
//
// Both operations are tagged with an order id and keep a reservation record
// per (product, order) storing the reserved quantity. The record makes
// Release idempotent (a second release for the same order is a no-op) and
// makes a retried Reserve of the same quantity safe after an ambiguous
// failure; a Reserve for the same order with a different quantity is
// rejected rather than silently absorbed.
type StockStore interface {
	// Set seeds or replaces the counter for a product.
	Set(ctx context.Context, productID string, quantity int) error
	Get(ctx context.Context, productID string) (int, error)
	// Reserve decrements stock by quantity only if enough remains, returning
	// the new quantity. Fails with *InsufficientStock when the condition
	// does not hold, ErrProductNotFound for an unknown counter.
	Reserve(ctx context.Context, productID string, quantity int, orderID string) (int, error)
	// Release returns the quantity recorded for (productID, orderID) to
	// stock and drops the record; without a record it is a no-op.
	Release(ctx context.Context, productID string, orderID string) (int, error)
	Remove(ctx context.Context, productID string) error
}
