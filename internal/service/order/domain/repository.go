package domain

import "context"

// OrderRepository is the persistence port for the order aggregate. It lives
// in the domain layer and is implemented by the infrastructure layer. No
// transactional coupling to the inventory service is assumed: sequencing is
// the orchestrator's job.
type OrderRepository interface {
	Create(ctx context.Context, order *Order) error
	FindByID(ctx context.Context, id string) (*Order, error)
	// FindByOwner returns the owner's orders, most recent first.
	FindByOwner(ctx context.Context, ownerID string) ([]Order, error)
	// FindAll returns every order, most recent first.
	FindAll(ctx context.Context) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, status Status) (*Order, error)
	Delete(ctx context.Context, id string) error
}
