package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ValidStatus reports whether s is one of the accepted lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// LineItem is one product/quantity pair within an order. Name and Price are
// snapshots copied from the inventory service at order time; they are never
// refreshed, so past orders stay historically accurate even when the source
// product changes later.
type LineItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Order is the aggregate persisted by the order store. After creation only
// Status (and UpdatedAt) ever change.
type Order struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	OwnerName   string     `json:"owner_name"`
	Items       []LineItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Actor identifies the authenticated caller of an operation. Authentication
// happens upstream; handlers only carry the identity through.
type Actor struct {
	ID   string
	Name string
}

// NewOrder builds a pending order from snapshotted line items. TotalAmount is
// derived here, once, and never recomputed.
func NewOrder(actor Actor, items []LineItem) (*Order, error) {
	if actor.ID == "" {
		return nil, Validation("owner is required")
	}
	if len(items) == 0 {
		return nil, Validation("order must contain at least one item")
	}

	var total float64
	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, Validationf("quantity for product %s must be positive", item.ProductID)
		}
		total += item.Price * float64(item.Quantity)
	}

	now := time.Now()
	return &Order{
		ID:          uuid.New().String(),
		OwnerID:     actor.ID,
		OwnerName:   actor.Name,
		Items:       items,
		TotalAmount: total,
		Status:      StatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// OwnedBy reports whether the actor owns this order.
func (o *Order) OwnedBy(actor Actor) bool {
	return o.OwnerID == actor.ID
}

// NeedsCompensation reports whether cancelling or deleting the order must
// release reserved stock. Completed orders represent consumed stock and
// cancelled orders were already compensated.
func (o *Order) NeedsCompensation() bool {
	return o.Status != StatusCompleted && o.Status != StatusCancelled
}
