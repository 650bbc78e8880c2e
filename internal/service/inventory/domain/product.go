package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrValidation      = errors.New("validation failed")
)

// InsufficientStock is returned when a reserve loses its atomic condition.
// Available carries the quantity observed by the conditional update so the
// caller can report it.
type InsufficientStock struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStock) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Product is the catalog entry. Quantity reflects live stock as reported by
// the stock store; the catalog row only seeds it.
type Product struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
