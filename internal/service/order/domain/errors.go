package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared across the order and inventory boundaries. Handlers
// map these onto HTTP status codes; adapters map downstream responses back
// onto them, so the application layer never inspects transport details.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrForbidden   = errors.New("access denied")
	ErrConflict    = errors.New("conflict")
	ErrUnavailable = errors.New("service unavailable")
)

// Validation wraps ErrValidation with a caller-facing message.
func Validation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}

func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// StockShortage names the offending product when a submission is rejected or
// a reservation loses the stock race. It unwraps to ErrConflict so callers
// can branch on the taxonomy without knowing the concrete type.
type StockShortage struct {
	ProductID string
	Requested int
	Available int
}

func (e *StockShortage) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *StockShortage) Unwrap() error { return ErrConflict }
