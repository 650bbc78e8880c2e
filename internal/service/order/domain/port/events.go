package port

import (
	"context"
	"time"
)

// EventType enumerates the order lifecycle events published for downstream
// consumers (notifications, analytics).
type EventType string

const (
	EventOrderCreated   EventType = "order.created"
	EventOrderCancelled EventType = "order.cancelled"
	EventOrderDeleted   EventType = "order.deleted"
)

// OrderEvent is the wire payload for a lifecycle event.
type OrderEvent struct {
	Type        EventType `json:"type"`
	OrderID     string    `json:"order_id"`
	OwnerID     string    `json:"owner_id"`
	TotalAmount float64   `json:"total_amount"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EventProducer publishes order lifecycle events. Publication is best-effort:
// the orchestrator logs failures but never fails an order operation over
// them.
type EventProducer interface {
	Publish(ctx context.Context, event OrderEvent) error
}
