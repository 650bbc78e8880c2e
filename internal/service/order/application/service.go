package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"shopgrid/internal/pkg/logger"
	"shopgrid/internal/pkg/metrics"
	"shopgrid/internal/service/order/application/saga"
	"shopgrid/internal/service/order/domain"
	"shopgrid/internal/service/order/domain/port"
)

// StatusUpdatePolicy controls who may change an order's status. The
// surrounding authorization model treats status changes as administrative,
// so the surface historically left them open to any caller; deployments that
// want owner-only updates flip this in configuration.
type StatusUpdatePolicy string

const (
	StatusUpdateOpen      StatusUpdatePolicy = "open"
	StatusUpdateOwnerOnly StatusUpdatePolicy = "owner"
)

// SubmitItem is one requested product/quantity pair in a submission.
type SubmitItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderService coordinates validation, reservation, persistence and
// compensation for the order lifecycle. It owns the sequencing across the
// order store and the inventory service; neither side offers a shared
// transaction.
type OrderService struct {
	repo         domain.OrderRepository
	inventory    port.InventoryService
	events       port.EventProducer
	policy       *AdmissionPolicy
	statusPolicy StatusUpdatePolicy
	tracer       trace.Tracer
}

func NewOrderService(
	repo domain.OrderRepository,
	inventory port.InventoryService,
	events port.EventProducer,
	policy *AdmissionPolicy,
	statusPolicy StatusUpdatePolicy,
	tracer trace.Tracer,
) *OrderService {
	if statusPolicy == "" {
		statusPolicy = StatusUpdateOpen
	}
	return &OrderService{
		repo:         repo,
		inventory:    inventory,
		events:       events,
		policy:       policy,
		statusPolicy: statusPolicy,
		tracer:       tracer,
	}
}

// SubmitOrder runs the persist-then-reserve saga:
//
//  1. Advisory availability fan-out; any shortfall or unknown product aborts
//     the whole submission with nothing persisted and no stock touched.
//  2. Line-item snapshots (name, price) are taken from the availability
//     responses and the total derived.
//  3. The order is persisted as pending — the commit point.
//  4. Stock is reserved per item, tagged with the order id. A partial
//     failure releases the reservations made in this submission and
//     surfaces the error; the persisted order stays pending for
//     reconciliation rather than being rolled back.
func (s *OrderService) SubmitOrder(ctx context.Context, actor domain.Actor, items []SubmitItem) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Submit")
	defer span.End()

	if len(items) == 0 {
		metrics.AdmissionRejections.WithLabelValues("validation").Inc()
		return nil, domain.Validation("products are required")
	}
	for _, item := range items {
		if item.ProductID == "" {
			metrics.AdmissionRejections.WithLabelValues("validation").Inc()
			return nil, domain.Validation("product id is required")
		}
		if item.Quantity <= 0 {
			metrics.AdmissionRejections.WithLabelValues("validation").Inc()
			return nil, domain.Validationf("quantity for product %s must be a positive integer", item.ProductID)
		}
	}

	// Duplicate product ids are folded into one line item so each product
	// maps to exactly one reservation per order; without this, the second
	// reserve would hit the per-(product, order) idempotency record and be
	// answered as a no-op while the order charges for both.
	items = mergeItems(items)

	lineItems, err := s.checkAvailability(ctx, items)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "admission failed")
		s.countRejection(err)
		return nil, err
	}

	order, err := domain.NewOrder(actor, lineItems)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Admit(order); err != nil {
		metrics.AdmissionRejections.WithLabelValues("policy").Inc()
		return nil, err
	}

	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.Float64("order.total_amount", order.TotalAmount),
		attribute.Int("order.items", len(order.Items)),
	)

	// Commit point: once the store acknowledges, the order exists no matter
	// what happens downstream.
	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.AddEvent("order persisted")

	if err := saga.ReserveItems(ctx, s.inventory, order); err != nil {
		// The order stays pending with no reservations held; a reconciler
		// (or the owner cancelling) settles it later.
		metrics.ReservationGaps.Inc()
		if errors.Is(err, domain.ErrConflict) {
			metrics.ReservationConflicts.Inc()
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "reservation failed after commit")
		logger.Ctx(ctx).Warn().Err(err).
			Str("order_id", order.ID).
			Msg("order persisted but reservation failed; left pending for reconciliation")
		return nil, err
	}
	span.AddEvent("all items reserved")

	metrics.OrdersCreated.Inc()
	s.publish(ctx, port.EventOrderCreated, order)

	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("owner_id", order.OwnerID).
		Float64("total_amount", order.TotalAmount).
		Msg("order created")
	return order, nil
}

// mergeItems folds repeated product ids into a single entry with the summed
// quantity, preserving first-occurrence order.
func mergeItems(items []SubmitItem) []SubmitItem {
	index := make(map[string]int, len(items))
	merged := make([]SubmitItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

// checkAvailability fans out the advisory reads, one goroutine per product,
// and assembles snapshots in request order. The result is advisory: the
// authoritative decision is each Reserve call's atomic condition.
func (s *OrderService) checkAvailability(ctx context.Context, items []SubmitItem) ([]domain.LineItem, error) {
	lineItems := make([]domain.LineItem, len(items))

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range items {
		g.Go(func() error {
			avail, err := s.inventory.CheckAvailability(gctx, item.ProductID, item.Quantity)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.Validationf("product %s not found", item.ProductID)
				}
				return err
			}
			if avail.Available < item.Quantity {
				return &domain.StockShortage{
					ProductID: item.ProductID,
					Requested: item.Quantity,
					Available: avail.Available,
				}
			}
			lineItems[i] = domain.LineItem{
				ProductID: item.ProductID,
				Name:      avail.Name,
				Price:     avail.Price,
				Quantity:  item.Quantity,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lineItems, nil
}

// SetStatus updates an order's lifecycle state. Transitioning into cancelled
// compensates the reservations first; compensation failures are recorded but
// never block the status change, since a cancelled order with unreleased
// stock is less harmful than an order stuck mid-transition.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, newStatus domain.Status, actor domain.Actor) (*domain.Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.SetStatus")
	defer span.End()

	if !domain.ValidStatus(newStatus) {
		return nil, domain.Validationf("invalid status %q, valid values: pending, processing, completed, cancelled", newStatus)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if s.statusPolicy == StatusUpdateOwnerOnly && !order.OwnedBy(actor) {
		return nil, domain.ErrForbidden
	}

	if newStatus == domain.StatusCancelled && order.Status != domain.StatusCancelled {
		// Best-effort: errors are already logged and counted inside.
		_ = saga.ReleaseItems(ctx, s.inventory, order)
		span.AddEvent("reservations released")
	}

	updated, err := s.repo.UpdateStatus(ctx, orderID, newStatus)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if newStatus == domain.StatusCancelled {
		s.publish(ctx, port.EventOrderCancelled, updated)
	}
	logger.Ctx(ctx).Info().
		Str("order_id", orderID).
		Str("status", string(newStatus)).
		Msg("order status updated")
	return updated, nil
}

// DeleteOrder removes an order. Only the owner may delete. Orders that still
// hold stock (neither completed nor cancelled) are compensated first.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID string, actor domain.Actor) error {
	ctx, span := s.tracer.Start(ctx, "order.Delete")
	defer span.End()

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.OwnedBy(actor) {
		return domain.ErrForbidden
	}

	if order.NeedsCompensation() {
		_ = saga.ReleaseItems(ctx, s.inventory, order)
		span.AddEvent("reservations released")
	}

	if err := s.repo.Delete(ctx, orderID); err != nil {
		span.RecordError(err)
		return err
	}

	s.publish(ctx, port.EventOrderDeleted, order)
	logger.Ctx(ctx).Info().Str("order_id", orderID).Msg("order deleted")
	return nil
}

// GetOrder returns a single order; only the owner may read it.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor domain.Actor) (*domain.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.OwnedBy(actor) {
		return nil, domain.ErrForbidden
	}
	return order, nil
}

// ListOrders returns the actor's orders, most recent first.
func (s *OrderService) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	return s.repo.FindByOwner(ctx, actor.ID)
}

// ListAllOrders returns every order, most recent first. Administrative.
func (s *OrderService) ListAllOrders(ctx context.Context) ([]domain.Order, error) {
	return s.repo.FindAll(ctx)
}

func (s *OrderService) publish(ctx context.Context, typ port.EventType, order *domain.Order) {
	if s.events == nil {
		return
	}
	event := port.OrderEvent{
		Type:        typ,
		OrderID:     order.ID,
		OwnerID:     order.OwnerID,
		TotalAmount: order.TotalAmount,
		OccurredAt:  time.Now(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Ctx(ctx).Warn().Err(err).
			Str("order_id", order.ID).
			Str("event", string(typ)).
			Msg("failed to publish order event")
	}
}

func (s *OrderService) countRejection(err error) {
	switch {
	case errors.Is(err, domain.ErrConflict):
		metrics.AdmissionRejections.WithLabelValues("insufficient_stock").Inc()
	case errors.Is(err, domain.ErrValidation):
		metrics.AdmissionRejections.WithLabelValues("validation").Inc()
	case errors.Is(err, domain.ErrUnavailable):
		metrics.AdmissionRejections.WithLabelValues("inventory_unavailable").Inc()
	}
}
