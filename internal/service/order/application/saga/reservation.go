package saga

import (
	"context"

	"golang.org/x/sync/errgroup"

	"shopgrid/internal/pkg/logger"
	"shopgrid/internal/pkg/metrics"
	"shopgrid/internal/service/order/domain"
	"shopgrid/internal/service/order/domain/port"
)

// ReserveItems reserves stock for every line item, fanned out per product
// since each call targets a distinct product. The admission stays
// all-or-nothing from the caller's perspective: if any reservation fails,
// the reservations that did succeed are released before the error surfaces.
//
// Compensations are registered before the reserve attempts rather than after
// each success. Release is an idempotent no-op on the inventory side when no
// reservation is recorded for (order, product), so this also covers the
// ambiguous case of a reserve call that timed out client-side but landed
// server-side.
func ReserveItems(ctx context.Context, inv port.InventoryService, order *domain.Order) error {
	var s Saga
	var g errgroup.Group

	for _, item := range order.Items {
		s.Add(func(compCtx context.Context) {
			if err := inv.Release(compCtx, item.ProductID, item.Quantity, order.ID); err != nil {
				metrics.CompensationFailures.Inc()
				logger.Ctx(compCtx).Error().Err(err).
					Str("order_id", order.ID).
					Str("product_id", item.ProductID).
					Msg("failed to release partial reservation")
			}
		})
		g.Go(func() error {
			return inv.Reserve(ctx, item.ProductID, item.Quantity, order.ID)
		})
	}

	if err := g.Wait(); err != nil {
		s.Compensate(context.WithoutCancel(ctx))
		return err
	}
	return nil
}

// ReleaseItems releases the stock held for every line item of an order,
// fanned out per product. Releases are independent and best-effort, so a
// failed call never prevents the remaining products from being released;
// failures are logged and counted and the first error is returned for the
// caller's records.
func ReleaseItems(ctx context.Context, inv port.InventoryService, order *domain.Order) error {
	var g errgroup.Group
	for _, item := range order.Items {
		g.Go(func() error {
			if err := inv.Release(ctx, item.ProductID, item.Quantity, order.ID); err != nil {
				metrics.CompensationFailures.Inc()
				logger.Ctx(ctx).Error().Err(err).
					Str("order_id", order.ID).
					Str("product_id", item.ProductID).
					Msg("failed to release reservation")
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
