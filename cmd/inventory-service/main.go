package main

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"

	"shopgrid/internal/pkg/bootstrap"
	"shopgrid/internal/pkg/redis"
	"shopgrid/internal/service/inventory/application"
	"shopgrid/internal/service/inventory/domain"
	"shopgrid/internal/service/inventory/infrastructure"
	"shopgrid/internal/service/inventory/interfaces"
)

func main() {
	bootstrap.Run(bootstrap.Options{
		ServiceName: "inventory-service",
		Setup: func(app *bootstrap.App) (func(), error) {
			var (
				repo    domain.ProductRepository
				stock   domain.StockStore
				cleanup func()
			)

			switch app.Config.Inventory.StockBackend {
			case "memory":
				repo = infrastructure.NewMemoryProductRepository()
				stock = infrastructure.NewMemoryStockStore()
			case "redis", "":
				mysqlRepo, err := infrastructure.NewMySQLProductRepository(&app.Config.MySQL)
				if err != nil {
					return nil, err
				}
				rdb := redis.NewClient(&app.Config.Redis)
				pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := rdb.Ping(pingCtx); err != nil {
					return nil, fmt.Errorf("ping redis: %w", err)
				}
				repo = mysqlRepo
				stock = infrastructure.NewRedisStockStore(rdb)
				cleanup = func() { _ = rdb.Close() }
			default:
				return nil, fmt.Errorf("unknown stock backend %q", app.Config.Inventory.StockBackend)
			}

			service := application.NewInventoryService(repo, stock, otel.Tracer("inventory-service"))
			interfaces.NewInventoryHandler(service).RegisterRoutes(app.Mux)
			return cleanup, nil
		},
	})
}
