package main

import (
	"go.opentelemetry.io/otel"

	"shopgrid/internal/pkg/bootstrap"
	"shopgrid/internal/pkg/httpclient"
	"shopgrid/internal/service/order/application"
	"shopgrid/internal/service/order/infrastructure"
	"shopgrid/internal/service/order/infrastructure/adapter"
	"shopgrid/internal/service/order/interfaces"
)

func main() {
	bootstrap.Run(bootstrap.Options{
		ServiceName: "order-service",
		Setup: func(app *bootstrap.App) (func(), error) {
			repo, err := infrastructure.NewMySQLOrderRepository(&app.Config.MySQL)
			if err != nil {
				return nil, err
			}

			inventory := adapter.NewInventoryHTTPAdapter(
				httpclient.New(otel.Tracer("order-service")),
				app.Registry,
				app.Config.Order.InventoryService,
				app.Config.Order.InventoryTimeout,
			)

			events := adapter.NewEventsKafkaAdapter(&app.Config.Kafka)

			policy, err := application.NewAdmissionPolicy(app.Config.Order.AdmissionPolicy)
			if err != nil {
				return nil, err
			}

			service := application.NewOrderService(
				repo,
				inventory,
				events,
				policy,
				application.StatusUpdatePolicy(app.Config.Order.StatusUpdatePolicy),
				otel.Tracer("order-service"),
			)
			interfaces.NewOrderHandler(service).RegisterRoutes(app.Mux)

			return func() {
				_ = events.Close()
			}, nil
		},
	})
}
