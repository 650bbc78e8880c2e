package adapter

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"shopgrid/internal/pkg/config"
	"shopgrid/internal/service/order/domain/port"
)

// EventsKafkaAdapter publishes order lifecycle events to a Kafka topic,
// keyed by order id so all events of one order land in the same partition.
type EventsKafkaAdapter struct {
	writer *kafka.Writer
}

func NewEventsKafkaAdapter(cfg *config.KafkaConfig) *EventsKafkaAdapter {
	return &EventsKafkaAdapter{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(cfg.Brokers...),
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (a *EventsKafkaAdapter) Publish(ctx context.Context, event port.OrderEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	err = a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.OrderID),
		Value: payload,
	})
	return errors.Wrap(err, "write order event")
}

func (a *EventsKafkaAdapter) Close() error {
	return a.writer.Close()
}
