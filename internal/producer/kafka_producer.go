package producer

import (
	"context"
	"encoding/json"
	"time"

	"marketplace-core/internal/service"

	"github.com/segmentio/kafka-go"
)

// EventProducer публикует доменные события заказов и остатков в Kafka.
// Реализует service.EventBus.
type EventProducer struct {
	writer *kafka.Writer
}

func NewEventProducer(brokers []string) *EventProducer {
	return &EventProducer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireAll,
		},
	}
}

const (
	topicOrderCreated  = "orders.created"
	topicOrderStatus   = "orders.status_changed"
	topicLowStockAlert = "inventory.low_stock"
)

func (p *EventProducer) publish(ctx context.Context, topic, key string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
	})
}

func (p *EventProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return p.publish(ctx, topicOrderCreated, e.OrderID.String(), e)
}

func (p *EventProducer) PublishOrderStatusChanged(ctx context.Context, e service.OrderStatusChangedEvent) error {
	return p.publish(ctx, topicOrderStatus, e.OrderID.String(), e)
}

func (p *EventProducer) PublishLowStock(ctx context.Context, e service.LowStockEvent) error {
	// ключ — товар: алерты по одному товару попадают в одну партицию по порядку
	return p.publish(ctx, topicLowStockAlert, e.ProductID.String(), e)
}

func (p *EventProducer) Close() error {
	return p.writer.Close()
}
