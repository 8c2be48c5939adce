package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type OrderItemEvent struct {
	ProductID  uuid.UUID `json:"product_id"`
	SellerID   uuid.UUID `json:"seller_id"`
	Quantity   int32     `json:"quantity"`
	PriceCents int64     `json:"price_cents"`
	LineTotal  int64     `json:"line_total_cents"`
}

type OrderCreatedEvent struct {
	OrderID     uuid.UUID        `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	BuyerID     uuid.UUID        `json:"buyer_id"`
	Items       []OrderItemEvent `json:"items"`
	TotalCents  int64            `json:"total_cents"`
	CreatedAt   time.Time        `json:"created_at"`
}

type OrderStatusChangedEvent struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber string    `json:"order_number"`
	From        string    `json:"from"`
	To          string    `json:"to"`
	Note        string    `json:"note,omitempty"`
	ChangedAt   time.Time `json:"changed_at"`
}

type LowStockEvent struct {
	ProductID        uuid.UUID `json:"product_id"`
	SellerID         uuid.UUID `json:"seller_id"`
	Quantity         int32     `json:"quantity"`
	ReorderThreshold int32     `json:"reorder_threshold"`
	DetectedAt       time.Time `json:"detected_at"`
}

type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderStatusChanged(ctx context.Context, e OrderStatusChangedEvent) error
	PublishLowStock(ctx context.Context, e LowStockEvent) error
}
