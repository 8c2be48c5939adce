package models

import (
	"time"

	"github.com/google/uuid"
)

// Текущий остаток — проекция, материализованная из журнала движений.
// Меняется только вместе с записью в inventory_ledger, никогда напрямую.
type ProductStock struct {
	ProductID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	SellerID         uuid.UUID `gorm:"type:uuid;not null;index"`
	Quantity         int32     `gorm:"not null;default:0"`
	ReorderThreshold int32     `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (ProductStock) TableName() string { return "product_stocks" }

type LedgerReason string

const (
	LedgerReasonManual     LedgerReason = "manual"
	LedgerReasonSale       LedgerReason = "sale"
	LedgerReasonReturn     LedgerReason = "return"
	LedgerReasonRestock    LedgerReason = "restock"
	LedgerReasonAdjustment LedgerReason = "adjustment"
)

// Запись журнала движений. Append-only: после вставки не обновляется и не удаляется.
type LedgerEntry struct {
	ID            uuid.UUID    `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ProductID     uuid.UUID    `gorm:"type:uuid;not null;index:ix_ledger_product_created,priority:1"`
	SellerID      uuid.UUID    `gorm:"type:uuid;not null;index"`
	Change        int32        `gorm:"not null"`
	Reason        LedgerReason `gorm:"type:text;not null"`
	ReferenceID   *uuid.UUID   `gorm:"type:uuid;index"`
	PreviousStock int32        `gorm:"not null"`
	NewStock      int32        `gorm:"not null"`
	Notes         string       `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index:ix_ledger_product_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "inventory_ledger" }

// Строка корзины. Цена и имя — снапшоты на момент добавления,
// на чекауте цена перепроверяется по каталогу.
type CartItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_cart_items_buyer_product"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_cart_items_buyer_product"`
	ProductName    string    `gorm:"type:text;not null"`
	UnitPriceCents int64     `gorm:"not null"`
	Quantity       int32     `gorm:"not null"`
	ImageURL       string    `gorm:"type:text"`
	SellerID       uuid.UUID `gorm:"type:uuid;not null;index"`
	SellerName     string    `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`
}

func (CartItem) TableName() string { return "cart_items" }

type OrderStatus string

const (
	OrderStatusNew        OrderStatus = "ORDER_STATUS_NEW"
	OrderStatusProcessing OrderStatus = "ORDER_STATUS_PROCESSING"
	OrderStatusShipped    OrderStatus = "ORDER_STATUS_SHIPPED"
	OrderStatusDelivered  OrderStatus = "ORDER_STATUS_DELIVERED"
	OrderStatusCancelled  OrderStatus = "ORDER_STATUS_CANCELLED"
	OrderStatusReturned   OrderStatus = "ORDER_STATUS_RETURNED"
)

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "PAYMENT_STATUS_PENDING"
	PaymentStatusPaid     PaymentStatus = "PAYMENT_STATUS_PAID"
	PaymentStatusFailed   PaymentStatus = "PAYMENT_STATUS_FAILED"
	PaymentStatusRefunded PaymentStatus = "PAYMENT_STATUS_REFUNDED"
)

// Заказ. После создания неизменяем, кроме статусов, трекинга и заметок:
// позиции и суммы фиксируются один раз, любые коррекции идут через журнал движений.
type Order struct {
	ID          uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber string        `gorm:"type:text;not null;uniqueIndex:ux_orders_order_number"`
	BuyerID     uuid.UUID     `gorm:"type:uuid;not null;index"`
	TotalCents  int64         `gorm:"not null;default:0"`
	Status      OrderStatus   `gorm:"type:text;not null;default:'ORDER_STATUS_NEW';index"`
	Payment     PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'PAYMENT_STATUS_PENDING';index"`

	ShippingName    string `gorm:"type:text;not null"`
	ShippingPhone   string `gorm:"type:text;not null"`
	ShippingAddress string `gorm:"type:text;not null"`
	ShippingCity    string `gorm:"type:text;not null"`
	ShippingState   string `gorm:"type:text"`
	ShippingPincode string `gorm:"type:text;not null"`

	TrackingCarrier   string     `gorm:"type:text"`
	TrackingNumber    string     `gorm:"type:text"`
	EstimatedDelivery *time.Time ``
	ActualDelivery    *time.Time ``
	CurrentLocation   string     `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index"`
	UpdatedAt time.Time `gorm:"not null;default:now()"`

	Items   []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	History []OrderStatusHistory `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID             uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:ux_order_items_order_product"`
	ProductID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_order_items_order_product"`
	SellerID       uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductName    string    `gorm:"type:text;not null"`
	SKU            string    `gorm:"type:text"`
	Quantity       int32     `gorm:"not null"`
	UnitPriceCents int64     `gorm:"not null"`
	LineTotalCents int64     `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null;default:now()"`
}

func (OrderItem) TableName() string { return "order_items" }

// След статусов: одна запись при создании заказа плюс по одной на каждый принятый переход.
type OrderStatusHistory struct {
	ID      uuid.UUID   `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID uuid.UUID   `gorm:"type:uuid;not null;index:ix_order_history_order_created,priority:1"`
	Status  OrderStatus `gorm:"type:text;not null"`
	Note    string      `gorm:"type:text"`

	CreatedAt time.Time `gorm:"not null;default:now();index:ix_order_history_order_created,priority:2"`
}

func (OrderStatusHistory) TableName() string { return "order_status_history" }
