package service

import (
	"context"
	"time"

	"marketplace-core/internal/models"

	"github.com/google/uuid"
)

type AddItemInput struct {
	ProductID uuid.UUID
	Quantity  int32
}

type ShippingInput struct {
	Name    string
	Phone   string
	Address string
	City    string
	State   string
	Pincode string
}

type CartView struct {
	Items         []models.CartItem
	SubtotalCents int64
}

type TrackingInput struct {
	Carrier           *string
	TrackingNumber    *string
	EstimatedDelivery *time.Time
	ActualDelivery    *time.Time
	CurrentLocation   *string
}

type OrderListFilter struct {
	Status  *models.OrderStatus
	Payment *models.PaymentStatus
	Limit   int
	Offset  int
}

type StockLevel string

const (
	StockLevelOut StockLevel = "out_of_stock"
	StockLevelLow StockLevel = "low_stock"
)

type LowStockItem struct {
	ProductID        uuid.UUID  `json:"product_id"`
	Quantity         int32      `json:"quantity"`
	ReorderThreshold int32      `json:"reorder_threshold"`
	Level            StockLevel `json:"level"`
}

type ReconcileResult struct {
	ProductID  uuid.UUID `json:"product_id"`
	LedgerSum  int64     `json:"ledger_sum"`
	Projection int32     `json:"projection"`
	Consistent bool      `json:"consistent"`
}

type CartService interface {
	AddItem(ctx context.Context, in AddItemInput) (*CartView, error)
	RemoveItem(ctx context.Context, productID uuid.UUID) (*CartView, error)
	GetCart(ctx context.Context) (*CartView, error)
	ClearCart(ctx context.Context) error
}

// Кэш отчёта о низких остатках (per seller, TTL). Инвалидируется любой записью
// журнала по товарам продавца.
type LowStockCache interface {
	Get(ctx context.Context, sellerID uuid.UUID) ([]LowStockItem, bool)
	Set(ctx context.Context, sellerID uuid.UUID, items []LowStockItem)
	Invalidate(ctx context.Context, sellerID uuid.UUID)
}

type CheckoutService interface {
	// PlaceOrder — атомарный чекаут: заказ + списания через журнал + очистка корзины,
	// либо ничего.
	PlaceOrder(ctx context.Context, shipping ShippingInput) (*models.Order, error)
}

type OrderService interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListBuyerOrders(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error)
	ListSellerOrders(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus, note string) (*models.Order, error)
	UpdatePaymentStatus(ctx context.Context, id uuid.UUID, to models.PaymentStatus) (*models.Order, error)
	UpdateTracking(ctx context.Context, id uuid.UUID, in TrackingInput) (*models.Order, error)
}

type InventoryService interface {
	RegisterProduct(ctx context.Context, productID uuid.UUID, threshold, initialQty int32) (*models.ProductStock, error)
	GetStock(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error)
	// QuickUpdateStock: продавец задаёт новый остаток, дельта считается и пишется в журнал.
	QuickUpdateStock(ctx context.Context, productID uuid.UUID, newQuantity int32, reason models.LedgerReason, notes string) (*models.ProductStock, error)
	SetReorderThreshold(ctx context.Context, productID uuid.UUID, threshold int32) (*models.ProductStock, error)
	ListLowStock(ctx context.Context) ([]LowStockItem, error)
	ListLedgerByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	ListLedgerBySeller(ctx context.Context, limit int) ([]models.LedgerEntry, error)
	ListLedgerByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEntry, error)
	// Reconcile сверяет свёртку журнала с проекцией остатка. Не для горячего пути.
	Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileResult, error)
}

// Каталог — внешний коллаборатор: имя/цена/продавец по товару.
// На чекауте цена перепроверяется, расхождение валит чекаут (ErrPriceChanged).
type CatalogProduct struct {
	ProductID      uuid.UUID
	Name           string
	SKU            string
	UnitPriceCents int64
	SellerID       uuid.UUID
	SellerName     string
	ImageURL       string
	Active         bool
}

type Catalog interface {
	GetProduct(ctx context.Context, productID uuid.UUID) (*CatalogProduct, error)
	GetProducts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]CatalogProduct, error)
}
