package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type checkoutService struct {
	repo    *repository.Repository
	catalog Catalog
	events  EventBus
	cache   LowStockCache
	log     *zap.Logger
	now     func() time.Time
}

func NewCheckoutService(repo *repository.Repository, catalog Catalog, events EventBus, cache LowStockCache, log *zap.Logger) CheckoutService {
	return &checkoutService{
		repo:    repo,
		catalog: catalog,
		events:  events,
		cache:   cache,
		log:     log,
		now:     time.Now,
	}
}

func validateShipping(in ShippingInput) error {
	required := []string{in.Name, in.Phone, in.Address, in.City, in.Pincode}
	for _, f := range required {
		if strings.TrimSpace(f) == "" {
			return ErrShippingIncomplete
		}
	}
	return nil
}

func (s *checkoutService) PlaceOrder(ctx context.Context, shipping ShippingInput) (*models.Order, error) {
	buyerID, err := requireBuyer(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateShipping(shipping); err != nil {
		return nil, err
	}

	var (
		order    *models.Order
		lowStock []LowStockEvent
	)

	// Повторяем транзакцию целиком при сериализационном конфликте или
	// коллизии номера заказа; после исчерпания бюджета — PersistenceConflict.
	for attempt := 1; ; attempt++ {
		order, lowStock, err = s.tryPlaceOrder(ctx, buyerID, shipping)
		if err == nil {
			break
		}
		retryable := isRetryableConflict(err) || isUniqueViolation(err, "ux_orders_order_number")
		if !retryable {
			return nil, err
		}
		if attempt >= maxTxAttempts {
			s.log.Warn("checkout retry budget exhausted",
				zap.String("buyer_id", buyerID.String()), zap.Error(err))
			return nil, ErrPersistenceConflict
		}
		s.log.Debug("checkout conflict, retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		if err := backoff(ctx, attempt); err != nil {
			return nil, err
		}
	}

	s.log.Info("order placed",
		zap.String("order_number", order.OrderNumber),
		zap.String("buyer_id", buyerID.String()),
		zap.Int64("total_cents", order.TotalCents))

	s.publish(ctx, order, lowStock)
	return order, nil
}

// tryPlaceOrder — одна атомарная попытка: снапшот корзины в заказ, списание
// каждого товара через журнал, очистка корзины. Либо всё, либо ничего.
func (s *checkoutService) tryPlaceOrder(ctx context.Context, buyerID uuid.UUID, shipping ShippingInput) (*models.Order, []LowStockEvent, error) {
	var (
		order    *models.Order
		lowStock []LowStockEvent
		now      = s.now()
	)

	// Каталог опрашивается до открытия транзакции: сетевой вызов с 5s таймаутом
	// не должен держать соединение БД. Внутри транзакции корзина перечитывается.
	snapshot, err := s.repo.Carts.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, nil, err
	}
	if len(snapshot) == 0 {
		return nil, nil, ErrCartEmpty
	}
	ids := make([]uuid.UUID, 0, len(snapshot))
	for _, it := range snapshot {
		ids = append(ids, it.ProductID)
	}
	products, err := s.catalog.GetProducts(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	err = s.repo.WithTx(func(tx *repository.Repository) error {
		cartItems, err := tx.Carts.ListByBuyer(ctx, buyerID)
		if err != nil {
			return err
		}
		if len(cartItems) == 0 {
			return ErrCartEmpty
		}

		var (
			total   int64
			itemsDB = make([]models.OrderItem, 0, len(cartItems))
		)
		for _, it := range cartItems {
			// Товар, доехавший в корзину после снапшота, в выборке каталога
			// отсутствует и валит попытку так же, как снятый с продажи.
			p, ok := products[it.ProductID]
			if !ok || !p.Active {
				return fmt.Errorf("%w: %s", ErrProductNotFound, it.ProductID)
			}
			// Цена перепроверяется на чекауте: расхождение со снапшотом корзины
			// валит чекаут, а не молча переснимается.
			if p.UnitPriceCents != it.UnitPriceCents {
				return fmt.Errorf("%w: %s", ErrPriceChanged, it.ProductID)
			}

			line := int64(it.Quantity) * p.UnitPriceCents
			total += line
			itemsDB = append(itemsDB, models.OrderItem{
				ProductID:      it.ProductID,
				SellerID:       p.SellerID,
				ProductName:    p.Name,
				SKU:            p.SKU,
				Quantity:       it.Quantity,
				UnitPriceCents: p.UnitPriceCents,
				LineTotalCents: line,
				CreatedAt:      now,
			})
		}

		number, err := GenerateOrderNumber(now)
		if err != nil {
			return err
		}

		order = &models.Order{
			OrderNumber:     number,
			BuyerID:         buyerID,
			TotalCents:      total,
			Status:          models.OrderStatusNew,
			Payment:         models.PaymentStatusPending,
			ShippingName:    shipping.Name,
			ShippingPhone:   shipping.Phone,
			ShippingAddress: shipping.Address,
			ShippingCity:    shipping.City,
			ShippingState:   shipping.State,
			ShippingPincode: shipping.Pincode,
			CreatedAt:       now,
			UpdatedAt:       now,
			Items:           itemsDB,
			History: []models.OrderStatusHistory{
				{Status: models.OrderStatusNew, Note: "order created", CreatedAt: now},
			},
		}
		if err := tx.Orders.Create(ctx, order); err != nil {
			return err
		}

		// Списание в порядке возрастания product_id — иначе два конкурентных
		// чекаута с пересекающимися корзинами могут взять локи навстречу друг другу.
		sorted := make([]models.OrderItem, len(order.Items))
		copy(sorted, order.Items)
		sort.Slice(sorted, func(i, j int) bool {
			return sorted[i].ProductID.String() < sorted[j].ProductID.String()
		})

		lowStock = lowStock[:0]
		for _, it := range sorted {
			entry, st, err := appendLedger(ctx, tx, s.log, ledgerWrite{
				ProductID:   it.ProductID,
				Change:      -it.Quantity,
				Reason:      models.LedgerReasonSale,
				ReferenceID: &order.ID,
				Notes:       "order " + order.OrderNumber,
			})
			if err != nil {
				return err
			}
			if crossedThreshold(entry, st.ReorderThreshold) {
				lowStock = append(lowStock, LowStockEvent{
					ProductID:        st.ProductID,
					SellerID:         st.SellerID,
					Quantity:         st.Quantity,
					ReorderThreshold: st.ReorderThreshold,
					DetectedAt:       now,
				})
			}
		}

		if _, err := tx.Carts.Clear(ctx, buyerID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return order, lowStock, nil
}

func (s *checkoutService) publish(ctx context.Context, order *models.Order, lowStock []LowStockEvent) {
	if s.cache != nil {
		seen := map[uuid.UUID]struct{}{}
		for _, it := range order.Items {
			if _, ok := seen[it.SellerID]; ok {
				continue
			}
			seen[it.SellerID] = struct{}{}
			s.cache.Invalidate(ctx, it.SellerID)
		}
	}

	if s.events == nil {
		return
	}
	evItems := make([]OrderItemEvent, 0, len(order.Items))
	for _, it := range order.Items {
		evItems = append(evItems, OrderItemEvent{
			ProductID:  it.ProductID,
			SellerID:   it.SellerID,
			Quantity:   it.Quantity,
			PriceCents: it.UnitPriceCents,
			LineTotal:  it.LineTotalCents,
		})
	}
	_ = s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		Items:       evItems,
		TotalCents:  order.TotalCents,
		CreatedAt:   order.CreatedAt,
	})
	for _, e := range lowStock {
		_ = s.events.PublishLowStock(ctx, e)
	}
}
