package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type orderService struct {
	repo   *repository.Repository
	events EventBus
	cache  LowStockCache
	log    *zap.Logger
	now    func() time.Time
}

func NewOrderService(repo *repository.Repository, events EventBus, cache LowStockCache, log *zap.Logger) OrderService {
	return &orderService{repo: repo, events: events, cache: cache, log: log, now: time.Now}
}

func requireAuth(ctx context.Context) (uuid.UUID, Role, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return uuid.Nil, "", ErrUnauthorized
	}
	return uid, role, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, err
	}

	switch role {
	case RoleAdmin:
		ord, err := s.repo.Orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ord == nil {
			return nil, ErrOrderNotFound
		}
		return ord, nil
	case RoleSeller:
		ok, err := s.repo.Orders.SellerHasItems(ctx, id, uid)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrOrderNotFound
		}
		ord, err := s.repo.Orders.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if ord == nil {
			return nil, ErrOrderNotFound
		}
		return ord, nil
	default:
		ord, err := s.repo.Orders.GetByIDForBuyer(ctx, id, uid)
		if err != nil {
			return nil, err
		}
		if ord == nil {
			return nil, ErrOrderNotFound
		}
		return ord, nil
	}
}

func (s *orderService) ListBuyerOrders(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error) {
	uid, _, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	return s.repo.Orders.ListByBuyer(ctx, uid, repository.OrderListFilter{
		Status:  f.Status,
		Payment: f.Payment,
		Limit:   f.Limit,
		Offset:  f.Offset,
	})
}

func (s *orderService) ListSellerOrders(ctx context.Context, f OrderListFilter) ([]models.Order, int64, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return nil, 0, err
	}
	if role != RoleSeller && role != RoleAdmin {
		return nil, 0, ErrForbidden
	}
	return s.repo.Orders.ListBySeller(ctx, uid, repository.OrderListFilter{
		Status:  f.Status,
		Payment: f.Payment,
		Limit:   f.Limit,
		Offset:  f.Offset,
	})
}

// requireFulfiller: обновлять статусы/трекинг может админ или продавец,
// у которого в заказе есть позиции.
func (s *orderService) requireFulfiller(ctx context.Context, orderID uuid.UUID) error {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return err
	}
	if role == RoleAdmin {
		return nil
	}
	if role != RoleSeller {
		return ErrForbidden
	}
	ok, err := s.repo.Orders.SellerHasItems(ctx, orderID, uid)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, to models.OrderStatus, note string) (*models.Order, error) {
	if err := s.requireFulfiller(ctx, id); err != nil {
		return nil, err
	}
	if !IsValidOrderStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidStateTransition, to)
	}

	var (
		from     models.OrderStatus
		restock  bool
		refunded bool
		now      = s.now()
	)

	err := s.repo.WithTx(func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		from = ord.Status

		if !CanTransitionOrder(ord.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, ord.Status, to)
		}

		// Guard по текущему статусу: из двух конкурентных переходов применится один.
		ok, err := tx.Orders.UpdateStatusGuarded(ctx, id, ord.Status, to)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: status changed concurrently", ErrInvalidStateTransition)
		}

		if err := tx.Orders.AppendHistory(ctx, &models.OrderStatusHistory{
			OrderID:   id,
			Status:    to,
			Note:      note,
			CreatedAt: now,
		}); err != nil {
			return err
		}

		// Отмена/возврат: товар возвращается на склад через журнал, теми же
		// атомарными правилами, что и списание. Оплаченный заказ дополнительно
		// получает компенсирующий refund.
		if to == models.OrderStatusCancelled || to == models.OrderStatusReturned {
			restock = true
			if ord.Payment == models.PaymentStatusPaid {
				ok, err := tx.Orders.UpdatePaymentGuarded(ctx, id, models.PaymentStatusPaid, models.PaymentStatusRefunded)
				if err != nil {
					return err
				}
				refunded = ok
			}
			if err := s.restockItems(ctx, tx, ord); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isRetryableConflict(err) {
			return nil, ErrPersistenceConflict
		}
		return nil, err
	}

	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.log.Info("order status updated",
		zap.String("order_id", id.String()),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.Bool("restocked", restock),
		zap.Bool("refunded", refunded))

	if restock && s.cache != nil {
		seen := map[uuid.UUID]struct{}{}
		for _, it := range ord.Items {
			if _, ok := seen[it.SellerID]; !ok {
				seen[it.SellerID] = struct{}{}
				s.cache.Invalidate(ctx, it.SellerID)
			}
		}
	}
	if s.events != nil {
		_ = s.events.PublishOrderStatusChanged(ctx, OrderStatusChangedEvent{
			OrderID:     ord.ID,
			OrderNumber: ord.OrderNumber,
			From:        string(from),
			To:          string(to),
			Note:        note,
			ChangedAt:   now,
		})
	}
	return ord, nil
}

func (s *orderService) restockItems(ctx context.Context, tx *repository.Repository, ord *models.Order) error {
	items := make([]models.OrderItem, len(ord.Items))
	copy(items, ord.Items)
	sort.Slice(items, func(i, j int) bool {
		return items[i].ProductID.String() < items[j].ProductID.String()
	})
	for _, it := range items {
		if _, _, err := appendLedger(ctx, tx, s.log, ledgerWrite{
			ProductID:   it.ProductID,
			Change:      it.Quantity,
			Reason:      models.LedgerReasonReturn,
			ReferenceID: &ord.ID,
			Notes:       "order " + ord.OrderNumber,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *orderService) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, to models.PaymentStatus) (*models.Order, error) {
	if err := s.requireFulfiller(ctx, id); err != nil {
		return nil, err
	}
	if !IsValidPaymentStatus(to) {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidStateTransition, to)
	}

	err := s.repo.WithTx(func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}
		if !CanTransitionPayment(ord.Payment, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, ord.Payment, to)
		}
		ok, err := tx.Orders.UpdatePaymentGuarded(ctx, id, ord.Payment, to)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: payment status changed concurrently", ErrInvalidStateTransition)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.Orders.GetByID(ctx, id)
}

func (s *orderService) UpdateTracking(ctx context.Context, id uuid.UUID, in TrackingInput) (*models.Order, error) {
	if err := s.requireFulfiller(ctx, id); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Carrier != nil {
		fields["tracking_carrier"] = *in.Carrier
	}
	if in.TrackingNumber != nil {
		fields["tracking_number"] = *in.TrackingNumber
	}
	if in.EstimatedDelivery != nil {
		fields["estimated_delivery"] = *in.EstimatedDelivery
	}
	if in.ActualDelivery != nil {
		fields["actual_delivery"] = *in.ActualDelivery
	}
	if in.CurrentLocation != nil {
		fields["current_location"] = *in.CurrentLocation
	}

	ok, err := s.repo.Orders.UpdateTracking(ctx, id, fields)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderNotFound
	}
	return s.repo.Orders.GetByID(ctx, id)
}
