package service

import (
	"context"
	"fmt"
	"time"

	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type inventoryService struct {
	repo   *repository.Repository
	events EventBus
	cache  LowStockCache
	log    *zap.Logger
	now    func() time.Time
}

func NewInventoryService(repo *repository.Repository, events EventBus, cache LowStockCache, log *zap.Logger) InventoryService {
	return &inventoryService{repo: repo, events: events, cache: cache, log: log, now: time.Now}
}

func requireSeller(ctx context.Context) (uuid.UUID, Role, error) {
	uid, role, err := requireAuth(ctx)
	if err != nil {
		return uuid.Nil, "", err
	}
	if role != RoleSeller && role != RoleAdmin {
		return uuid.Nil, "", ErrForbidden
	}
	return uid, role, nil
}

// ownedStock: строка остатка существует и принадлежит вызывающему продавцу
// (админ видит всё).
func (s *inventoryService) ownedStock(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error) {
	uid, role, err := requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	st, err := s.repo.Stocks.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, ErrStockNotFound
	}
	if role != RoleAdmin && st.SellerID != uid {
		return nil, ErrForbidden
	}
	return st, nil
}

func (s *inventoryService) RegisterProduct(ctx context.Context, productID uuid.UUID, threshold, initialQty int32) (*models.ProductStock, error) {
	uid, role, err := requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	if initialQty < 0 || threshold < 0 {
		return nil, ErrInvalidQuantity
	}

	err = s.repo.WithTx(func(tx *repository.Repository) error {
		if err := tx.Stocks.EnsureRow(ctx, productID, uid, threshold); err != nil {
			return err
		}
		// EnsureRow молчит на конфликте, поэтому строка могла существовать
		// до вызова и принадлежать другому продавцу. Перечитываем под локом
		// и сверяем владельца, прежде чем что-либо дописывать.
		st, err := tx.Stocks.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if st == nil {
			return ErrStockNotFound
		}
		if role != RoleAdmin && st.SellerID != uid {
			return ErrForbidden
		}
		// Стартовый остаток тоже проходит через журнал: инвариант
		// "проекция = свёртка журнала" держится с первой записи.
		if initialQty > 0 {
			if _, _, err := appendLedger(ctx, tx, s.log, ledgerWrite{
				ProductID: productID,
				Change:    initialQty,
				Reason:    models.LedgerReasonManual,
				Notes:     "initial stock",
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("product stock registered",
		zap.String("product_id", productID.String()),
		zap.String("seller_id", uid.String()),
		zap.Int32("initial_quantity", initialQty))
	return s.repo.Stocks.Get(ctx, productID)
}

func (s *inventoryService) GetStock(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error) {
	return s.ownedStock(ctx, productID)
}

func (s *inventoryService) QuickUpdateStock(ctx context.Context, productID uuid.UUID, newQuantity int32, reason models.LedgerReason, notes string) (*models.ProductStock, error) {
	cur, err := s.ownedStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	if newQuantity < 0 {
		return nil, fmt.Errorf("%w: quantity %d", ErrNegativeStock, newQuantity)
	}
	if reason != models.LedgerReasonManual && reason != models.LedgerReasonAdjustment && reason != models.LedgerReasonRestock {
		return nil, fmt.Errorf("invalid ledger reason %q for manual update", reason)
	}

	var (
		updated *models.ProductStock
		entry   *models.LedgerEntry
	)
	err = s.repo.WithTx(func(tx *repository.Repository) error {
		// Дельта считается от остатка под локом, а не от прочитанного выше:
		// между чтением и транзакцией остаток мог уехать.
		st, err := tx.Stocks.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if st == nil {
			return ErrStockNotFound
		}
		delta := newQuantity - st.Quantity
		if delta == 0 {
			updated = st
			return nil
		}
		entry, updated, err = appendLedger(ctx, tx, s.log, ledgerWrite{
			ProductID: productID,
			Change:    delta,
			Reason:    reason,
			Notes:     notes,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	if entry != nil {
		s.log.Info("stock updated",
			zap.String("product_id", productID.String()),
			zap.Int32("change", entry.Change),
			zap.Int32("new_stock", entry.NewStock),
			zap.String("reason", string(entry.Reason)))

		if s.cache != nil {
			s.cache.Invalidate(ctx, cur.SellerID)
		}
		if s.events != nil && crossedThreshold(entry, updated.ReorderThreshold) {
			_ = s.events.PublishLowStock(ctx, LowStockEvent{
				ProductID:        updated.ProductID,
				SellerID:         updated.SellerID,
				Quantity:         updated.Quantity,
				ReorderThreshold: updated.ReorderThreshold,
				DetectedAt:       s.now(),
			})
		}
	}
	return updated, nil
}

func (s *inventoryService) SetReorderThreshold(ctx context.Context, productID uuid.UUID, threshold int32) (*models.ProductStock, error) {
	st, err := s.ownedStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	if threshold < 0 {
		return nil, ErrInvalidQuantity
	}
	ok, err := s.repo.Stocks.SetThreshold(ctx, productID, threshold)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrStockNotFound
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, st.SellerID)
	}
	return s.repo.Stocks.Get(ctx, productID)
}

func (s *inventoryService) ListLowStock(ctx context.Context) ([]LowStockItem, error) {
	uid, _, err := requireSeller(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if items, ok := s.cache.Get(ctx, uid); ok {
			return items, nil
		}
	}

	stocks, err := s.repo.Stocks.ListLow(ctx, uid)
	if err != nil {
		return nil, err
	}
	items := make([]LowStockItem, 0, len(stocks))
	for _, st := range stocks {
		level := StockLevelLow
		if st.Quantity == 0 {
			level = StockLevelOut
		}
		items = append(items, LowStockItem{
			ProductID:        st.ProductID,
			Quantity:         st.Quantity,
			ReorderThreshold: st.ReorderThreshold,
			Level:            level,
		})
	}

	if s.cache != nil {
		s.cache.Set(ctx, uid, items)
	}
	return items, nil
}

func (s *inventoryService) ListLedgerByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	if _, err := s.ownedStock(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.Ledger.ListByProduct(ctx, productID, limit)
}

func (s *inventoryService) ListLedgerBySeller(ctx context.Context, limit int) ([]models.LedgerEntry, error) {
	uid, _, err := requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.Ledger.ListBySeller(ctx, uid, limit)
}

func (s *inventoryService) ListLedgerByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEntry, error) {
	uid, role, err := requireSeller(ctx)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.Ledger.ListByReference(ctx, referenceID)
	if err != nil {
		return nil, err
	}
	if role == RoleAdmin {
		return entries, nil
	}
	scoped := make([]models.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		if e.SellerID == uid {
			scoped = append(scoped, e)
		}
	}
	return scoped, nil
}

func (s *inventoryService) Reconcile(ctx context.Context, productID uuid.UUID) (*ReconcileResult, error) {
	st, err := s.ownedStock(ctx, productID)
	if err != nil {
		return nil, err
	}
	sum, err := s.repo.Ledger.SumChanges(ctx, productID)
	if err != nil {
		return nil, err
	}
	res := &ReconcileResult{
		ProductID:  productID,
		LedgerSum:  sum,
		Projection: st.Quantity,
		Consistent: sum == int64(st.Quantity),
	}
	if !res.Consistent {
		s.log.Error("ledger/projection mismatch",
			zap.String("product_id", productID.String()),
			zap.Int64("ledger_sum", sum),
			zap.Int32("projection", st.Quantity))
	}
	return res, nil
}
