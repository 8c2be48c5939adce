package service

import (
	"context"
	"fmt"

	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ledgerWrite struct {
	ProductID   uuid.UUID
	Change      int32
	Reason      models.LedgerReason
	ReferenceID *uuid.UUID
	Notes       string
}

// appendLedger — единственный механизм изменения остатка: row-lock на строку
// товара, проверка, запись журнала, обновление проекции. Всё в транзакции
// вызывающего; вне WithTx вызывать нельзя.
func appendLedger(ctx context.Context, tx *repository.Repository, log *zap.Logger, w ledgerWrite) (*models.LedgerEntry, *models.ProductStock, error) {
	st, err := tx.Stocks.GetForUpdate(ctx, w.ProductID)
	if err != nil {
		return nil, nil, err
	}
	if st == nil {
		return nil, nil, ErrStockNotFound
	}

	newQty := st.Quantity + w.Change
	if newQty < 0 {
		if w.Reason == models.LedgerReasonSale {
			return nil, nil, &InsufficientStockError{
				ProductID: w.ProductID,
				Requested: -w.Change,
				Available: st.Quantity,
			}
		}
		log.Error("ledger append would drive stock negative",
			zap.String("product_id", w.ProductID.String()),
			zap.String("reason", string(w.Reason)),
			zap.Int32("available", st.Quantity),
			zap.Int32("change", w.Change))
		return nil, nil, fmt.Errorf("%w: product %s has %d, delta %d",
			ErrNegativeStock, w.ProductID, st.Quantity, w.Change)
	}

	entry := &models.LedgerEntry{
		ProductID:     w.ProductID,
		SellerID:      st.SellerID,
		Change:        w.Change,
		Reason:        w.Reason,
		ReferenceID:   w.ReferenceID,
		PreviousStock: st.Quantity,
		NewStock:      newQty,
		Notes:         w.Notes,
	}
	if err := tx.Ledger.Append(ctx, entry); err != nil {
		return nil, nil, err
	}
	if err := tx.Stocks.SetQuantity(ctx, w.ProductID, newQty); err != nil {
		return nil, nil, err
	}

	st.Quantity = newQty
	return entry, st, nil
}

// crossedThreshold: запись увела остаток с "выше порога" на "порог и ниже".
func crossedThreshold(e *models.LedgerEntry, threshold int32) bool {
	return e.PreviousStock > threshold && e.NewStock <= threshold
}
