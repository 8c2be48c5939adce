package repository

import (
	"context"

	"marketplace-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LedgerRepo interface {
	// Append вставляет запись журнала. Сама запись никогда не обновляется и не удаляется
	// (в БД это дополнительно закрыто триггером).
	Append(ctx context.Context, e *models.LedgerEntry) error

	// ListByProduct — в порядке создания (порядок фолда при сверке).
	ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEntry, error)
	ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEntry, error)

	// SumChanges — свёртка всех дельт по товару; для сверки с проекцией остатка.
	SumChanges(ctx context.Context, productID uuid.UUID) (int64, error)
}

type ledgerRepo struct{ db *gorm.DB }

func NewLedgerRepo(db *gorm.DB) LedgerRepo { return &ledgerRepo{db: db} }

func (r *ledgerRepo) Append(ctx context.Context, e *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *ledgerRepo) ListByProduct(ctx context.Context, productID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	q := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var list []models.LedgerEntry
	err := q.Find(&list).Error
	return list, err
}

func (r *ledgerRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.LedgerEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *ledgerRepo) ListByReference(ctx context.Context, referenceID uuid.UUID) ([]models.LedgerEntry, error) {
	var list []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *ledgerRepo) SumChanges(ctx context.Context, productID uuid.UUID) (int64, error) {
	var sum *int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("COALESCE(SUM(change), 0)").
		Where("product_id = ?", productID).
		Scan(&sum).Error
	if err != nil || sum == nil {
		return 0, err
	}
	return *sum, nil
}
