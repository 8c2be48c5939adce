package repository

import (
	"context"
	"errors"

	"marketplace-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepo interface {
	EnsureRow(ctx context.Context, productID, sellerID uuid.UUID, threshold int32) error
	Get(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error)
	// GetForUpdate берёт строку под row-lock (SELECT ... FOR UPDATE).
	// Вызывается только внутри WithTx — это точка сериализации всех движений по товару.
	GetForUpdate(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error)
	// SetQuantity обновляет проекцию остатка. Только из-под ledger append (тот же tx).
	SetQuantity(ctx context.Context, productID uuid.UUID, quantity int32) error
	SetThreshold(ctx context.Context, productID uuid.UUID, threshold int32) (bool, error)
	BatchGet(ctx context.Context, ids []uuid.UUID) ([]models.ProductStock, error)
	// ListLow возвращает товары продавца с quantity <= reorder_threshold.
	ListLow(ctx context.Context, sellerID uuid.UUID) ([]models.ProductStock, error)
}

type stockRepo struct{ db *gorm.DB }

func NewStockRepo(db *gorm.DB) StockRepo { return &stockRepo{db: db} }

func (r *stockRepo) EnsureRow(ctx context.Context, productID, sellerID uuid.UUID, threshold int32) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ProductStock{
			ProductID:        productID,
			SellerID:         sellerID,
			ReorderThreshold: threshold,
		}).Error
}

func (r *stockRepo) Get(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error) {
	var st models.ProductStock
	err := r.db.WithContext(ctx).First(&st, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &st, err
}

func (r *stockRepo) GetForUpdate(ctx context.Context, productID uuid.UUID) (*models.ProductStock, error) {
	var st models.ProductStock
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&st, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &st, err
}

func (r *stockRepo) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int32) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Where("product_id = ?", productID).
		Update("quantity", quantity).Error
}

func (r *stockRepo) SetThreshold(ctx context.Context, productID uuid.UUID, threshold int32) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.ProductStock{}).
		Where("product_id = ?", productID).
		Update("reorder_threshold", threshold)
	return tx.RowsAffected > 0, tx.Error
}

func (r *stockRepo) BatchGet(ctx context.Context, ids []uuid.UUID) ([]models.ProductStock, error) {
	if len(ids) == 0 {
		return []models.ProductStock{}, nil
	}
	var list []models.ProductStock
	err := r.db.WithContext(ctx).Where("product_id IN ?", ids).Find(&list).Error
	return list, err
}

func (r *stockRepo) ListLow(ctx context.Context, sellerID uuid.UUID) ([]models.ProductStock, error) {
	var list []models.ProductStock
	err := r.db.WithContext(ctx).
		Where("seller_id = ? AND quantity <= reorder_threshold", sellerID).
		Order("quantity ASC").
		Find(&list).Error
	return list, err
}
