package repository

import (
	"context"
	"errors"

	"marketplace-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OrderListFilter struct {
	Status  *models.OrderStatus
	Payment *models.PaymentStatus
	Limit   int
	Offset  int
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	GetByIDForBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.Order, error)
	GetByNumber(ctx context.Context, number string) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID, f OrderListFilter) ([]models.Order, int64, error)
	// ListBySeller — заказы, содержащие хотя бы одну позицию продавца.
	ListBySeller(ctx context.Context, sellerID uuid.UUID, f OrderListFilter) ([]models.Order, int64, error)
	// SellerHasItems — есть ли у продавца позиции в заказе (авторизация фулфилмента).
	SellerHasItems(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error)

	// Условные переходы: WHERE по текущему статусу, применился ли — по RowsAffected.
	// Два конкурентных перехода по одному заказу не применятся оба.
	UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (bool, error)
	UpdatePaymentGuarded(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus) (bool, error)
	AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error
	UpdateTracking(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *orderRepo) preload() *gorm.DB {
	return r.db.Preload("Items").Preload("History", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *orderRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.preload().WithContext(ctx).First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) GetByIDForBuyer(ctx context.Context, id, buyerID uuid.UUID) (*models.Order, error) {
	var ord models.Order
	err := r.preload().WithContext(ctx).First(&ord, "id = ? AND buyer_id = ?", id, buyerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func (r *orderRepo) GetByNumber(ctx context.Context, number string) (*models.Order, error) {
	var ord models.Order
	err := r.preload().WithContext(ctx).First(&ord, "order_number = ?", number).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &ord, err
}

func applyOrderFilter(q *gorm.DB, f OrderListFilter) *gorm.DB {
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.Payment != nil {
		q = q.Where("payment_status = ?", *f.Payment)
	}
	return q
}

func (r *orderRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID, f OrderListFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("buyer_id = ?", buyerID)
	q = applyOrderFilter(q, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Order
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).
		Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID, f OrderListFilter) ([]models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id IN (SELECT DISTINCT order_id FROM order_items WHERE seller_id = ?)", sellerID)
	q = applyOrderFilter(q, f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	var list []models.Order
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).
		Preload("Items", "seller_id = ?", sellerID).Find(&list).Error
	return list, total, err
}

func (r *orderRepo) SellerHasItems(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("order_id = ? AND seller_id = ?", orderID, sellerID).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *orderRepo) UpdateStatusGuarded(ctx context.Context, id uuid.UUID, from, to models.OrderStatus) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) UpdatePaymentGuarded(ctx context.Context, id uuid.UUID, from, to models.PaymentStatus) (bool, error) {
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Update("payment_status", to)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) AppendHistory(ctx context.Context, h *models.OrderStatusHistory) error {
	return r.db.WithContext(ctx).Create(h).Error
}

func (r *orderRepo) UpdateTracking(ctx context.Context, id uuid.UUID, fields map[string]any) (bool, error) {
	if len(fields) == 0 {
		return true, nil
	}
	tx := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", id).
		Updates(fields)
	return tx.RowsAffected > 0, tx.Error
}
