package repository

import (
	"context"

	"marketplace-core/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CartRepo interface {
	// Upsert: если строка (buyer, product) уже есть — увеличивает количество
	// и обновляет снапшот цены, иначе вставляет новую.
	Upsert(ctx context.Context, item *models.CartItem) error
	// Remove идемпотентен: удаление несуществующей строки — не ошибка.
	Remove(ctx context.Context, buyerID, productID uuid.UUID) (bool, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error)
	Clear(ctx context.Context, buyerID uuid.UUID) (int64, error)
}

type cartRepo struct{ db *gorm.DB }

func NewCartRepo(db *gorm.DB) CartRepo { return &cartRepo{db: db} }

func (r *cartRepo) Upsert(ctx context.Context, item *models.CartItem) error {
	// атомарный инкремент количества на конфликте (buyer_id, product_id)
	return r.db.WithContext(ctx).Exec(`
INSERT INTO cart_items
	(buyer_id, product_id, product_name, unit_price_cents, quantity, image_url, seller_id, seller_name)
VALUES (@buyer, @product, @name, @price, @qty, @image, @seller, @seller_name)
ON CONFLICT (buyer_id, product_id) DO UPDATE SET
	quantity         = cart_items.quantity + EXCLUDED.quantity,
	product_name     = EXCLUDED.product_name,
	unit_price_cents = EXCLUDED.unit_price_cents,
	image_url        = EXCLUDED.image_url,
	seller_name      = EXCLUDED.seller_name,
	updated_at       = now()
`, map[string]any{
		"buyer":       item.BuyerID,
		"product":     item.ProductID,
		"name":        item.ProductName,
		"price":       item.UnitPriceCents,
		"qty":         item.Quantity,
		"image":       item.ImageURL,
		"seller":      item.SellerID,
		"seller_name": item.SellerName,
	}).Error
}

func (r *cartRepo) Remove(ctx context.Context, buyerID, productID uuid.UUID) (bool, error) {
	tx := r.db.WithContext(ctx).
		Delete(&models.CartItem{}, "buyer_id = ? AND product_id = ?", buyerID, productID)
	return tx.RowsAffected > 0, tx.Error
}

func (r *cartRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.CartItem, error) {
	var list []models.CartItem
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at ASC").
		Find(&list).Error
	return list, err
}

func (r *cartRepo) Clear(ctx context.Context, buyerID uuid.UUID) (int64, error) {
	tx := r.db.WithContext(ctx).Delete(&models.CartItem{}, "buyer_id = ?", buyerID)
	return tx.RowsAffected, tx.Error
}
