package service

import (
	"context"

	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type cartService struct {
	repo    *repository.Repository
	catalog Catalog
	log     *zap.Logger
}

func NewCartService(repo *repository.Repository, catalog Catalog, log *zap.Logger) CartService {
	return &cartService{repo: repo, catalog: catalog, log: log}
}

func requireBuyer(ctx context.Context) (uuid.UUID, error) {
	uid, ok := UserIDFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	role, ok := RoleFromContext(ctx)
	if !ok {
		return uuid.Nil, ErrUnauthorized
	}
	if role != RoleBuyer && role != RoleAdmin {
		return uuid.Nil, ErrForbidden
	}
	return uid, nil
}

func (s *cartService) AddItem(ctx context.Context, in AddItemInput) (*CartView, error) {
	buyerID, err := requireBuyer(ctx)
	if err != nil {
		return nil, err
	}
	if in.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	// Доступность остатка здесь не проверяется — между добавлением и чекаутом
	// остаток всё равно изменится. Авторитетная проверка только на чекауте.
	p, err := s.catalog.GetProduct(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p == nil || !p.Active {
		return nil, ErrProductNotFound
	}

	item := &models.CartItem{
		BuyerID:        buyerID,
		ProductID:      in.ProductID,
		ProductName:    p.Name,
		UnitPriceCents: p.UnitPriceCents,
		Quantity:       in.Quantity,
		ImageURL:       p.ImageURL,
		SellerID:       p.SellerID,
		SellerName:     p.SellerName,
	}
	if err := s.repo.Carts.Upsert(ctx, item); err != nil {
		return nil, err
	}
	return s.viewCart(ctx, buyerID)
}

func (s *cartService) RemoveItem(ctx context.Context, productID uuid.UUID) (*CartView, error) {
	buyerID, err := requireBuyer(ctx)
	if err != nil {
		return nil, err
	}
	// идемпотентно: отсутствие строки — не ошибка
	if _, err := s.repo.Carts.Remove(ctx, buyerID, productID); err != nil {
		return nil, err
	}
	return s.viewCart(ctx, buyerID)
}

func (s *cartService) GetCart(ctx context.Context) (*CartView, error) {
	buyerID, err := requireBuyer(ctx)
	if err != nil {
		return nil, err
	}
	return s.viewCart(ctx, buyerID)
}

func (s *cartService) ClearCart(ctx context.Context) error {
	buyerID, err := requireBuyer(ctx)
	if err != nil {
		return err
	}
	_, err = s.repo.Carts.Clear(ctx, buyerID)
	return err
}

func (s *cartService) viewCart(ctx context.Context, buyerID uuid.UUID) (*CartView, error) {
	items, err := s.repo.Carts.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	view := &CartView{Items: items}
	for _, it := range items {
		view.SubtotalCents += it.UnitPriceCents * int64(it.Quantity)
	}
	return view, nil
}
