package service

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")

	ErrProductNotFound = errors.New("product not found")
	ErrStockNotFound   = errors.New("stock record not found")
	ErrOrderNotFound   = errors.New("order not found")

	ErrInvalidQuantity    = errors.New("quantity must be > 0")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrShippingIncomplete = errors.New("shipping info incomplete")
	ErrPriceChanged       = errors.New("product price changed since added to cart")

	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrNegativeStock          = errors.New("stock cannot go negative")
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// Транзиентная ошибка: конкуренция за товар исчерпала бюджет повторов, можно повторить.
	ErrPersistenceConflict = errors.New("persistence conflict, retry later")
)

// InsufficientStockError называет товар и доступный остаток, чтобы покупатель
// видел, чего именно не хватило. errors.Is(err, ErrInsufficientStock) работает.
type InsufficientStockError struct {
	ProductID uuid.UUID
	Requested int32
	Available int32
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }
