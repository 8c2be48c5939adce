package service_test

import (
	"context"
	"errors"
	"testing"

	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"
	"marketplace-core/internal/service"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type orderFixture struct {
	repos    *repository.Repository
	cat      *fakeCatalog
	bus      *fakeBus
	carts    service.CartService
	checkout service.CheckoutService
	orders   service.OrderService

	sellerID uuid.UUID
	buyerID  uuid.UUID
	product  uuid.UUID
	order    *models.Order
}

// placeTestOrder прогоняет полный чекаут: остаток 10, заказ на 3 единицы.
func placeTestOrder(t *testing.T) *orderFixture {
	t.Helper()
	repos := setupRepos(t)
	cat := newFakeCatalog()
	bus := &fakeBus{}
	log := zap.NewNop()

	f := &orderFixture{
		repos:    repos,
		cat:      cat,
		bus:      bus,
		carts:    service.NewCartService(repos, cat, log),
		checkout: service.NewCheckoutService(repos, cat, bus, nil, log),
		orders:   service.NewOrderService(repos, bus, nil, log),
		sellerID: uuid.New(),
		buyerID:  uuid.New(),
	}

	f.product = seedProduct(t, repos, cat, f.sellerID, 10, 0, 1000)
	addToCart(t, f.carts, buyerCtx(f.buyerID), f.product, 3)

	order, err := f.checkout.PlaceOrder(buyerCtx(f.buyerID), shipping)
	if err != nil {
		t.Fatalf("PlaceOrder: %v", err)
	}
	f.order = order
	return f
}

func TestGetOrder_Scoping(t *testing.T) {
	f := placeTestOrder(t)

	// Покупатель видит свой заказ
	got, err := f.orders.GetOrder(buyerCtx(f.buyerID), f.order.ID)
	if err != nil {
		t.Fatalf("buyer GetOrder: %v", err)
	}
	if got.ID != f.order.ID {
		t.Fatal("wrong order")
	}

	// Чужой покупатель — not found, не forbidden (не палим существование)
	if _, err := f.orders.GetOrder(buyerCtx(uuid.New()), f.order.ID); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("foreign buyer: expected ErrOrderNotFound, got %v", err)
	}

	// Продавец с позициями видит заказ
	if _, err := f.orders.GetOrder(sellerCtx(f.sellerID), f.order.ID); err != nil {
		t.Fatalf("seller GetOrder: %v", err)
	}
	// Чужой продавец — not found
	if _, err := f.orders.GetOrder(sellerCtx(uuid.New()), f.order.ID); !errors.Is(err, service.ErrOrderNotFound) {
		t.Fatalf("foreign seller: expected ErrOrderNotFound, got %v", err)
	}
	// Админ видит всё
	if _, err := f.orders.GetOrder(adminCtx(uuid.New()), f.order.ID); err != nil {
		t.Fatalf("admin GetOrder: %v", err)
	}
	// Без идентичности — unauthorized
	if _, err := f.orders.GetOrder(context.Background(), f.order.ID); !errors.Is(err, service.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestUpdateOrderStatus_HappyPath(t *testing.T) {
	f := placeTestOrder(t)
	ctx := sellerCtx(f.sellerID)

	for _, to := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		ord, err := f.orders.UpdateOrderStatus(ctx, f.order.ID, to, "")
		if err != nil {
			t.Fatalf("UpdateOrderStatus to %s: %v", to, err)
		}
		if ord.Status != to {
			t.Fatalf("expected %s, got %s", to, ord.Status)
		}
	}

	// история: NEW + три перехода
	got, _ := f.repos.Orders.GetByID(context.Background(), f.order.ID)
	if len(got.History) != 4 {
		t.Fatalf("expected 4 history rows, got %d", len(got.History))
	}
	if got.History[0].Status != models.OrderStatusNew ||
		got.History[3].Status != models.OrderStatusDelivered {
		t.Fatalf("history out of order: %+v", got.History)
	}
	if len(f.bus.statusChanged) != 3 {
		t.Fatalf("expected 3 status events, got %d", len(f.bus.statusChanged))
	}
}

func TestUpdateOrderStatus_InvalidTransition(t *testing.T) {
	f := placeTestOrder(t)
	ctx := sellerCtx(f.sellerID)

	if _, err := f.orders.UpdateOrderStatus(ctx, f.order.ID, models.OrderStatusDelivered, ""); !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Fatalf("NEW -> DELIVERED must fail, got %v", err)
	}
	if _, err := f.orders.UpdateOrderStatus(ctx, f.order.ID, models.OrderStatus("ORDER_STATUS_BOGUS"), ""); !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Fatalf("bogus status must fail, got %v", err)
	}

	// статус не сдвинулся, история не выросла
	got, _ := f.repos.Orders.GetByID(context.Background(), f.order.ID)
	if got.Status != models.OrderStatusNew || len(got.History) != 1 {
		t.Fatalf("failed transition must not mutate: %s, %d history rows", got.Status, len(got.History))
	}
}

// Отмена неоплаченного заказа возвращает товар на склад, refund не нужен.
func TestUpdateOrderStatus_CancelRestocks(t *testing.T) {
	f := placeTestOrder(t)
	ctx := sellerCtx(f.sellerID)

	ord, err := f.orders.UpdateOrderStatus(ctx, f.order.ID, models.OrderStatusCancelled, "buyer asked")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if ord.Status != models.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", ord.Status)
	}
	if ord.Payment != models.PaymentStatusPending {
		t.Fatalf("unpaid order must stay PENDING, got %s", ord.Payment)
	}

	st, _ := f.repos.Stocks.Get(context.Background(), f.product)
	if st.Quantity != 10 {
		t.Fatalf("stock must be restored to 10, got %d", st.Quantity)
	}

	// в журнале и списание, и возврат с ссылкой на заказ
	entries, _ := f.repos.Ledger.ListByReference(context.Background(), f.order.ID)
	if len(entries) != 2 {
		t.Fatalf("expected sale + return entries, got %d", len(entries))
	}
	if entries[0].Reason != models.LedgerReasonSale || entries[1].Reason != models.LedgerReasonReturn {
		t.Fatalf("unexpected reasons: %s, %s", entries[0].Reason, entries[1].Reason)
	}
}

// Возврат оплаченного заказа: restock + автоматический refund в одной транзакции.
func TestUpdateOrderStatus_ReturnRefundsPaidOrder(t *testing.T) {
	f := placeTestOrder(t)
	ctx := sellerCtx(f.sellerID)

	if _, err := f.orders.UpdatePaymentStatus(ctx, f.order.ID, models.PaymentStatusPaid); err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if _, err := f.orders.UpdateOrderStatus(ctx, f.order.ID, models.OrderStatusProcessing, ""); err != nil {
		t.Fatalf("to processing: %v", err)
	}

	ord, err := f.orders.UpdateOrderStatus(ctx, f.order.ID, models.OrderStatusReturned, "damaged")
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if ord.Status != models.OrderStatusReturned {
		t.Fatalf("expected RETURNED, got %s", ord.Status)
	}
	if ord.Payment != models.PaymentStatusRefunded {
		t.Fatalf("paid order must be refunded on return, got %s", ord.Payment)
	}

	st, _ := f.repos.Stocks.Get(context.Background(), f.product)
	if st.Quantity != 10 {
		t.Fatalf("stock must be restored, got %d", st.Quantity)
	}
}

func TestUpdatePaymentStatus_Transitions(t *testing.T) {
	f := placeTestOrder(t)
	ctx := sellerCtx(f.sellerID)

	// PENDING -> REFUNDED запрещён
	if _, err := f.orders.UpdatePaymentStatus(ctx, f.order.ID, models.PaymentStatusRefunded); !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Fatalf("PENDING -> REFUNDED must fail, got %v", err)
	}

	ord, err := f.orders.UpdatePaymentStatus(ctx, f.order.ID, models.PaymentStatusPaid)
	if err != nil {
		t.Fatalf("to paid: %v", err)
	}
	if ord.Payment != models.PaymentStatusPaid {
		t.Fatalf("expected PAID, got %s", ord.Payment)
	}

	// PAID -> FAILED запрещён
	if _, err := f.orders.UpdatePaymentStatus(ctx, f.order.ID, models.PaymentStatusFailed); !errors.Is(err, service.ErrInvalidStateTransition) {
		t.Fatalf("PAID -> FAILED must fail, got %v", err)
	}
}

func TestUpdateOrderStatus_ForbiddenForForeignSeller(t *testing.T) {
	f := placeTestOrder(t)

	if _, err := f.orders.UpdateOrderStatus(sellerCtx(uuid.New()), f.order.ID, models.OrderStatusProcessing, ""); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("foreign seller must be forbidden, got %v", err)
	}
	if _, err := f.orders.UpdateOrderStatus(buyerCtx(f.buyerID), f.order.ID, models.OrderStatusProcessing, ""); !errors.Is(err, service.ErrForbidden) {
		t.Fatalf("buyer must not drive fulfillment statuses, got %v", err)
	}
}

func TestUpdateTracking(t *testing.T) {
	f := placeTestOrder(t)
	ctx := sellerCtx(f.sellerID)

	carrier := "CDEK"
	number := "TRK-123"
	ord, err := f.orders.UpdateTracking(ctx, f.order.ID, service.TrackingInput{
		Carrier:        &carrier,
		TrackingNumber: &number,
	})
	if err != nil {
		t.Fatalf("UpdateTracking: %v", err)
	}
	if ord.TrackingCarrier != "CDEK" || ord.TrackingNumber != "TRK-123" {
		t.Fatalf("tracking not applied: %+v", ord)
	}
}

func TestListOrders(t *testing.T) {
	f := placeTestOrder(t)

	orders, total, err := f.orders.ListBuyerOrders(buyerCtx(f.buyerID), service.OrderListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListBuyerOrders: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("expected 1 buyer order, got total=%d", total)
	}

	orders, total, err = f.orders.ListSellerOrders(sellerCtx(f.sellerID), service.OrderListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListSellerOrders: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("expected 1 seller order, got total=%d", total)
	}

	status := models.OrderStatusDelivered
	_, total, err = f.orders.ListBuyerOrders(buyerCtx(f.buyerID), service.OrderListFilter{Status: &status, Limit: 10})
	if err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if total != 0 {
		t.Fatalf("expected 0 delivered orders, got %d", total)
	}
}
