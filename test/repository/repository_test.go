package repository_test

import (
	"context"
	"testing"

	"marketplace-core/internal/migrate"
	"marketplace-core/internal/models"
	"marketplace-core/internal/repository"
	"marketplace-core/pkg/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateCoreDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestCartRepo_UpsertAccumulates(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	buyerID := uuid.New()
	productID := uuid.New()
	sellerID := uuid.New()

	item := &models.CartItem{
		BuyerID:        buyerID,
		ProductID:      productID,
		ProductName:    "Widget",
		UnitPriceCents: 1500,
		Quantity:       2,
		SellerID:       sellerID,
	}
	if err := repos.Carts.Upsert(ctx, item); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Повторное добавление того же товара суммирует количество
	again := &models.CartItem{
		BuyerID:        buyerID,
		ProductID:      productID,
		ProductName:    "Widget",
		UnitPriceCents: 1500,
		Quantity:       3,
		SellerID:       sellerID,
	}
	if err := repos.Carts.Upsert(ctx, again); err != nil {
		t.Fatalf("Upsert second: %v", err)
	}

	items, err := repos.Carts.ListByBuyer(ctx, buyerID)
	if err != nil {
		t.Fatalf("ListByBuyer: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 cart row, got %d", len(items))
	}
	if items[0].Quantity != 5 {
		t.Fatalf("expected accumulated quantity 5, got %d", items[0].Quantity)
	}
}

func TestCartRepo_RemoveIdempotent(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	buyerID := uuid.New()
	productID := uuid.New()

	if err := repos.Carts.Upsert(ctx, &models.CartItem{
		BuyerID: buyerID, ProductID: productID,
		ProductName: "Widget", UnitPriceCents: 100, Quantity: 1, SellerID: uuid.New(),
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	removed, err := repos.Carts.Remove(ctx, buyerID, productID)
	if err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if !removed {
		t.Fatal("expected removed=true")
	}

	removed2, err := repos.Carts.Remove(ctx, buyerID, productID)
	if err != nil {
		t.Fatalf("Remove second: %v", err)
	}
	if removed2 {
		t.Fatal("expected removed2=false")
	}
}

func TestLedgerRepo_AppendAndSum(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	productID := uuid.New()
	sellerID := uuid.New()

	if err := repos.Stocks.EnsureRow(ctx, productID, sellerID, 5); err != nil {
		t.Fatalf("EnsureRow: %v", err)
	}

	entries := []struct {
		change   int32
		prev, nw int32
		reason   models.LedgerReason
	}{
		{10, 0, 10, models.LedgerReasonManual},
		{-3, 10, 7, models.LedgerReasonSale},
		{-2, 7, 5, models.LedgerReasonSale},
		{4, 5, 9, models.LedgerReasonRestock},
	}
	for _, e := range entries {
		if err := repos.Ledger.Append(ctx, &models.LedgerEntry{
			ProductID: productID, SellerID: sellerID,
			Change: e.change, Reason: e.reason,
			PreviousStock: e.prev, NewStock: e.nw,
		}); err != nil {
			t.Fatalf("Append %+v: %v", e, err)
		}
		if err := repos.Stocks.SetQuantity(ctx, productID, e.nw); err != nil {
			t.Fatalf("SetQuantity: %v", err)
		}
	}

	sum, err := repos.Ledger.SumChanges(ctx, productID)
	if err != nil {
		t.Fatalf("SumChanges: %v", err)
	}
	if sum != 9 {
		t.Fatalf("expected ledger sum 9, got %d", sum)
	}

	st, err := repos.Stocks.Get(ctx, productID)
	if err != nil {
		t.Fatalf("Get stock: %v", err)
	}
	if int64(st.Quantity) != sum {
		t.Fatalf("projection %d diverged from ledger sum %d", st.Quantity, sum)
	}

	list, err := repos.Ledger.ListByProduct(ctx, productID, 0)
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if len(list) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(list))
	}
	// Порядок создания: каждая запись продолжает цепочку предыдущей
	for i := 1; i < len(list); i++ {
		if list[i].PreviousStock != list[i-1].NewStock {
			t.Fatalf("entry %d breaks the chain: prev=%d, expected %d",
				i, list[i].PreviousStock, list[i-1].NewStock)
		}
	}
}

// Журнал append-only: UPDATE и DELETE режутся триггером в БД.
func TestLedgerRepo_AppendOnlyEnforced(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	productID := uuid.New()
	sellerID := uuid.New()
	if err := repos.Stocks.EnsureRow(ctx, productID, sellerID, 0); err != nil {
		t.Fatalf("EnsureRow: %v", err)
	}
	entry := &models.LedgerEntry{
		ProductID: productID, SellerID: sellerID,
		Change: 5, Reason: models.LedgerReasonManual,
		PreviousStock: 0, NewStock: 5,
	}
	if err := repos.Ledger.Append(ctx, entry); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := db.Exec("UPDATE inventory_ledger SET change = 100 WHERE id = ?", entry.ID).Error; err == nil {
		t.Fatal("expected UPDATE on ledger to fail")
	}
	if err := db.Exec("DELETE FROM inventory_ledger WHERE id = ?", entry.ID).Error; err == nil {
		t.Fatal("expected DELETE on ledger to fail")
	}
}

// CHECK в БД не даёт записать несогласованную или нулевую дельту.
func TestLedgerRepo_ChecksRejectBadRows(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	productID := uuid.New()
	sellerID := uuid.New()
	if err := repos.Stocks.EnsureRow(ctx, productID, sellerID, 0); err != nil {
		t.Fatalf("EnsureRow: %v", err)
	}

	// new_stock != previous_stock + change
	err := repos.Ledger.Append(ctx, &models.LedgerEntry{
		ProductID: productID, SellerID: sellerID,
		Change: 5, Reason: models.LedgerReasonManual,
		PreviousStock: 0, NewStock: 7,
	})
	if err == nil {
		t.Fatal("expected inconsistent entry to be rejected")
	}

	// change = 0
	err = repos.Ledger.Append(ctx, &models.LedgerEntry{
		ProductID: productID, SellerID: sellerID,
		Change: 0, Reason: models.LedgerReasonManual,
		PreviousStock: 0, NewStock: 0,
	})
	if err == nil {
		t.Fatal("expected zero-delta entry to be rejected")
	}

	// отрицательный результат
	err = repos.Ledger.Append(ctx, &models.LedgerEntry{
		ProductID: productID, SellerID: sellerID,
		Change: -3, Reason: models.LedgerReasonSale,
		PreviousStock: 1, NewStock: -2,
	})
	if err == nil {
		t.Fatal("expected negative new_stock to be rejected")
	}
}

func TestStockRepo_ThresholdAndLow(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	sellerID := uuid.New()
	lowID := uuid.New()
	okID := uuid.New()
	outID := uuid.New()

	for _, p := range []struct {
		id  uuid.UUID
		qty int32
		thr int32
	}{
		{lowID, 3, 5},
		{okID, 50, 5},
		{outID, 0, 5},
	} {
		if err := repos.Stocks.EnsureRow(ctx, p.id, sellerID, p.thr); err != nil {
			t.Fatalf("EnsureRow: %v", err)
		}
		if p.qty != 0 {
			if err := repos.Ledger.Append(ctx, &models.LedgerEntry{
				ProductID: p.id, SellerID: sellerID,
				Change: p.qty, Reason: models.LedgerReasonManual,
				PreviousStock: 0, NewStock: p.qty,
			}); err != nil {
				t.Fatalf("Append: %v", err)
			}
			if err := repos.Stocks.SetQuantity(ctx, p.id, p.qty); err != nil {
				t.Fatalf("SetQuantity: %v", err)
			}
		}
	}

	low, err := repos.Stocks.ListLow(ctx, sellerID)
	if err != nil {
		t.Fatalf("ListLow: %v", err)
	}
	if len(low) != 2 {
		t.Fatalf("expected 2 low-stock rows, got %d", len(low))
	}
	// отсортировано по возрастанию остатка
	if low[0].ProductID != outID || low[1].ProductID != lowID {
		t.Fatalf("unexpected low-stock order: %+v", low)
	}

	ok, err := repos.Stocks.SetThreshold(ctx, okID, 100)
	if err != nil {
		t.Fatalf("SetThreshold: %v", err)
	}
	if !ok {
		t.Fatal("expected threshold update to hit a row")
	}
	low, _ = repos.Stocks.ListLow(ctx, sellerID)
	if len(low) != 3 {
		t.Fatalf("expected 3 low-stock rows after raising threshold, got %d", len(low))
	}

	ok, err = repos.Stocks.SetThreshold(ctx, uuid.New(), 1)
	if err != nil {
		t.Fatalf("SetThreshold missing: %v", err)
	}
	if ok {
		t.Fatal("expected no rows for unknown product")
	}
}

func TestOrderRepo_GuardedStatusUpdate(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	buyerID := uuid.New()
	order := &models.Order{
		OrderNumber:     "ORD-20250101-TEST01",
		BuyerID:         buyerID,
		TotalCents:      1000,
		Status:          models.OrderStatusNew,
		Payment:         models.PaymentStatusPending,
		ShippingName:    "Test",
		ShippingPhone:   "123",
		ShippingAddress: "Street 1",
		ShippingCity:    "City",
		ShippingPincode: "000000",
		Items: []models.OrderItem{{
			ProductID: uuid.New(), SellerID: uuid.New(),
			ProductName: "Widget", Quantity: 2, UnitPriceCents: 500, LineTotalCents: 1000,
		}},
		History: []models.OrderStatusHistory{{Status: models.OrderStatusNew, Note: "order created"}},
	}
	if err := repos.Orders.Create(ctx, order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	ok, err := repos.Orders.UpdateStatusGuarded(ctx, order.ID, models.OrderStatusNew, models.OrderStatusProcessing)
	if err != nil {
		t.Fatalf("UpdateStatusGuarded: %v", err)
	}
	if !ok {
		t.Fatal("expected guarded update from NEW to succeed")
	}

	// Повтор с тем же ожидаемым статусом должен промахнуться
	ok, err = repos.Orders.UpdateStatusGuarded(ctx, order.ID, models.OrderStatusNew, models.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("UpdateStatusGuarded second: %v", err)
	}
	if ok {
		t.Fatal("expected stale guarded update to miss")
	}

	got, err := repos.Orders.GetByID(ctx, order.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != models.OrderStatusProcessing {
		t.Fatalf("expected PROCESSING, got %s", got.Status)
	}
	if len(got.Items) != 1 || len(got.History) != 1 {
		t.Fatalf("expected preloaded items and history: %+v", got)
	}
}

func TestOrderRepo_ScopedReads(t *testing.T) {
	db := setupDB(t)
	repos := repository.New(db)
	ctx := context.Background()

	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()

	order := &models.Order{
		OrderNumber:     "ORD-20250101-TEST02",
		BuyerID:         buyerID,
		TotalCents:      3000,
		Status:          models.OrderStatusNew,
		Payment:         models.PaymentStatusPending,
		ShippingName:    "Test",
		ShippingPhone:   "123",
		ShippingAddress: "Street 1",
		ShippingCity:    "City",
		ShippingPincode: "000000",
		Items: []models.OrderItem{
			{ProductID: uuid.New(), SellerID: sellerA, ProductName: "A", Quantity: 1, UnitPriceCents: 1000, LineTotalCents: 1000},
			{ProductID: uuid.New(), SellerID: sellerB, ProductName: "B", Quantity: 2, UnitPriceCents: 1000, LineTotalCents: 2000},
		},
		History: []models.OrderStatusHistory{{Status: models.OrderStatusNew}},
	}
	if err := repos.Orders.Create(ctx, order); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Чужой покупатель заказ не видит
	got, err := repos.Orders.GetByIDForBuyer(ctx, order.ID, uuid.New())
	if err != nil {
		t.Fatalf("GetByIDForBuyer: %v", err)
	}
	if got != nil {
		t.Fatal("expected nil for foreign buyer")
	}

	has, err := repos.Orders.SellerHasItems(ctx, order.ID, sellerA)
	if err != nil {
		t.Fatalf("SellerHasItems: %v", err)
	}
	if !has {
		t.Fatal("sellerA must have items in the order")
	}
	has, _ = repos.Orders.SellerHasItems(ctx, order.ID, uuid.New())
	if has {
		t.Fatal("foreign seller must not have items")
	}

	orders, total, err := repos.Orders.ListBySeller(ctx, sellerA, repository.OrderListFilter{Limit: 10})
	if err != nil {
		t.Fatalf("ListBySeller: %v", err)
	}
	if total != 1 || len(orders) != 1 {
		t.Fatalf("expected 1 order for sellerA, got total=%d len=%d", total, len(orders))
	}
	// Позиции в выдаче продавца отфильтрованы по нему
	if len(orders[0].Items) != 1 || orders[0].Items[0].SellerID != sellerA {
		t.Fatalf("seller listing must only carry own items: %+v", orders[0].Items)
	}
}
