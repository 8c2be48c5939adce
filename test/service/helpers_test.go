package service_test

import (
	"context"
	"sync"
	"testing"

	"marketplace-core/internal/migrate"
	"marketplace-core/internal/repository"
	"marketplace-core/internal/service"
	"marketplace-core/pkg/testutil"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func setupRepos(t *testing.T) *repository.Repository {
	t.Helper()
	db := testutil.SetupTestPostgres(t)
	if err := migrate.MigrateCoreDB(context.Background(), db, zap.NewNop(), migrate.DefaultMigrateOptions()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repository.New(db)
}

func buyerCtx(id uuid.UUID) context.Context {
	ctx := service.WithUserID(context.Background(), id)
	return service.WithRole(ctx, service.RoleBuyer)
}

func sellerCtx(id uuid.UUID) context.Context {
	ctx := service.WithUserID(context.Background(), id)
	return service.WithRole(ctx, service.RoleSeller)
}

func adminCtx(id uuid.UUID) context.Context {
	ctx := service.WithUserID(context.Background(), id)
	return service.WithRole(ctx, service.RoleAdmin)
}

// fakeCatalog — каталог в памяти.
type fakeCatalog struct {
	mu       sync.Mutex
	products map[uuid.UUID]service.CatalogProduct
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: map[uuid.UUID]service.CatalogProduct{}}
}

func (f *fakeCatalog) add(p service.CatalogProduct) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.products[p.ProductID] = p
}

func (f *fakeCatalog) remove(id uuid.UUID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.products, id)
}

func (f *fakeCatalog) setPrice(id uuid.UUID, price int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.UnitPriceCents = price
	f.products[id] = p
}

func (f *fakeCatalog) GetProduct(_ context.Context, id uuid.UUID) (*service.CatalogProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (f *fakeCatalog) GetProducts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]service.CatalogProduct, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[uuid.UUID]service.CatalogProduct{}
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

// fakeBus копит опубликованные события.
type fakeBus struct {
	mu            sync.Mutex
	created       []service.OrderCreatedEvent
	statusChanged []service.OrderStatusChangedEvent
	lowStock      []service.LowStockEvent
}

func (b *fakeBus) PublishOrderCreated(_ context.Context, e service.OrderCreatedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, e)
	return nil
}

func (b *fakeBus) PublishOrderStatusChanged(_ context.Context, e service.OrderStatusChangedEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statusChanged = append(b.statusChanged, e)
	return nil
}

func (b *fakeBus) PublishLowStock(_ context.Context, e service.LowStockEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lowStock = append(b.lowStock, e)
	return nil
}

func (b *fakeBus) lowStockCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lowStock)
}
