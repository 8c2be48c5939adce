package migrate

import (
	"context"

	"marketplace-core/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateExtensions       bool // pgcrypto
	CreateChecks           bool // CHECK-constraint'ы
	CreateIndexes          bool // индексы и UNIQUE
	CreateFKsViaSQL        bool // FK через Exec после AutoMigrate
	CreateUpdatedAtTrigger bool // триггеры updated_at
	CreateLedgerGuard      bool // запрет UPDATE/DELETE по журналу
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateExtensions:       true,
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateFKsViaSQL:        true,
		CreateUpdatedAtTrigger: true,
		CreateLedgerGuard:      true,
	}
}

func MigrateCoreDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы заказов/склада")

	if opt.CreateExtensions {
		log.Info("Создание расширений PostgreSQL")
		if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS pgcrypto`).Error; err != nil {
			log.Error("pgcrypto error", zap.Error(err))
			return err
		}
		log.Info("Расширения созданы")
	}

	log.Info("Создание таблиц: product_stocks, inventory_ledger, cart_items, orders, order_items, order_status_history")
	if err := db.AutoMigrate(
		&models.ProductStock{},
		&models.LedgerEntry{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderStatusHistory{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Таблицы созданы")

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_product_stocks_updated ON product_stocks;
CREATE TRIGGER trg_product_stocks_updated BEFORE UPDATE ON product_stocks
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_cart_items_updated ON cart_items;
CREATE TRIGGER trg_cart_items_updated BEFORE UPDATE ON cart_items
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`).Error; err != nil {
			log.Error("triggers error", zap.Error(err))
			return err
		}
		log.Info("Триггеры созданы")
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")

		// Остаток не может уйти в минус
		if err := db.Exec(`
ALTER TABLE product_stocks
	DROP CONSTRAINT IF EXISTS chk_product_stocks_non_negative,
	ADD CONSTRAINT chk_product_stocks_non_negative
	CHECK (quantity >= 0 AND reorder_threshold >= 0);
`).Error; err != nil {
			log.Error("chk product_stocks", zap.Error(err))
			return err
		}

		// Арифметика журнала: new = previous + change, остаток после записи >= 0
		if err := db.Exec(`
ALTER TABLE inventory_ledger
	DROP CONSTRAINT IF EXISTS chk_ledger_balance,
	ADD CONSTRAINT chk_ledger_balance
	CHECK (new_stock = previous_stock + change AND new_stock >= 0 AND change <> 0);
`).Error; err != nil {
			log.Error("chk ledger balance", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE inventory_ledger
	DROP CONSTRAINT IF EXISTS chk_ledger_reason_allowed,
	ADD CONSTRAINT chk_ledger_reason_allowed
	CHECK (reason IN ('manual','sale','return','restock','adjustment'));
`).Error; err != nil {
			log.Error("chk ledger.reason", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE cart_items
	DROP CONSTRAINT IF EXISTS chk_cart_items_quantity_gt_zero,
	ADD CONSTRAINT chk_cart_items_quantity_gt_zero
	CHECK (quantity > 0);
`).Error; err != nil {
			log.Error("chk cart_items.qty", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE order_items
	DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero,
	ADD CONSTRAINT chk_order_items_quantity_gt_zero
	CHECK (quantity > 0 AND line_total_cents = unit_price_cents * quantity);
`).Error; err != nil {
			log.Error("chk order_items", zap.Error(err))
			return err
		}

		// Допустимые статусы
		if err := db.Exec(`
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_status_allowed,
	ADD CONSTRAINT chk_orders_status_allowed
	CHECK (status IN ('ORDER_STATUS_NEW','ORDER_STATUS_PROCESSING','ORDER_STATUS_SHIPPED','ORDER_STATUS_DELIVERED','ORDER_STATUS_CANCELLED','ORDER_STATUS_RETURNED'));
`).Error; err != nil {
			log.Error("chk orders.status", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_payment_status_allowed,
	ADD CONSTRAINT chk_orders_payment_status_allowed
	CHECK (payment_status IN ('PAYMENT_STATUS_PENDING','PAYMENT_STATUS_PAID','PAYMENT_STATUS_FAILED','PAYMENT_STATUS_REFUNDED'));
`).Error; err != nil {
			log.Error("chk orders.payment_status", zap.Error(err))
			return err
		}

		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов и уникальностей")

		// Номер заказа глобально уникален — защита от коллизий на уровне хранилища
		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_orders_order_number
ON orders (order_number);
`).Error; err != nil {
			log.Error("ux orders.order_number", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS ux_cart_items_buyer_product
ON cart_items (buyer_id, product_id);
`).Error; err != nil {
			log.Error("ux cart_items buyer_product", zap.Error(err))
			return err
		}

		// Журнал: выборки по товару в порядке создания и по ссылке на заказ
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_ledger_product_created
ON inventory_ledger (product_id, created_at ASC);
`).Error; err != nil {
			log.Error("ix ledger product_created", zap.Error(err))
			return err
		}
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_ledger_reference
ON inventory_ledger (reference_id) WHERE reference_id IS NOT NULL;
`).Error; err != nil {
			log.Error("ix ledger reference", zap.Error(err))
			return err
		}
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_ledger_seller_created
ON inventory_ledger (seller_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix ledger seller_created", zap.Error(err))
			return err
		}

		// Низкие остатки: частичный индекс по условию детектора
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_product_stocks_low
ON product_stocks (seller_id) WHERE quantity <= reorder_threshold;
`).Error; err != nil {
			log.Error("ix product_stocks low", zap.Error(err))
			return err
		}

		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_orders_buyer_created
ON orders (buyer_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix orders buyer_created", zap.Error(err))
			return err
		}
		if err := db.Exec(`
CREATE INDEX IF NOT EXISTS ix_order_items_seller_created
ON order_items (seller_id, created_at DESC);
`).Error; err != nil {
			log.Error("ix order_items seller_created", zap.Error(err))
			return err
		}

		log.Info("Индексы созданы")
	}

	if opt.CreateLedgerGuard {
		log.Info("Создание защиты журнала от UPDATE/DELETE")
		if err := db.Exec(`
CREATE OR REPLACE FUNCTION forbid_ledger_mutation() RETURNS trigger AS $$
BEGIN RAISE EXCEPTION 'inventory_ledger is append-only'; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_ledger_no_update ON inventory_ledger;
CREATE TRIGGER trg_ledger_no_update BEFORE UPDATE OR DELETE ON inventory_ledger
FOR EACH ROW EXECUTE FUNCTION forbid_ledger_mutation();
`).Error; err != nil {
			log.Error("ledger guard error", zap.Error(err))
			return err
		}
		log.Info("Защита журнала создана")
	}

	if opt.CreateFKsViaSQL {
		log.Info("Создание внешних ключей")

		// ledger.product_id -> product_stocks.product_id (журнал без товара не живёт)
		if err := db.Exec(`
ALTER TABLE inventory_ledger
  DROP CONSTRAINT IF EXISTS fk_ledger_product,
  ADD CONSTRAINT fk_ledger_product
    FOREIGN KEY (product_id) REFERENCES product_stocks(product_id) ON DELETE RESTRICT;
`).Error; err != nil {
			log.Error("fk ledger.product_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE order_items
  DROP CONSTRAINT IF EXISTS fk_order_items_order,
  ADD CONSTRAINT fk_order_items_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk order_items.order_id", zap.Error(err))
			return err
		}

		if err := db.Exec(`
ALTER TABLE order_status_history
  DROP CONSTRAINT IF EXISTS fk_order_history_order,
  ADD CONSTRAINT fk_order_history_order
    FOREIGN KEY (order_id) REFERENCES orders(id) ON DELETE CASCADE;
`).Error; err != nil {
			log.Error("fk order_status_history.order_id", zap.Error(err))
			return err
		}

		log.Info("Внешние ключи созданы")
	}

	log.Info("Миграция базы заказов/склада успешно завершена")
	return nil
}
