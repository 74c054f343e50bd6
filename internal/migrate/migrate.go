package migrate

import (
	"context"

	"checkout-service/internal/database"
	"checkout-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MigrateOptions struct {
	CreateChecks           bool // CHECK-constraint'ы
	CreateIndexes          bool // составные индексы
	CreateUpdatedAtTrigger bool // триггеры updated_at
}

func DefaultMigrateOptions() MigrateOptions {
	return MigrateOptions{
		CreateChecks:           true,
		CreateIndexes:          true,
		CreateUpdatedAtTrigger: true,
	}
}

type step struct {
	name string
	sql  string
}

var checkSteps = []step{
	{"chk menu_items.inventory", `
ALTER TABLE menu_items
	DROP CONSTRAINT IF EXISTS chk_menu_items_inventory_non_negative,
	ADD CONSTRAINT chk_menu_items_inventory_non_negative
	CHECK (inventory IS NULL OR inventory >= 0);
`},
	{"chk menu_items.price", `
ALTER TABLE menu_items
	DROP CONSTRAINT IF EXISTS chk_menu_items_price_non_negative,
	ADD CONSTRAINT chk_menu_items_price_non_negative
	CHECK (price_cents >= 0);
`},
	{"chk order_items.qty", `
ALTER TABLE order_items
	DROP CONSTRAINT IF EXISTS chk_order_items_quantity_gt_zero,
	ADD CONSTRAINT chk_order_items_quantity_gt_zero
	CHECK (quantity > 0);
`},
	{"chk orders.status", `
ALTER TABLE orders
	DROP CONSTRAINT IF EXISTS chk_orders_status_allowed,
	ADD CONSTRAINT chk_orders_status_allowed
	CHECK (status IN ('PENDING','CONFIRMED','CANCELLED'));
`},
}

var indexSteps = []step{
	// сигнал частоты заказов: order_items по позиции и времени
	{"ix order_items item_created", `
CREATE INDEX IF NOT EXISTS ix_order_items_item_created
ON order_items (menu_item_id, created_at DESC);
`},
	{"ix orders status_created", `
CREATE INDEX IF NOT EXISTS ix_orders_status_created
ON orders (status, created_at DESC);
`},
}

const updatedAtTriggers = `
CREATE OR REPLACE FUNCTION set_updated_at() RETURNS trigger AS $$
BEGIN NEW.updated_at = now(); RETURN NEW; END; $$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS trg_menu_items_updated ON menu_items;
CREATE TRIGGER trg_menu_items_updated BEFORE UPDATE ON menu_items
FOR EACH ROW EXECUTE FUNCTION set_updated_at();

DROP TRIGGER IF EXISTS trg_orders_updated ON orders;
CREATE TRIGGER trg_orders_updated BEFORE UPDATE ON orders
FOR EACH ROW EXECUTE FUNCTION set_updated_at();
`

// MigrateCheckoutDB создаёт таблицы на любом поддерживаемом диалекте.
// CHECK-и, триггеры и индексы через SQL применяются только на Postgres.
func MigrateCheckoutDB(ctx context.Context, db *gorm.DB, log *zap.Logger, opt MigrateOptions) error {
	log.Info("Начало миграции базы заказов", zap.String("dialect", db.Dialector.Name()))
	db = db.WithContext(ctx)

	log.Info("Создание таблиц: menu_items, orders, order_items, idempotency_records")
	if err := db.AutoMigrate(
		&models.MenuItem{},
		&models.Order{},
		&models.OrderItem{},
		&models.IdempotencyRecord{},
	); err != nil {
		log.Error("AutoMigrate error", zap.Error(err))
		return err
	}
	log.Info("Таблицы созданы")

	if db.Dialector.Name() != database.DriverPostgres {
		log.Info("Диалект без postgres-расширений, дополнительные шаги пропущены")
		log.Info("Миграция базы заказов успешно завершена")
		return nil
	}

	if opt.CreateUpdatedAtTrigger {
		log.Info("Создание триггеров updated_at")
		if err := db.Exec(updatedAtTriggers).Error; err != nil {
			log.Error("triggers error", zap.Error(err))
			return err
		}
		log.Info("Триггеры созданы")
	}

	if opt.CreateChecks {
		log.Info("Создание CHECK-ограничений")
		if err := runSteps(db, log, checkSteps); err != nil {
			return err
		}
		log.Info("CHECK-и созданы")
	}

	if opt.CreateIndexes {
		log.Info("Создание индексов")
		if err := runSteps(db, log, indexSteps); err != nil {
			return err
		}
		log.Info("Индексы созданы")
	}

	log.Info("Миграция базы заказов успешно завершена")
	return nil
}

func runSteps(db *gorm.DB, log *zap.Logger, steps []step) error {
	for _, s := range steps {
		if err := db.Exec(s.sql).Error; err != nil {
			log.Error(s.name, zap.Error(err))
			return err
		}
	}
	return nil
}
