package repository

import (
	"context"
	"errors"
	"sort"

	"checkout-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ItemRepo interface {
	Get(ctx context.Context, id string) (*models.MenuItem, error)
	BatchGet(ctx context.Context, ids []string) ([]models.MenuItem, error)
	List(ctx context.Context, limit, offset int) ([]models.MenuItem, error)
	Upsert(ctx context.Context, item *models.MenuItem) error
	SetInventory(ctx context.Context, id string, enabled bool, inventory *int32) (bool, error)

	// LockForUpdate: SELECT ... FOR UPDATE в порядке id, чтобы конкурирующие
	// транзакции брали блокировки в одном порядке.
	LockForUpdate(ctx context.Context, ids []string) ([]models.MenuItem, error)
	// TryDecrement: if inventory >= qty then inventory -= qty (только для отслеживаемых позиций)
	TryDecrement(ctx context.Context, id string, qty int32) (bool, error)
	// Restore: inventory += qty (компенсация при отмене)
	Restore(ctx context.Context, id string, qty int32) (bool, error)
}

type itemRepo struct{ db *gorm.DB }

func NewItemRepo(db *gorm.DB) ItemRepo { return &itemRepo{db: db} }

func (r *itemRepo) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	var it models.MenuItem
	err := r.db.WithContext(ctx).First(&it, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *itemRepo) BatchGet(ctx context.Context, ids []string) ([]models.MenuItem, error) {
	if len(ids) == 0 {
		return []models.MenuItem{}, nil
	}

	var list []models.MenuItem
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&list).Error
	return list, err
}

func (r *itemRepo) List(ctx context.Context, limit, offset int) ([]models.MenuItem, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var list []models.MenuItem
	err := r.db.WithContext(ctx).Order("id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *itemRepo) Upsert(ctx context.Context, item *models.MenuItem) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price_cents", "inventory_enabled", "inventory", "updated_at"}),
	}).Create(item).Error
}

func (r *itemRepo) SetInventory(ctx context.Context, id string, enabled bool, inventory *int32) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&models.MenuItem{}).Where("id = ?", id).Updates(map[string]any{
		"inventory_enabled": enabled,
		"inventory":         inventory,
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *itemRepo) LockForUpdate(ctx context.Context, ids []string) ([]models.MenuItem, error) {
	if len(ids) == 0 {
		return []models.MenuItem{}, nil
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	var list []models.MenuItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).
		Order("id ASC").
		Find(&list).Error
	return list, err
}

func (r *itemRepo) TryDecrement(ctx context.Context, id string, qty int32) (bool, error) {
	// атомарно: inventory -= qty, если хватает
	tx := r.db.WithContext(ctx).Exec(`
UPDATE menu_items
SET inventory = inventory - @q,
    updated_at = @now
WHERE id = @id
  AND inventory_enabled = @enabled
  AND inventory IS NOT NULL
  AND inventory >= @q
`, map[string]any{
		"id":      id,
		"q":       qty,
		"enabled": true,
		"now":     r.db.NowFunc(),
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *itemRepo) Restore(ctx context.Context, id string, qty int32) (bool, error) {
	tx := r.db.WithContext(ctx).Exec(`
UPDATE menu_items
SET inventory = inventory + @q,
    updated_at = @now
WHERE id = @id
  AND inventory_enabled = @enabled
  AND inventory IS NOT NULL
`, map[string]any{
		"id":      id,
		"q":       qty,
		"enabled": true,
		"now":     r.db.NowFunc(),
	})
	return tx.RowsAffected > 0, tx.Error
}
