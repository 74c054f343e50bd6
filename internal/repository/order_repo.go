package repository

import (
	"context"
	"errors"

	"checkout-service/internal/models"

	"gorm.io/gorm"
)

type OrderListFilter struct {
	SessionID string
	Status    *models.OrderStatus
	Limit     int
	Offset    int
}

type OrderRepo interface {
	Create(ctx context.Context, o *models.Order) error
	GetByID(ctx context.Context, id string) (*models.Order, error)
	// MarkCancelled: false, если заказ уже отменён (или не найден).
	MarkCancelled(ctx context.Context, id string, reason *string) (bool, error)
	List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error)
	Count(ctx context.Context) (int64, error)
}

type orderRepo struct{ db *gorm.DB }

func NewOrderRepo(db *gorm.DB) OrderRepo { return &orderRepo{db: db} }

// Create пишет только заказ, строки добавляются через OrderItemRepo.BulkCreate.
func (r *orderRepo) Create(ctx context.Context, o *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(o).Error
}

func (r *orderRepo) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var ord models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("menu_item_id ASC") }).
		First(&ord, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ord, nil
}

func (r *orderRepo) MarkCancelled(ctx context.Context, id string, reason *string) (bool, error) {
	upd := map[string]any{"status": models.OrderStatusCancelled}
	if reason != nil {
		upd["cancel_reason"] = reason
	}

	tx := r.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status <> ?", id, models.OrderStatusCancelled).
		Updates(upd)
	return tx.RowsAffected > 0, tx.Error
}

func (r *orderRepo) List(ctx context.Context, f OrderListFilter) ([]*models.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})

	if f.SessionID != "" {
		q = q.Where("session_id = ?", f.SessionID)
	}
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}

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

	var list []*models.Order
	err := q.Order("created_at DESC").Limit(f.Limit).Offset(f.Offset).Preload("Items").Find(&list).Error
	return list, total, err
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&models.Order{}).Count(&cnt).Error
	return cnt, err
}
