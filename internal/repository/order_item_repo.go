package repository

import (
	"context"
	"time"

	"checkout-service/internal/models"

	"gorm.io/gorm"
)

type OrderItemRepo interface {
	BulkCreate(ctx context.Context, items []models.OrderItem) error
	// CountRecentOrders: число неотменённых заказов с позицией начиная с since.
	CountRecentOrders(ctx context.Context, menuItemID string, since time.Time) (int64, error)
	// SumCommitted: сколько единиц позиции ушло в неотменённые заказы.
	SumCommitted(ctx context.Context, menuItemID string) (int64, error)
}

type orderItemRepo struct{ db *gorm.DB }

func NewOrderItemRepo(db *gorm.DB) OrderItemRepo { return &orderItemRepo{db: db} }

func (r *orderItemRepo) BulkCreate(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *orderItemRepo) CountRecentOrders(ctx context.Context, menuItemID string, since time.Time) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.menu_item_id = ? AND o.created_at >= ? AND o.status <> ?", menuItemID, since, models.OrderStatusCancelled).
		Distinct("oi.order_id").
		Count(&cnt).Error
	return cnt, err
}

func (r *orderItemRepo) SumCommitted(ctx context.Context, menuItemID string) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Table("order_items AS oi").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.menu_item_id = ? AND o.status <> ?", menuItemID, models.OrderStatusCancelled).
		Select("COALESCE(SUM(oi.quantity),0)").
		Scan(&total).Error
	return total, err
}
