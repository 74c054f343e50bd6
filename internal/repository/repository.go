package repository

import (
	"context"

	"gorm.io/gorm"
)

type Repository struct {
	DB          *gorm.DB
	Items       ItemRepo
	Orders      OrderRepo
	OrderItems  OrderItemRepo
	Idempotency IdempotencyRepo
}

func buildRepository(db *gorm.DB) *Repository {
	return &Repository{
		DB:          db,
		Items:       NewItemRepo(db),
		Orders:      NewOrderRepo(db),
		OrderItems:  NewOrderItemRepo(db),
		Idempotency: NewIdempotencyRepo(db),
	}
}

func New(db *gorm.DB) *Repository { return buildRepository(db) }

// Глобальная транзакция на весь набор репо.
// Внутри fn можно пользоваться только tx: внешний DB на sqlite заблокируется.
func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(buildRepository(tx))
	})
}
