package repository

import (
	"context"
	"errors"
	"time"

	"checkout-service/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type IdempotencyRepo interface {
	Get(ctx context.Context, key string) (*models.IdempotencyRecord, error)
	// Claim: INSERT ... ON CONFLICT DO NOTHING с пустым результатом.
	// false: ключ уже занят другой (возможно ещё открытой) транзакцией.
	Claim(ctx context.Context, key string) (bool, error)
	SaveResult(ctx context.Context, key string, result []byte) error
	// InsertIfAbsent сохраняет результат, только если ключа ещё нет.
	InsertIfAbsent(ctx context.Context, key string, result []byte) (bool, error)
	// Purge удаляет записи старше before, возвращает их число.
	Purge(ctx context.Context, before time.Time) (int64, error)
}

type idempotencyRepo struct{ db *gorm.DB }

func NewIdempotencyRepo(db *gorm.DB) IdempotencyRepo { return &idempotencyRepo{db: db} }

func (r *idempotencyRepo) Get(ctx context.Context, key string) (*models.IdempotencyRecord, error) {
	var rec models.IdempotencyRecord
	err := r.db.WithContext(ctx).First(&rec, "idempotency_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *idempotencyRepo) Claim(ctx context.Context, key string) (bool, error) {
	return r.InsertIfAbsent(ctx, key, []byte{})
}

func (r *idempotencyRepo) SaveResult(ctx context.Context, key string, result []byte) error {
	return r.db.WithContext(ctx).Model(&models.IdempotencyRecord{}).
		Where("idempotency_key = ?", key).
		Updates(map[string]any{"result": result, "stored_at": r.db.NowFunc()}).Error
}

func (r *idempotencyRepo) InsertIfAbsent(ctx context.Context, key string, result []byte) (bool, error) {
	tx := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.IdempotencyRecord{
		Key:      key,
		Result:   result,
		StoredAt: r.db.NowFunc(),
	})
	return tx.RowsAffected > 0, tx.Error
}

func (r *idempotencyRepo) Purge(ctx context.Context, before time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("stored_at < ?", before).Delete(&models.IdempotencyRecord{})
	return tx.RowsAffected, tx.Error
}
