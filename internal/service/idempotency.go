package service

import (
	"context"
	"time"

	"checkout-service/internal/repository"

	"go.uber.org/zap"
)

// IdempotencyGuard: первый сохранённый результат для ключа: единственный.
// Источник истины: таблица, кэш только ускоряет повторы.
type IdempotencyGuard struct {
	repo     repository.IdempotencyRepo
	cache    ResultCache
	cacheTTL time.Duration
	log      *zap.Logger
}

func NewIdempotencyGuard(repo repository.IdempotencyRepo, cache ResultCache, cacheTTL time.Duration, log *zap.Logger) *IdempotencyGuard {
	return &IdempotencyGuard{repo: repo, cache: cache, cacheTTL: cacheTTL, log: log}
}

// Check возвращает сохранённый результат или nil, если ключ не встречался
// (или его транзакция ещё не завершилась).
func (g *IdempotencyGuard) Check(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	if g.cache != nil {
		cached, err := g.cache.GetResult(ctx, key)
		if err != nil {
			g.log.Warn("idempotency cache read failed", zap.String("key", key), zap.Error(err))
		} else if len(cached) > 0 {
			return cached, nil
		}
	}

	rec, err := g.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil || len(rec.Result) == 0 {
		return nil, nil
	}
	g.remember(ctx, key, rec.Result)
	return rec.Result, nil
}

// Store: insert-if-absent. Возвращает результат, который победил.
func (g *IdempotencyGuard) Store(ctx context.Context, key string, result []byte) ([]byte, error) {
	inserted, err := g.repo.InsertIfAbsent(ctx, key, result)
	if err != nil {
		return nil, err
	}
	if inserted {
		g.remember(ctx, key, result)
		return result, nil
	}

	rec, err := g.repo.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if rec == nil || len(rec.Result) == 0 {
		return nil, ErrIdempotencyInFlight
	}
	g.remember(ctx, key, rec.Result)
	return rec.Result, nil
}

// claim выполняется внутри транзакции коммита. Если ключ уже занят,
// возвращается сохранённый результат победителя.
func (g *IdempotencyGuard) claim(ctx context.Context, tx *repository.Repository, key string) (stored []byte, claimed bool, err error) {
	claimed, err = tx.Idempotency.Claim(ctx, key)
	if err != nil || claimed {
		return nil, claimed, err
	}

	rec, err := tx.Idempotency.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if rec == nil || len(rec.Result) == 0 {
		return nil, false, ErrIdempotencyInFlight
	}
	return rec.Result, false, nil
}

func (g *IdempotencyGuard) remember(ctx context.Context, key string, result []byte) {
	if g.cache == nil || len(result) == 0 {
		return
	}
	if err := g.cache.SetResult(ctx, key, result, g.cacheTTL); err != nil {
		g.log.Warn("idempotency cache write failed", zap.String("key", key), zap.Error(err))
	}
}
