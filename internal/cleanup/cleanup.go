package cleanup

import (
	"context"
	"time"

	"checkout-service/internal/repository"

	"go.uber.org/zap"
)

type ReservationSweeper interface {
	Sweep(now time.Time) int
}

type CleanupService struct {
	tracker   ReservationSweeper
	idem      repository.IdempotencyRepo
	retention time.Duration
	log       *zap.Logger
	now       func() time.Time
}

// NewCleanupService: retention == 0 отключает удаление ключей идемпотентности.
func NewCleanupService(tracker ReservationSweeper, idem repository.IdempotencyRepo, retention time.Duration, log *zap.Logger) *CleanupService {
	return &CleanupService{
		tracker:   tracker,
		idem:      idem,
		retention: retention,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SweepReservations снимает резервы брошенных корзин
func (c *CleanupService) SweepReservations() int {
	n := c.tracker.Sweep(c.now())
	if n > 0 {
		c.log.Info("expired reservations released", zap.Int("count", n))
	}
	return n
}

// PurgeIdempotencyKeys удаляет ключи старше retention
func (c *CleanupService) PurgeIdempotencyKeys(ctx context.Context) (int64, error) {
	if c.retention <= 0 || c.idem == nil {
		return 0, nil
	}
	n, err := c.idem.Purge(ctx, c.now().Add(-c.retention))
	if err != nil {
		c.log.Error("failed to purge idempotency keys", zap.Error(err))
		return 0, err
	}
	if n > 0 {
		c.log.Info("purged idempotency keys", zap.Int64("count", n))
	}
	return n, nil
}

func (c *CleanupService) RunFullCleanup(ctx context.Context) error {
	c.log.Info("starting full cleanup")
	c.SweepReservations()
	if _, err := c.PurgeIdempotencyKeys(ctx); err != nil {
		return err
	}
	c.log.Info("full cleanup completed")
	return nil
}
