package cleanup

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

type Scheduler struct {
	cleanup       *CleanupService
	log           *zap.Logger
	sweepInterval time.Duration
	purgeInterval time.Duration
	stopCh        chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

func NewScheduler(cleanup *CleanupService, sweepInterval, purgeInterval time.Duration, log *zap.Logger) *Scheduler {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	if purgeInterval <= 0 {
		purgeInterval = time.Hour
	}
	return &Scheduler{
		cleanup:       cleanup,
		log:           log,
		sweepInterval: sweepInterval,
		purgeInterval: purgeInterval,
		stopCh:        make(chan struct{}),
	}
}

// Start запускает планировщик задач
func (s *Scheduler) Start(ctx context.Context) {
	s.log.Info("starting cleanup scheduler",
		zap.Duration("sweep_interval", s.sweepInterval),
		zap.Duration("purge_interval", s.purgeInterval))

	s.wg.Add(2)
	go s.runReservationSweep(ctx)
	go s.runIdempotencyPurge(ctx)
}

// Stop останавливает планировщик и ждёт завершения горутин
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.log.Info("stopping cleanup scheduler")
		close(s.stopCh)
	})
	s.wg.Wait()
}

func (s *Scheduler) runReservationSweep(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup.SweepReservations()
		case <-s.stopCh:
			s.log.Info("reservation sweep stopped")
			return
		case <-ctx.Done():
			s.log.Info("reservation sweep cancelled")
			return
		}
	}
}

func (s *Scheduler) runIdempotencyPurge(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.purgeInterval)
	defer ticker.Stop()

	// Выполняем сразу при старте
	if _, err := s.cleanup.PurgeIdempotencyKeys(ctx); err != nil {
		s.log.Error("initial idempotency purge failed", zap.Error(err))
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.cleanup.PurgeIdempotencyKeys(ctx); err != nil {
				s.log.Error("idempotency purge failed", zap.Error(err))
			}
		case <-s.stopCh:
			s.log.Info("idempotency purge stopped")
			return
		case <-ctx.Done():
			s.log.Info("idempotency purge cancelled")
			return
		}
	}
}

// RunOnceNow выполняет полную очистку немедленно
func (s *Scheduler) RunOnceNow(ctx context.Context) error {
	return s.cleanup.RunFullCleanup(ctx)
}
