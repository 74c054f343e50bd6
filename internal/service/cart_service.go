package service

import (
	"context"
	"errors"
	"time"

	"checkout-service/internal/demand"
	"checkout-service/internal/repository"
	"checkout-service/internal/reservation"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// окно сигнала "заказано N раз за последний час"
const recentOrdersWindow = time.Hour

type CartService struct {
	tracker    *reservation.Tracker
	items      repository.ItemRepo
	orderItems repository.OrderItemRepo
	thresholds demand.Thresholds
	log        *zap.Logger
	now        func() time.Time
}

func NewCartService(tracker *reservation.Tracker, repo *repository.Repository, th demand.Thresholds, log *zap.Logger) *CartService {
	return &CartService{
		tracker:    tracker,
		items:      repo.Items,
		orderItems: repo.OrderItems,
		thresholds: th,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// TrackCartItem выставляет количество позиции в корзине сессии. Только память, без БД.
func (s *CartService) TrackCartItem(sessionID, itemID string, qty int32) error {
	if err := s.tracker.Track(sessionID, itemID, qty); err != nil {
		s.log.Warn("reservation rejected",
			zap.String("session_id", sessionID),
			zap.String("item_id", itemID),
			zap.Int32("quantity", qty),
			zap.Error(err))
		if errors.Is(err, reservation.ErrInvalidReservationInput) {
			return ErrInvalidCartInput
		}
		return err
	}
	return nil
}

func (s *CartService) ReleaseCartItem(sessionID, itemID string) {
	s.tracker.Release(sessionID, itemID)
}

func (s *CartService) ReleaseAllCartItems(sessionID string) int {
	n := s.tracker.ReleaseAll(sessionID)
	if n > 0 {
		s.log.Debug("cart released", zap.String("session_id", sessionID), zap.Int("count", n))
	}
	return n
}

func (s *CartService) ReleaseItems(sessionID string, itemIDs []string) int {
	return s.tracker.ReleaseItems(sessionID, itemIDs)
}

func (s *CartService) SessionItems(sessionID string) []reservation.Reservation {
	return s.tracker.SessionItems(sessionID)
}

func (s *CartService) Stats() reservation.Stats {
	return s.tracker.Stats()
}

// AvailableStock: остаток позиции за вычетом чужих резервов. nil для безлимитных.
func (s *CartService) AvailableStock(ctx context.Context, itemID string) (*int32, error) {
	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if it == nil {
		return nil, ErrItemNotFound
	}
	if !it.Tracked() {
		return nil, nil
	}
	return s.tracker.StockWithReservations(itemID, it.Inventory), nil
}

// DemandSnapshot собирает сигналы по позиции и считает уровень спроса.
// Только для UX: на корректность остатков не влияет.
func (s *CartService) DemandSnapshot(ctx context.Context, itemID string) (demand.Snapshot, error) {
	ctx, span := tracer.Start(ctx, "CartService.DemandSnapshot", trace.WithAttributes(attribute.String("item.id", itemID)))
	defer span.End()

	it, err := s.items.Get(ctx, itemID)
	if err != nil {
		return demand.Snapshot{}, err
	}
	if it == nil {
		return demand.Snapshot{}, ErrItemNotFound
	}

	snap := s.tracker.Snapshot(itemID)
	var actual *int32
	if it.Tracked() {
		actual = it.Inventory
	}

	recent, err := s.orderItems.CountRecentOrders(ctx, itemID, s.now().Add(-recentOrdersWindow))
	if err != nil {
		// сигнал вспомогательный, без него считаем дальше
		s.log.Warn("recent orders signal unavailable", zap.String("item_id", itemID), zap.Error(err))
		recent = 0
	}

	res := demand.Calculate(demand.Input{
		ItemID:          itemID,
		ActiveCartCount: snap.ActiveCartCount,
		TotalReserved:   snap.TotalReserved,
		ActualStock:     actual,
		AvailableStock:  reservation.Remaining(actual, snap.TotalReserved),
		RecentOrders:    recent,
	}, s.thresholds)

	span.SetAttributes(attribute.String("demand.tier", string(res.UrgencyTier)))
	return res, nil
}
