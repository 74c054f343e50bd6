package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"checkout-service/internal/database"
	"checkout-service/internal/models"
	"checkout-service/internal/repository"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("checkout-service/internal/service")

type OrderServiceOptions struct {
	Events   EventBus
	Holds    HoldReleaser
	Observer CommitObserver
	// CommitTimeout ограничивает транзакцию, если у ctx нет своего дедлайна.
	CommitTimeout time.Duration
}

type orderService struct {
	repo     *repository.Repository
	guard    *IdempotencyGuard
	events   EventBus
	holds    HoldReleaser
	observer CommitObserver
	log      *zap.Logger

	commitTimeout time.Duration
	rowLocks      bool
	now           func() time.Time
}

func NewOrderService(repo *repository.Repository, guard *IdempotencyGuard, log *zap.Logger, opt OrderServiceOptions) OrderService {
	if guard == nil {
		guard = NewIdempotencyGuard(repo.Idempotency, nil, 0, log)
	}
	return &orderService{
		repo:          repo,
		guard:         guard,
		events:        opt.Events,
		holds:         opt.Holds,
		observer:      opt.Observer,
		log:           log,
		commitTimeout: opt.CommitTimeout,
		rowLocks:      database.SupportsRowLocks(repo.DB),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *orderService) CreateOrderAtomic(ctx context.Context, draft OrderDraft, idempotencyKey string) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrderAtomic", trace.WithAttributes(
		attribute.Int("order.lines", len(draft.Items)),
		attribute.Bool("order.idempotency_key", idempotencyKey != ""),
	))
	defer span.End()

	started := time.Now()
	order, outcome, err := s.createOrder(ctx, draft, idempotencyKey)
	if s.observer != nil {
		s.observer.ObserveCommit(outcome, time.Since(started))
	}
	span.SetAttributes(attribute.String("order.outcome", outcome))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		s.log.Warn("order commit rejected", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.String("order.id", order.ID))
	s.log.Info("order committed",
		zap.String("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.String("outcome", outcome))
	return order, nil
}

func (s *orderService) createOrder(ctx context.Context, draft OrderDraft, key string) (*models.Order, string, error) {
	if len(key) > maxIdempotencyKeyLen {
		return nil, OutcomeInvalid, ErrIdempotencyKeyLen
	}
	if err := draft.Validate(); err != nil {
		return nil, OutcomeInvalid, err
	}

	// повтор уже завершённого запроса отвечаем без транзакции
	if key != "" {
		stored, err := s.guard.Check(ctx, key)
		if err != nil {
			return nil, OutcomeFailed, &CommitFailure{Cause: err}
		}
		if stored != nil {
			ord, err := decodeOrder(stored)
			if err != nil {
				return nil, OutcomeFailed, &CommitFailure{Cause: err}
			}
			return ord, OutcomeReplayed, nil
		}
	}

	if s.commitTimeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.commitTimeout)
			defer cancel()
		}
	}

	var (
		order  *models.Order
		result []byte
		replay []byte
	)

	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		if key != "" {
			stored, claimed, err := s.guard.claim(ctx, tx, key)
			if err != nil {
				return err
			}
			if !claimed {
				replay = stored
				return nil
			}
		}

		decremented, err := s.decrementInventory(ctx, tx, &draft)
		if err != nil {
			return err
		}

		o, err := s.insertOrder(ctx, tx, &draft, decremented)
		if err != nil {
			return err
		}
		order = o

		if key != "" {
			result, err = json.Marshal(o)
			if err != nil {
				return err
			}
			if err := tx.Idempotency.SaveResult(ctx, key, result); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, outcomeOf(err), wrapCommitErr(err)
	}

	if replay != nil {
		ord, err := decodeOrder(replay)
		if err != nil {
			return nil, OutcomeFailed, &CommitFailure{Cause: err}
		}
		s.guard.remember(ctx, key, replay)
		return ord, OutcomeReplayed, nil
	}

	if key != "" {
		s.guard.remember(ctx, key, result)
	}
	s.afterCommit(ctx, order)
	return order, OutcomeCommitted, nil
}

// decrementInventory проверяет и списывает остатки отслеживаемых позиций.
// Либо проходят все позиции, либо транзакция откатывается целиком.
func (s *orderService) decrementInventory(ctx context.Context, tx *repository.Repository, draft *OrderDraft) (map[string]bool, error) {
	qty, ids := draft.requested()

	items, err := tx.Items.BatchGet(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.MenuItem, len(items))
	for _, it := range items {
		byID[it.ID] = it
	}

	tracked := make([]string, 0, len(ids))
	for _, id := range ids {
		it, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%s: %w", id, ErrUnknownItem)
		}
		if it.Tracked() {
			tracked = append(tracked, id)
		}
	}
	sort.Strings(tracked)

	if len(tracked) > 0 && s.rowLocks {
		locked, err := tx.Items.LockForUpdate(ctx, tracked)
		if err != nil {
			return nil, err
		}
		for _, it := range locked {
			byID[it.ID] = it
		}
	}

	decremented := make(map[string]bool, len(tracked))
	for _, id := range tracked {
		it := byID[id]
		// позицию могли снять с учёта, пока ждали блокировку
		if !it.Tracked() {
			continue
		}
		if int64(*it.Inventory) < qty[id] {
			return nil, &InsufficientInventoryError{ItemID: id, Requested: qty[id], Available: *it.Inventory}
		}
		decremented[id] = true
	}

	for _, id := range tracked {
		if !decremented[id] {
			continue
		}
		ok, err := tx.Items.TryDecrement(ctx, id, int32(qty[id]))
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, s.insufficient(ctx, tx, id, qty[id])
		}
	}
	return decremented, nil
}

func (s *orderService) insufficient(ctx context.Context, tx *repository.Repository, id string, requested int64) error {
	e := &InsufficientInventoryError{ItemID: id, Requested: requested}
	cur, err := tx.Items.Get(ctx, id)
	if err != nil {
		return err
	}
	if cur != nil && cur.Inventory != nil {
		e.Available = *cur.Inventory
	}
	return e
}

func (s *orderService) insertOrder(ctx context.Context, tx *repository.Repository, draft *OrderDraft, decremented map[string]bool) (*models.Order, error) {
	now := s.now()
	id := uuid.NewString()

	order := &models.Order{
		ID:               id,
		OrderNumber:      newOrderNumber(now, id),
		SessionID:        draft.SessionID,
		CustomerName:     strings.TrimSpace(draft.Customer.Name),
		CustomerEmail:    draft.Customer.Email,
		CustomerPhone:    draft.Customer.Phone,
		Notes:            draft.Notes,
		Status:           models.OrderStatusConfirmed,
		SubtotalCents:    draft.SubtotalCents,
		TaxCents:         draft.TaxCents,
		DeliveryFeeCents: draft.DeliveryFeeCents,
		DiscountCents:    draft.DiscountCents,
		TotalCents:       draft.TotalCents,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := tx.Orders.Create(ctx, order); err != nil {
		return nil, err
	}

	rows := make([]models.OrderItem, 0, len(draft.Items))
	for _, it := range draft.Items {
		rows = append(rows, models.OrderItem{
			ID:                   uuid.NewString(),
			OrderID:              id,
			MenuItemID:           it.MenuItemID,
			Quantity:             it.Quantity,
			PriceCents:           it.PriceCents,
			SubtotalCents:        it.SubtotalCents,
			InventoryDecremented: decremented[it.MenuItemID],
			CreatedAt:            now,
		})
	}
	if err := tx.OrderItems.BulkCreate(ctx, rows); err != nil {
		return nil, err
	}

	order.Items = rows
	return order, nil
}

func (s *orderService) afterCommit(ctx context.Context, order *models.Order) {
	if s.holds != nil && order.SessionID != "" {
		ids := make([]string, 0, len(order.Items))
		for _, it := range order.Items {
			ids = append(ids, it.MenuItemID)
		}
		s.holds.ReleaseItems(order.SessionID, ids)
	}

	if s.events == nil {
		return
	}
	if err := s.events.PublishOrderCreated(ctx, OrderCreatedEvent{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		SessionID:   order.SessionID,
		Items:       itemEvents(order.Items),
		TotalCents:  order.TotalCents,
		CreatedAt:   order.CreatedAt,
	}); err != nil {
		s.log.Error("failed to publish order.created", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func (s *orderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	ord, err := s.repo.Orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ord == nil {
		return nil, ErrOrderNotFound
	}
	return ord, nil
}

func (s *orderService) ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error) {
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Offset < 0 {
		f.Offset = 0
	}

	ordersPtr, total, err := s.repo.Orders.List(ctx, repository.OrderListFilter{
		SessionID: f.SessionID,
		Status:    f.Status,
		Limit:     f.Limit,
		Offset:    f.Offset,
	})
	if err != nil {
		return nil, 0, err
	}

	orders := make([]models.Order, len(ordersPtr))
	for i, o := range ordersPtr {
		orders[i] = *o
	}
	return orders, total, nil
}

// CancelOrder: компенсация: статус CANCELLED и возврат списанного остатка в одной транзакции.
func (s *orderService) CancelOrder(ctx context.Context, id string, reason *string) (*models.Order, error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder", trace.WithAttributes(attribute.String("order.id", id)))
	defer span.End()

	var cancelled *models.Order
	err := s.repo.WithTx(ctx, func(tx *repository.Repository) error {
		ord, err := tx.Orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if ord == nil {
			return ErrOrderNotFound
		}

		// условный UPDATE: из двух параллельных отмен пройдёт одна
		ok, err := tx.Orders.MarkCancelled(ctx, id, reason)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyCancelled
		}

		restore := make(map[string]int64)
		for _, it := range ord.Items {
			if it.InventoryDecremented {
				restore[it.MenuItemID] += int64(it.Quantity)
			}
		}
		ids := make([]string, 0, len(restore))
		for itemID := range restore {
			ids = append(ids, itemID)
		}
		sort.Strings(ids)

		if len(ids) > 0 && s.rowLocks {
			if _, err := tx.Items.LockForUpdate(ctx, ids); err != nil {
				return err
			}
		}
		for _, itemID := range ids {
			if _, err := tx.Items.Restore(ctx, itemID, int32(restore[itemID])); err != nil {
				return err
			}
		}

		ord.Status = models.OrderStatusCancelled
		ord.CancelReason = reason
		cancelled = ord
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		if errors.Is(err, ErrOrderNotFound) || errors.Is(err, ErrAlreadyCancelled) {
			return nil, err
		}
		return nil, &CommitFailure{Cause: err}
	}

	s.log.Info("order cancelled", zap.String("order_id", id))

	if s.events != nil {
		ev := OrderCancelledEvent{
			OrderID:     cancelled.ID,
			OrderNumber: cancelled.OrderNumber,
			Items:       itemEvents(cancelled.Items),
			CancelledAt: s.now(),
		}
		if reason != nil {
			ev.Reason = *reason
		}
		if err := s.events.PublishOrderCancelled(ctx, ev); err != nil {
			s.log.Error("failed to publish order.cancelled", zap.String("order_id", id), zap.Error(err))
		}
	}
	return cancelled, nil
}

func itemEvents(items []models.OrderItem) []OrderItemEvent {
	out := make([]OrderItemEvent, 0, len(items))
	for _, it := range items {
		out = append(out, OrderItemEvent{
			MenuItemID:    it.MenuItemID,
			Quantity:      it.Quantity,
			PriceCents:    it.PriceCents,
			SubtotalCents: it.SubtotalCents,
		})
	}
	return out
}

// ORD-20260118-1A2B3C4D
func newOrderNumber(now time.Time, id string) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id, "-", ""))
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

func decodeOrder(raw []byte) (*models.Order, error) {
	var ord models.Order
	if err := json.Unmarshal(raw, &ord); err != nil {
		return nil, fmt.Errorf("decode stored order: %w", err)
	}
	return &ord, nil
}

func outcomeOf(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientInventory):
		return OutcomeInsufficient
	case IsValidation(err):
		return OutcomeInvalid
	default:
		return OutcomeFailed
	}
}

func wrapCommitErr(err error) error {
	if errors.Is(err, ErrInsufficientInventory) || IsValidation(err) || errors.Is(err, ErrIdempotencyInFlight) {
		return err
	}
	return &CommitFailure{Cause: err}
}
