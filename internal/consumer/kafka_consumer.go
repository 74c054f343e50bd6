package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"checkout-service/internal/service"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// OrderEventConsumer снимает резервы сессии, когда заказ оформлен на любом инстансе.
// У каждого инстанса своя consumer group: трекер у каждого свой.
type OrderEventConsumer struct {
	reader messageReader
	holds  service.HoldReleaser
	log    *zap.Logger
}

func NewOrderEventConsumer(brokers []string, groupID, topic string, holds service.HoldReleaser, log *zap.Logger) *OrderEventConsumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:           brokers,
		GroupID:           groupID,
		Topic:             topic,
		MinBytes:          1,
		MaxBytes:          10e6,
		MaxWait:           500 * time.Millisecond,
		CommitInterval:    time.Second,
		HeartbeatInterval: 3 * time.Second,
		SessionTimeout:    30 * time.Second,
		StartOffset:       kafka.LastOffset,
	})
	return &OrderEventConsumer{reader: r, holds: holds, log: log}
}

func (c *OrderEventConsumer) Run(ctx context.Context) error {
	c.log.Info("kafka consumer started")
	for {
		m, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Error("read message", zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}
		c.handle(m)
	}
}

func (c *OrderEventConsumer) handle(m kafka.Message) {
	var ev service.OrderCreatedEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.log.Error("unmarshal order event", zap.ByteString("value", m.Value), zap.Error(err))
		return
	}
	if ev.SessionID == "" || len(ev.Items) == 0 {
		return
	}

	ids := make([]string, 0, len(ev.Items))
	for _, it := range ev.Items {
		ids = append(ids, it.MenuItemID)
	}
	if n := c.holds.ReleaseItems(ev.SessionID, ids); n > 0 {
		c.log.Info("holds released for committed order",
			zap.String("order_id", ev.OrderID),
			zap.String("session_id", ev.SessionID),
			zap.Int("count", n))
	}
}

func (c *OrderEventConsumer) Close() error { return c.reader.Close() }
