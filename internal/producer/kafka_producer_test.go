package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"checkout-service/internal/service"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func newTestProducer(w *fakeWriter) *OrderEventProducer {
	return &OrderEventProducer{
		writer: w,
		topics: Topics{OrderCreated: "orders.created", OrderCancelled: "orders.cancelled"},
		log:    zap.NewNop(),
	}
}

func TestOrderEventProducer_PublishOrderCreated(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	ev := service.OrderCreatedEvent{
		OrderID:     "o-1",
		OrderNumber: "ORD-20260101-ABCDEF12",
		SessionID:   "s-1",
		Items:       []service.OrderItemEvent{{MenuItemID: "burger", Quantity: 2}},
		TotalCents:  500,
		CreatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.PublishOrderCreated(context.Background(), ev))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	require.Equal(t, "orders.created", msg.Topic)
	require.Equal(t, "o-1", string(msg.Key))

	var got service.OrderCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	require.Equal(t, ev, got)
}

func TestOrderEventProducer_FailureHook(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	var failed []string
	p.OnPublishFailed(func(event string) { failed = append(failed, event) })

	err := p.PublishOrderCancelled(context.Background(), service.OrderCancelledEvent{OrderID: "o-2"})
	require.Error(t, err)
	require.Equal(t, []string{"order.cancelled"}, failed)
}
