package producer

import (
	"context"
	"encoding/json"
	"time"

	"checkout-service/internal/service"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Topics struct {
	OrderCreated   string
	OrderCancelled string
}

// OrderEventProducer публикует события заказов, реализует service.EventBus.
type OrderEventProducer struct {
	writer   messageWriter
	topics   Topics
	log      *zap.Logger
	onFailed func(event string)
}

func NewOrderEventProducer(brokers []string, topics Topics, log *zap.Logger) *OrderEventProducer {
	return &OrderEventProducer{
		// топик задаётся в каждом сообщении
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.LeastBytes{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
		},
		topics: topics,
		log:    log,
	}
}

// OnPublishFailed: хук для метрик.
func (p *OrderEventProducer) OnPublishFailed(fn func(event string)) {
	p.onFailed = fn
}

func (p *OrderEventProducer) PublishOrderCreated(ctx context.Context, e service.OrderCreatedEvent) error {
	return p.publish(ctx, p.topics.OrderCreated, "order.created", e.OrderID, e)
}

func (p *OrderEventProducer) PublishOrderCancelled(ctx context.Context, e service.OrderCancelledEvent) error {
	return p.publish(ctx, p.topics.OrderCancelled, "order.cancelled", e.OrderID, e)
}

func (p *OrderEventProducer) publish(ctx context.Context, topic, event, key string, payload any) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte(event)},
		},
	})
	if err != nil {
		if p.onFailed != nil {
			p.onFailed(event)
		}
		return err
	}
	p.log.Debug("event published", zap.String("event", event), zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
