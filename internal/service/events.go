package service

import (
	"context"
	"time"
)

type OrderItemEvent struct {
	MenuItemID    string `json:"menu_item_id"`
	Quantity      int32  `json:"quantity"`
	PriceCents    int64  `json:"price_cents"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

type OrderCreatedEvent struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	SessionID   string           `json:"session_id,omitempty"`
	Items       []OrderItemEvent `json:"items"`
	TotalCents  int64            `json:"total_cents"`
	CreatedAt   time.Time        `json:"created_at"`
}

type OrderCancelledEvent struct {
	OrderID     string           `json:"order_id"`
	OrderNumber string           `json:"order_number"`
	Items       []OrderItemEvent `json:"items"`
	Reason      string           `json:"reason,omitempty"`
	CancelledAt time.Time        `json:"cancelled_at"`
}

type EventBus interface {
	PublishOrderCreated(ctx context.Context, e OrderCreatedEvent) error
	PublishOrderCancelled(ctx context.Context, e OrderCancelledEvent) error
}
