package dto

import "checkout-service/internal/models"

type OrderItemRequest struct {
	MenuItemID    string `json:"menu_item_id" binding:"required,max=64"`
	Quantity      int32  `json:"quantity" binding:"required,gt=0"`
	PriceCents    int64  `json:"price_cents" binding:"gte=0"`
	SubtotalCents int64  `json:"subtotal_cents" binding:"gte=0"`
}

type CustomerRequest struct {
	Name  string `json:"name" binding:"required,max=255"`
	Email string `json:"email" binding:"omitempty,email"`
	Phone string `json:"phone" binding:"omitempty,max=64"`
}

type CreateOrderRequest struct {
	SessionID        string             `json:"session_id" binding:"omitempty,max=128"`
	Customer         CustomerRequest    `json:"customer" binding:"required"`
	Items            []OrderItemRequest `json:"items" binding:"required,min=1,dive"`
	Notes            string             `json:"notes"`
	SubtotalCents    int64              `json:"subtotal_cents" binding:"gte=0"`
	TaxCents         int64              `json:"tax_cents" binding:"gte=0"`
	DeliveryFeeCents int64              `json:"delivery_fee_cents" binding:"gte=0"`
	DiscountCents    int64              `json:"discount_cents" binding:"gte=0"`
	TotalCents       int64              `json:"total_cents" binding:"gte=0"`
}

type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"max=1024"`
}

type ListOrdersQuery struct {
	SessionID string `form:"session_id" binding:"omitempty,max=128"`
	Status    string `form:"status" binding:"omitempty,oneof=PENDING CONFIRMED CANCELLED"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

type OrderListResponse struct {
	Orders []models.Order `json:"orders"`
	Total  int64          `json:"total"`
}
