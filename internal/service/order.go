package service

import (
	"context"
	"fmt"
	"math"
	"strings"

	"checkout-service/internal/models"
)

const maxIdempotencyKeyLen = 255

type DraftItem struct {
	MenuItemID    string `json:"menu_item_id"`
	Quantity      int32  `json:"quantity"`
	PriceCents    int64  `json:"price_cents"`
	SubtotalCents int64  `json:"subtotal_cents"`
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// OrderDraft: то, что клиент отправляет при оформлении.
type OrderDraft struct {
	SessionID        string      `json:"session_id,omitempty"`
	Customer         Customer    `json:"customer"`
	Items            []DraftItem `json:"items"`
	Notes            string      `json:"notes,omitempty"`
	SubtotalCents    int64       `json:"subtotal_cents"`
	TaxCents         int64       `json:"tax_cents"`
	DeliveryFeeCents int64       `json:"delivery_fee_cents"`
	DiscountCents    int64       `json:"discount_cents"`
	TotalCents       int64       `json:"total_cents"`
}

type ListFilter struct {
	SessionID string
	Status    *models.OrderStatus
	Limit     int
	Offset    int
}

type OrderService interface {
	CreateOrderAtomic(ctx context.Context, draft OrderDraft, idempotencyKey string) (*models.Order, error)
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f ListFilter) ([]models.Order, int64, error)
	CancelOrder(ctx context.Context, id string, reason *string) (*models.Order, error)
}

// Validate проверяет черновик целиком до открытия транзакции.
func (d *OrderDraft) Validate() error {
	if strings.TrimSpace(d.Customer.Name) == "" {
		return ErrCustomerRequired
	}
	if len(d.Items) == 0 {
		return ErrEmptyItems
	}

	var subtotal int64
	for i, it := range d.Items {
		if strings.TrimSpace(it.MenuItemID) == "" {
			return fmt.Errorf("line %d: %w", i, ErrUnknownItem)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("line %d (%s): %w", i, it.MenuItemID, ErrQuantityInvalid)
		}
		// price*qty не должен переполнять int64
		if it.PriceCents < 0 || it.PriceCents > math.MaxInt64/int64(it.Quantity) {
			return fmt.Errorf("line %d (%s): %w", i, it.MenuItemID, ErrPriceInvalid)
		}
		if it.SubtotalCents != it.PriceCents*int64(it.Quantity) {
			return fmt.Errorf("line %d (%s): %w", i, it.MenuItemID, ErrSubtotalMismatch)
		}
		if subtotal > math.MaxInt64-it.SubtotalCents {
			return fmt.Errorf("lines sum overflows: %w", ErrTotalsMismatch)
		}
		subtotal += it.SubtotalCents
	}

	if d.TaxCents < 0 || d.DeliveryFeeCents < 0 || d.DiscountCents < 0 {
		return fmt.Errorf("negative amount: %w", ErrTotalsMismatch)
	}
	if d.SubtotalCents != subtotal {
		return fmt.Errorf("subtotal %d, lines sum %d: %w", d.SubtotalCents, subtotal, ErrTotalsMismatch)
	}
	if subtotal > math.MaxInt64-d.TaxCents || subtotal+d.TaxCents > math.MaxInt64-d.DeliveryFeeCents {
		return fmt.Errorf("total overflows: %w", ErrTotalsMismatch)
	}
	if want := subtotal + d.TaxCents + d.DeliveryFeeCents - d.DiscountCents; d.TotalCents != want || want < 0 {
		return fmt.Errorf("total %d, expected %d: %w", d.TotalCents, want, ErrTotalsMismatch)
	}
	return nil
}

// requested суммирует количество по позициям: одна позиция может встречаться в нескольких строках.
func (d *OrderDraft) requested() (map[string]int64, []string) {
	qty := make(map[string]int64, len(d.Items))
	ids := make([]string, 0, len(d.Items))
	for _, it := range d.Items {
		if _, seen := qty[it.MenuItemID]; !seen {
			ids = append(ids, it.MenuItemID)
		}
		qty[it.MenuItemID] += int64(it.Quantity)
	}
	return qty, ids
}
