package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MenuItem: складская запись позиции меню. Inventory == nil означает безлимитный товар.
type MenuItem struct {
	ID               string `gorm:"type:varchar(64);primaryKey" json:"id"`
	Name             string `gorm:"type:varchar(255);not null" json:"name"`
	PriceCents       int64  `gorm:"not null;default:0" json:"price_cents"`
	InventoryEnabled bool   `gorm:"not null;default:false" json:"inventory_enabled"`
	Inventory        *int32 `json:"inventory"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (MenuItem) TableName() string { return "menu_items" }

// Tracked: участвует ли позиция в проверке и списании остатков.
func (m *MenuItem) Tracked() bool {
	return m.InventoryEnabled && m.Inventory != nil
}

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type Order struct {
	ID            string      `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderNumber   string      `gorm:"type:varchar(32);not null;uniqueIndex:ux_orders_number" json:"order_number"`
	SessionID     string      `gorm:"type:varchar(128);index" json:"session_id,omitempty"`
	CustomerName  string      `gorm:"type:varchar(255);not null" json:"customer_name"`
	CustomerEmail string      `gorm:"type:varchar(255)" json:"customer_email,omitempty"`
	CustomerPhone string      `gorm:"type:varchar(64)" json:"customer_phone,omitempty"`
	Notes         string      `gorm:"type:text" json:"notes,omitempty"`
	Status        OrderStatus `gorm:"type:varchar(16);not null;default:'PENDING';index" json:"status"`
	CancelReason  *string     `gorm:"type:text" json:"cancel_reason,omitempty"`

	SubtotalCents    int64 `gorm:"not null" json:"subtotal_cents"`
	TaxCents         int64 `gorm:"not null;default:0" json:"tax_cents"`
	DeliveryFeeCents int64 `gorm:"not null;default:0" json:"delivery_fee_cents"`
	DiscountCents    int64 `gorm:"not null;default:0" json:"discount_cents"`
	TotalCents       int64 `gorm:"not null" json:"total_cents"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	return nil
}

type OrderItem struct {
	ID            string `gorm:"type:varchar(36);primaryKey" json:"id"`
	OrderID       string `gorm:"type:varchar(36);not null;index" json:"order_id"`
	MenuItemID    string `gorm:"type:varchar(64);not null;index" json:"menu_item_id"`
	Quantity      int32  `gorm:"not null" json:"quantity"`
	PriceCents    int64  `gorm:"not null" json:"price_cents"`
	SubtotalCents int64  `gorm:"not null" json:"subtotal_cents"`
	// InventoryDecremented: строка списала остаток, при отмене его надо вернуть.
	InventoryDecremented bool `gorm:"not null;default:false" json:"inventory_decremented"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// IdempotencyRecord хранит первый результат для ключа. Result пустой,
// пока транзакция-владелец не завершилась.
type IdempotencyRecord struct {
	Key      string `gorm:"column:idempotency_key;type:varchar(255);primaryKey"`
	Result   []byte
	StoredAt time.Time `gorm:"not null;index"`
}

func (IdempotencyRecord) TableName() string { return "idempotency_records" }
