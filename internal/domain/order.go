package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order statuses. Status changes are unconditional overwrites by staff; no
// transition graph is enforced.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCancelled  = "cancelled"
)

// ValidOrderStatus reports whether s is one of the known order statuses
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Order represents a placed order. TotalAmount is computed at creation from
// the order items and is immutable afterwards.
type Order struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	UserID            uuid.UUID       `json:"user_id" db:"user_id"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	Status            string          `json:"status" db:"status"`
	PaymentMethod     string          `json:"payment_method" db:"payment_method"`
	DeliveryMethod    string          `json:"delivery_method" db:"delivery_method"`
	DeliveryAddress   string          `json:"delivery_address" db:"delivery_address"`
	DeliveryPhone     string          `json:"delivery_phone" db:"delivery_phone"`
	Notes             string          `json:"notes,omitempty" db:"notes"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty" db:"estimated_delivery"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
}

// OrderItem is an immutable snapshot of one cart line at the moment the order
// was placed. UnitPrice is the product price at order time and is never
// recomputed when the product price changes later.
type OrderItem struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrderID        uuid.UUID       `json:"order_id" db:"order_id"`
	ProductID      uuid.UUID       `json:"product_id" db:"product_id"`
	Quantity       int             `json:"quantity" db:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price" db:"unit_price"`
	PrescriptionID *uuid.UUID      `json:"prescription_id,omitempty" db:"prescription_id"`
}
