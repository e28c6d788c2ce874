package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItem represents one (user, product) pending selection. At most one row
// exists per pair; adding the same product again increments Quantity.
type CartItem struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	ProductID      uuid.UUID  `json:"product_id" db:"product_id"`
	Quantity       int        `json:"quantity" db:"quantity"`
	PrescriptionID *uuid.UUID `json:"prescription_id,omitempty" db:"prescription_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// CartLine is a cart item joined with the current state of its product, as
// read at call time. Price, Stock and RequiresPrescription are point-in-time
// values, not snapshots.
type CartLine struct {
	CartItem
	ProductName          string          `json:"product_name" db:"product_name"`
	Price                decimal.Decimal `json:"price" db:"price"`
	Stock                int             `json:"stock" db:"stock"`
	RequiresPrescription bool            `json:"requires_prescription" db:"requires_prescription"`
}
