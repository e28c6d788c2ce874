package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product represents a medicine in the catalog
type Product struct {
	ID                   uuid.UUID       `json:"id" db:"id"`
	Name                 string          `json:"name" db:"name"`
	Description          string          `json:"description" db:"description"`
	Price                decimal.Decimal `json:"price" db:"price"`
	CategoryID           uuid.UUID       `json:"category_id" db:"category_id"`
	Manufacturer         string          `json:"manufacturer" db:"manufacturer"`
	ImageURL             string          `json:"image_url" db:"image_url"`
	Stock                int             `json:"stock" db:"stock"`
	RequiresPrescription bool            `json:"requires_prescription" db:"requires_prescription"`
	IsActive             bool            `json:"is_active" db:"is_active"`
	CreatedAt            time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at" db:"updated_at"`
}

// Category represents a product category. Categories form a tree through
// ParentID; the hierarchy is an adjacency model and cycles are not checked.
type Category struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	Name                   string     `json:"name" db:"name"`
	Description            string     `json:"description" db:"description"`
	ParentID               *uuid.UUID `json:"parent_id,omitempty" db:"parent_id"`
	IsPrescriptionRequired bool       `json:"is_prescription_required" db:"is_prescription_required"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
}
