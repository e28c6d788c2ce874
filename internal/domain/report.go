package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReportPeriod is the half-open date window a sales report covers
type ReportPeriod struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// TopProduct is one entry of the best-sellers list in a sales report
type TopProduct struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int             `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

// SalesReport aggregates orders over a period
type SalesReport struct {
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TotalOrders       int             `json:"total_orders"`
	TotalProductsSold int             `json:"total_products_sold"`
	Period            ReportPeriod    `json:"period"`
	TopProducts       []TopProduct    `json:"top_products"`
}

// InventoryReport summarizes current stock levels
type InventoryReport struct {
	TotalProducts int        `json:"total_products"`
	LowStock      []*Product `json:"low_stock"`
	OutOfStock    []*Product `json:"out_of_stock"`
}

// CustomerReport summarizes the customer base. RetentionRate is the share of
// customers active in the trailing three months, as a percentage rounded to
// two decimals.
type CustomerReport struct {
	TotalCustomers    int     `json:"total_customers"`
	NewThisMonth      int     `json:"new_this_month"`
	ActiveLast3Months int     `json:"active_in_last_3_months"`
	RetentionRate     float64 `json:"retention_rate"`
}
