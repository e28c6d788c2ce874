package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"apteka/internal/domain"

	"github.com/shopspring/decimal"
)

// ReportRepository exposes the read-only aggregation queries behind the
// reporting endpoints. Nothing here mutates state.
type ReportRepository interface {
	SalesTotals(ctx context.Context, start, end time.Time) (revenue decimal.Decimal, orders, productsSold int, err error)
	TopProducts(ctx context.Context, start, end time.Time, limit int) ([]domain.TopProduct, error)
	CountProducts(ctx context.Context) (int, error)
	ProductsWithStockBetween(ctx context.Context, min, max int) ([]*domain.Product, error)
	CountCustomers(ctx context.Context) (int, error)
	CountCustomersCreatedSince(ctx context.Context, since time.Time) (int, error)
	CountCustomersWithOrdersSince(ctx context.Context, since time.Time) (int, error)
}

type reportRepository struct {
	db *sql.DB
}

// NewReportRepository creates a new instance of ReportRepository
func NewReportRepository(db *sql.DB) ReportRepository {
	return &reportRepository{db: db}
}

// SalesTotals returns total revenue, order count and units sold for orders
// created inside [start, end)
func (r *reportRepository) SalesTotals(ctx context.Context, start, end time.Time) (decimal.Decimal, int, int, error) {
	var revenue decimal.Decimal
	var orders int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders
		WHERE created_at >= $1 AND created_at < $2
	`, start, end).Scan(&revenue, &orders)
	if err != nil {
		return decimal.Zero, 0, 0, fmt.Errorf("failed to aggregate sales totals: %w", err)
	}

	var productsSold int
	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(oi.quantity), 0)
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		WHERE o.created_at >= $1 AND o.created_at < $2
	`, start, end).Scan(&productsSold)
	if err != nil {
		return decimal.Zero, 0, 0, fmt.Errorf("failed to aggregate products sold: %w", err)
	}

	return revenue, orders, productsSold, nil
}

// TopProducts returns the best-selling products by units inside [start, end)
func (r *reportRepository) TopProducts(ctx context.Context, start, end time.Time, limit int) ([]domain.TopProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT oi.product_id, p.name, SUM(oi.quantity) AS units, SUM(oi.quantity * oi.unit_price) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE o.created_at >= $1 AND o.created_at < $2
		GROUP BY oi.product_id, p.name
		ORDER BY units DESC
		LIMIT $3
	`, start, end, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}
	defer rows.Close()

	top := []domain.TopProduct{}
	for rows.Next() {
		var tp domain.TopProduct
		if err := rows.Scan(&tp.ProductID, &tp.Name, &tp.UnitsSold, &tp.Revenue); err != nil {
			return nil, fmt.Errorf("failed to scan top product: %w", err)
		}
		top = append(top, tp)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating top products: %w", err)
	}

	return top, nil
}

// CountProducts returns the number of products in the catalog
func (r *reportRepository) CountProducts(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return count, nil
}

// ProductsWithStockBetween returns products whose stock lies in [min, max]
func (r *reportRepository) ProductsWithStockBetween(ctx context.Context, min, max int) ([]*domain.Product, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM products
		WHERE stock >= $1 AND stock <= $2
		ORDER BY stock ASC, name ASC
	`, productColumns)

	rows, err := r.db.QueryContext(ctx, query, min, max)
	if err != nil {
		return nil, fmt.Errorf("failed to query products by stock: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// CountCustomers returns the number of customer accounts
func (r *reportRepository) CountCustomers(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE role = $1
	`, domain.RoleCustomer).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count customers: %w", err)
	}
	return count, nil
}

// CountCustomersCreatedSince returns the number of customer accounts created
// at or after since
func (r *reportRepository) CountCustomersCreatedSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE role = $1 AND created_at >= $2
	`, domain.RoleCustomer, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count new customers: %w", err)
	}
	return count, nil
}

// CountCustomersWithOrdersSince returns the number of distinct customers who
// placed at least one order at or after since
func (r *reportRepository) CountCustomersWithOrdersSince(ctx context.Context, since time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT user_id) FROM orders WHERE created_at >= $1
	`, since).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active customers: %w", err)
	}
	return count, nil
}
