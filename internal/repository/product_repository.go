package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"apteka/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductFilter holds the optional search criteria for products. All set
// fields are AND-combined.
type ProductFilter struct {
	Query                *string
	CategoryID           *uuid.UUID
	RequiresPrescription *bool
	MinPrice             *decimal.Decimal
	MaxPrice             *decimal.Decimal
	Manufacturer         *string
	Limit                int
	Offset               int
}

// ProductUpdate describes a partial product update. Only non-nil fields are
// applied; absent fields keep their stored values.
type ProductUpdate struct {
	Name                 *string
	Description          *string
	Price                *decimal.Decimal
	CategoryID           *uuid.UUID
	Manufacturer         *string
	ImageURL             *string
	RequiresPrescription *bool
	IsActive             *bool
}

// ProductRepository defines the interface for product data access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	Update(ctx context.Context, id uuid.UUID, update *ProductUpdate) (*domain.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	List(ctx context.Context) ([]*domain.Product, error)
	Search(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error)
}

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepository{db: db}
}

const productColumns = `id, name, description, price, category_id, manufacturer, image_url, stock, requires_prescription, is_active, created_at, updated_at`

func scanProduct(scan func(dest ...interface{}) error) (*domain.Product, error) {
	product := &domain.Product{}
	err := scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Price,
		&product.CategoryID,
		&product.Manufacturer,
		&product.ImageURL,
		&product.Stock,
		&product.RequiresPrescription,
		&product.IsActive,
		&product.CreatedAt,
		&product.UpdatedAt,
	)
	return product, err
}

// Create inserts a new product into the database using parameterized queries
func (r *productRepository) Create(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, name, description, price, category_id, manufacturer, image_url, stock, requires_prescription, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Name,
		product.Description,
		product.Price,
		product.CategoryID,
		product.Manufacturer,
		product.ImageURL,
		product.Stock,
		product.RequiresPrescription,
		product.IsActive,
		product.CreatedAt,
		product.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}

	return nil
}

// Update applies a partial update, setting only the fields present in update,
// and returns the resulting row
func (r *productRepository) Update(ctx context.Context, id uuid.UUID, update *ProductUpdate) (*domain.Product, error) {
	setClauses := []string{}
	args := []interface{}{id}
	argIndex := 2

	addSet := func(column string, value interface{}) {
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if update.Name != nil {
		addSet("name", *update.Name)
	}
	if update.Description != nil {
		addSet("description", *update.Description)
	}
	if update.Price != nil {
		addSet("price", *update.Price)
	}
	if update.CategoryID != nil {
		addSet("category_id", *update.CategoryID)
	}
	if update.Manufacturer != nil {
		addSet("manufacturer", *update.Manufacturer)
	}
	if update.ImageURL != nil {
		addSet("image_url", *update.ImageURL)
	}
	if update.RequiresPrescription != nil {
		addSet("requires_prescription", *update.RequiresPrescription)
	}
	if update.IsActive != nil {
		addSet("is_active", *update.IsActive)
	}

	if len(setClauses) == 0 {
		return r.FindByID(ctx, id)
	}

	query := fmt.Sprintf(`
		UPDATE products
		SET %s, updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, strings.Join(setClauses, ", "), productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, args...).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	return product, nil
}

// UpdateStock sets a product's stock to an absolute value
func (r *productRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	query := `UPDATE products SET stock = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, stock)
	if err != nil {
		return fmt.Errorf("failed to update stock: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

// FindByID retrieves a product by ID using parameterized queries
func (r *productRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products WHERE id = $1`, productColumns)

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}

	return product, nil
}

// List retrieves all products ordered by name
func (r *productRepository) List(ctx context.Context) ([]*domain.Product, error) {
	query := fmt.Sprintf(`SELECT %s FROM products ORDER BY name ASC`, productColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	return collectProducts(rows)
}

// Search retrieves products matching the AND-combination of all set filter
// fields, plus the total count of matches. Count and page share one predicate.
func (r *productRepository) Search(ctx context.Context, filter ProductFilter) ([]*domain.Product, int, error) {
	whereClauses := []string{}
	args := []interface{}{}
	argIndex := 1

	addWhere := func(clause string, value interface{}) {
		whereClauses = append(whereClauses, fmt.Sprintf(clause, argIndex))
		args = append(args, value)
		argIndex++
	}

	if filter.Query != nil && strings.TrimSpace(*filter.Query) != "" {
		addWhere("name ILIKE $%d", "%"+*filter.Query+"%")
	}
	if filter.CategoryID != nil {
		addWhere("category_id = $%d", *filter.CategoryID)
	}
	if filter.RequiresPrescription != nil {
		addWhere("requires_prescription = $%d", *filter.RequiresPrescription)
	}
	if filter.MinPrice != nil {
		addWhere("price >= $%d", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		addWhere("price <= $%d", *filter.MaxPrice)
	}
	if filter.Manufacturer != nil && strings.TrimSpace(*filter.Manufacturer) != "" {
		addWhere("manufacturer ILIKE $%d", "%"+*filter.Manufacturer+"%")
	}

	whereClause := ""
	if len(whereClauses) > 0 {
		whereClause = "WHERE " + strings.Join(whereClauses, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM products %s", whereClause)
	var total int
	err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM products
		%s
		ORDER BY name ASC
		LIMIT $%d OFFSET $%d
	`, productColumns, whereClause, argIndex, argIndex+1)

	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search products: %w", err)
	}
	defer rows.Close()

	products, err := collectProducts(rows)
	if err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

func collectProducts(rows *sql.Rows) ([]*domain.Product, error) {
	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}
