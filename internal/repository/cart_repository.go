package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apteka/internal/domain"

	"github.com/google/uuid"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
)

// CartRepository defines the interface for cart data access. All lookups are
// scoped to the owning user; a row belonging to another user is reported as
// not found.
type CartRepository interface {
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartLine, error)
	FindLine(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartLine, error)
	FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error)
	Create(ctx context.Context, item *domain.CartItem) error
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartRepository struct {
	db *sql.DB
}

// NewCartRepository creates a new instance of CartRepository
func NewCartRepository(db *sql.DB) CartRepository {
	return &cartRepository{db: db}
}

// ListByUser retrieves the user's cart items joined with current product data
func (r *cartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartLine, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.prescription_id, ci.created_at, ci.updated_at,
		       p.name, p.price, p.stock, p.requires_prescription
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}
	defer rows.Close()

	lines := []*domain.CartLine{}
	for rows.Next() {
		line := &domain.CartLine{}
		err := rows.Scan(
			&line.ID,
			&line.UserID,
			&line.ProductID,
			&line.Quantity,
			&line.PrescriptionID,
			&line.CreatedAt,
			&line.UpdatedAt,
			&line.ProductName,
			&line.Price,
			&line.Stock,
			&line.RequiresPrescription,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan cart line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cart lines: %w", err)
	}

	return lines, nil
}

// FindLine retrieves one cart item owned by the user, joined with current
// product data
func (r *cartRepository) FindLine(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartLine, error) {
	query := `
		SELECT ci.id, ci.user_id, ci.product_id, ci.quantity, ci.prescription_id, ci.created_at, ci.updated_at,
		       p.name, p.price, p.stock, p.requires_prescription
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.id = $2 AND ci.user_id = $1
	`

	line := &domain.CartLine{}
	err := r.db.QueryRowContext(ctx, query, userID, itemID).Scan(
		&line.ID,
		&line.UserID,
		&line.ProductID,
		&line.Quantity,
		&line.PrescriptionID,
		&line.CreatedAt,
		&line.UpdatedAt,
		&line.ProductName,
		&line.Price,
		&line.Stock,
		&line.RequiresPrescription,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart line: %w", err)
	}

	return line, nil
}

// FindByUserAndProduct retrieves the single cart item for a (user, product)
// pair, if one exists
func (r *cartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error) {
	query := `
		SELECT id, user_id, product_id, quantity, prescription_id, created_at, updated_at
		FROM cart_items
		WHERE user_id = $1 AND product_id = $2
	`

	item := &domain.CartItem{}
	err := r.db.QueryRowContext(ctx, query, userID, productID).Scan(
		&item.ID,
		&item.UserID,
		&item.ProductID,
		&item.Quantity,
		&item.PrescriptionID,
		&item.CreatedAt,
		&item.UpdatedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	return item, nil
}

// Create inserts a new cart item
func (r *cartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	query := `
		INSERT INTO cart_items (id, user_id, product_id, quantity, prescription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.UserID,
		item.ProductID,
		item.Quantity,
		item.PrescriptionID,
		item.CreatedAt,
		item.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create cart item: %w", err)
	}

	return nil
}

// UpdateQuantity sets the quantity on a cart item owned by the user
func (r *cartRepository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	query := `
		UPDATE cart_items
		SET quantity = $3, updated_at = NOW()
		WHERE id = $2 AND user_id = $1
	`

	result, err := r.db.ExecContext(ctx, query, userID, itemID, quantity)
	if err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// Remove deletes a cart item owned by the user
func (r *cartRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE id = $2 AND user_id = $1`

	result, err := r.db.ExecContext(ctx, query, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

// Clear deletes all cart items for a user
func (r *cartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`

	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}

	return nil
}
