package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"apteka/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPrescriptionRequired = errors.New("product requires a prescription")
	ErrInvalidPrescription  = errors.New("prescription is invalid or not verified")
)

// OrderRepository defines the interface for order data access. CreateFromCart
// is the only multi-entity mutation in the system and runs as a single
// transaction.
type OrderRepository interface {
	CreateFromCart(ctx context.Context, order *domain.Order) ([]*domain.OrderItem, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status string) ([]*domain.Order, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

// checkoutLine is one cart line joined with its product and, when attached,
// its prescription, as read under the product row lock.
type checkoutLine struct {
	itemID               uuid.UUID
	productID            uuid.UUID
	quantity             int
	prescriptionID       *uuid.UUID
	price                decimal.Decimal
	stock                int
	requiresPrescription bool
	prescriptionOwner    *uuid.UUID
	prescriptionStatus   *string
}

// CreateFromCart converts the owner's cart into a persisted order in one
// transaction:
//
//  1. load cart lines joined with current product data, locking the product
//     rows (SELECT ... FOR UPDATE) so concurrent checkouts of the same
//     product serialize here;
//  2. validate prescriptions line by line;
//  3. aggregate requested quantity per product across lines, then validate
//     stock per distinct product;
//  4. compute the total from current prices;
//  5. insert the order and one item per cart line with the price snapshot;
//  6. decrement stock once per distinct product;
//  7. delete the owner's cart lines.
//
// Any failure rolls the whole transaction back; cart, stock and order tables
// are left unchanged.
func (r *orderRepository) CreateFromCart(ctx context.Context, order *domain.Order) ([]*domain.OrderItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	lines, err := loadCheckoutLines(ctx, tx, order.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	for _, line := range lines {
		if line.prescriptionID == nil {
			if line.requiresPrescription {
				return nil, ErrPrescriptionRequired
			}
			continue
		}
		if line.prescriptionOwner == nil || *line.prescriptionOwner != order.UserID {
			return nil, ErrInvalidPrescription
		}
		if line.prescriptionStatus == nil || *line.prescriptionStatus != domain.PrescriptionStatusVerified {
			return nil, ErrInvalidPrescription
		}
	}

	// Aggregate quantity per distinct product across all lines. Two legacy
	// lines for the same product must be summed before the stock check, not
	// checked line by line.
	requested := map[uuid.UUID]int{}
	stock := map[uuid.UUID]int{}
	for _, line := range lines {
		requested[line.productID] += line.quantity
		stock[line.productID] = line.stock
	}

	for productID, quantity := range requested {
		if quantity > stock[productID] {
			return nil, ErrInsufficientStock
		}
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.price.Mul(decimal.NewFromInt(int64(line.quantity))))
	}
	order.TotalAmount = total

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_id, total_amount, status, payment_method, delivery_method, delivery_address, delivery_phone, notes, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		order.ID,
		order.UserID,
		order.TotalAmount,
		order.Status,
		order.PaymentMethod,
		order.DeliveryMethod,
		order.DeliveryAddress,
		order.DeliveryPhone,
		order.Notes,
		order.EstimatedDelivery,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert order: %w", err)
	}

	items := make([]*domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := &domain.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			ProductID:      line.productID,
			Quantity:       line.quantity,
			UnitPrice:      line.price,
			PrescriptionID: line.prescriptionID,
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, prescription_id)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.PrescriptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert order item: %w", err)
		}

		items = append(items, item)
	}

	// One decrement per distinct product, by the aggregated quantity
	for productID, quantity := range requested {
		_, err = tx.ExecContext(ctx, `
			UPDATE products SET stock = stock - $2, updated_at = NOW() WHERE id = $1
		`, productID, quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to decrement stock: %w", err)
		}
	}

	if _, err = tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1`, order.UserID); err != nil {
		return nil, fmt.Errorf("failed to clear cart: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}

	return items, nil
}

func loadCheckoutLines(ctx context.Context, tx *sql.Tx, userID uuid.UUID) ([]checkoutLine, error) {
	// FOR UPDATE OF p locks the touched product rows for the duration of the
	// transaction; a concurrent checkout of the same product blocks here and
	// re-reads stock after the winner commits.
	rows, err := tx.QueryContext(ctx, `
		SELECT ci.id, ci.product_id, ci.quantity, ci.prescription_id,
		       p.price, p.stock, p.requires_prescription,
		       pr.user_id, pr.status
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		LEFT JOIN prescriptions pr ON pr.id = ci.prescription_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at ASC
		FOR UPDATE OF p
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for checkout: %w", err)
	}
	defer rows.Close()

	lines := []checkoutLine{}
	for rows.Next() {
		var line checkoutLine
		err := rows.Scan(
			&line.itemID,
			&line.productID,
			&line.quantity,
			&line.prescriptionID,
			&line.price,
			&line.stock,
			&line.requiresPrescription,
			&line.prescriptionOwner,
			&line.prescriptionStatus,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkout line: %w", err)
		}
		lines = append(lines, line)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkout lines: %w", err)
	}

	return lines, nil
}

const orderColumns = `id, user_id, total_amount, status, payment_method, delivery_method, delivery_address, delivery_phone, notes, estimated_delivery, created_at, updated_at`

func scanOrder(scan func(dest ...interface{}) error) (*domain.Order, error) {
	order := &domain.Order{}
	err := scan(
		&order.ID,
		&order.UserID,
		&order.TotalAmount,
		&order.Status,
		&order.PaymentMethod,
		&order.DeliveryMethod,
		&order.DeliveryAddress,
		&order.DeliveryPhone,
		&order.Notes,
		&order.EstimatedDelivery,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	return order, err
}

// FindByID retrieves an order by ID
func (r *orderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns)

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	return order, nil
}

// ListByUser retrieves a user's orders, newest first
func (r *orderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListAll retrieves all orders, newest first
func (r *orderRepository) ListAll(ctx context.Context) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListByStatus retrieves orders with a given status, newest first
func (r *orderRepository) ListByStatus(ctx context.Context, status string) ([]*domain.Order, error) {
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE status = $1 ORDER BY created_at DESC`, orderColumns)

	rows, err := r.db.QueryContext(ctx, query, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders by status: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// ListItems retrieves the items of an order
func (r *orderRepository) ListItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	query := `
		SELECT id, order_id, product_id, quantity, unit_price, prescription_id
		FROM order_items
		WHERE order_id = $1
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	defer rows.Close()

	items := []*domain.OrderItem{}
	for rows.Next() {
		item := &domain.OrderItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.Quantity,
			&item.UnitPrice,
			&item.PrescriptionID,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return items, nil
}

// UpdateStatus overwrites the order status. Any status may follow any status;
// no transition graph is enforced.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrOrderNotFound
	}

	return nil
}

func collectOrders(rows *sql.Rows) ([]*domain.Order, error) {
	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}
