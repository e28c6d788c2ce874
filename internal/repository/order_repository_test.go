package repository

import (
	"context"
	"database/sql"
	"log"
	"testing"
	"time"

	"apteka/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	_ "github.com/jackc/pgx/v5/stdlib"
)

var testDB *sql.DB

func setupTestDB() (func(context.Context, ...testcontainers.TerminateOption) error, error) {
	var (
		dbName = "testdb"
		dbPwd  = "password"
		dbUser = "user"
	)

	dbContainer, err := postgres.Run(
		context.Background(),
		"postgres:15",
		postgres.WithDatabase(dbName),
		postgres.WithUsername(dbUser),
		postgres.WithPassword(dbPwd),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Second)),
	)
	if err != nil {
		return nil, err
	}

	dbHost, err := dbContainer.Host(context.Background())
	if err != nil {
		return dbContainer.Terminate, err
	}

	dbPort, err := dbContainer.MappedPort(context.Background(), "5432/tcp")
	if err != nil {
		return dbContainer.Terminate, err
	}

	connStr := "postgres://" + dbUser + ":" + dbPwd + "@" + dbHost + ":" + dbPort.Port() + "/" + dbName + "?sslmode=disable"
	testDB, err = sql.Open("pgx", connStr)
	if err != nil {
		return dbContainer.Terminate, err
	}

	_, err = testDB.Exec(`
		CREATE TABLE users (
			id UUID PRIMARY KEY,
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			first_name VARCHAR(100),
			last_name VARCHAR(100),
			phone VARCHAR(30),
			role VARCHAR(50) NOT NULL DEFAULT 'customer',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE categories (
			id UUID PRIMARY KEY,
			name VARCHAR(100) UNIQUE NOT NULL,
			description TEXT,
			parent_id UUID REFERENCES categories(id),
			is_prescription_required BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL
		);

		CREATE TABLE products (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			price DECIMAL(10, 2) NOT NULL CHECK (price > 0),
			category_id UUID NOT NULL REFERENCES categories(id),
			manufacturer VARCHAR(255),
			image_url VARCHAR(500),
			stock INTEGER NOT NULL DEFAULT 0 CHECK (stock >= 0),
			requires_prescription BOOLEAN NOT NULL DEFAULT FALSE,
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE prescriptions (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			doctor_name VARCHAR(255) NOT NULL,
			doctor_license VARCHAR(100) NOT NULL,
			prescription_date DATE NOT NULL,
			image_url VARCHAR(500) NOT NULL,
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			verified_by UUID REFERENCES users(id),
			verification_notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE cart_items (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			product_id UUID NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			prescription_id UUID REFERENCES prescriptions(id),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			CONSTRAINT uq_cart_items_user_product UNIQUE (user_id, product_id)
		);

		CREATE TABLE orders (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			total_amount DECIMAL(10, 2) NOT NULL,
			status VARCHAR(20) NOT NULL,
			payment_method VARCHAR(50) NOT NULL,
			delivery_method VARCHAR(50) NOT NULL,
			delivery_address TEXT NOT NULL,
			delivery_phone VARCHAR(30) NOT NULL,
			notes TEXT NOT NULL DEFAULT '',
			estimated_delivery TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE order_items (
			id UUID PRIMARY KEY,
			order_id UUID NOT NULL REFERENCES orders(id),
			product_id UUID NOT NULL REFERENCES products(id),
			quantity INTEGER NOT NULL CHECK (quantity > 0),
			unit_price DECIMAL(10, 2) NOT NULL,
			prescription_id UUID REFERENCES prescriptions(id)
		);

		CREATE TABLE consultations (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id),
			pharmacist_id UUID REFERENCES users(id),
			subject VARCHAR(255) NOT NULL,
			message TEXT NOT NULL,
			response TEXT NOT NULL DEFAULT '',
			status VARCHAR(20) NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return dbContainer.Terminate, err
	}

	return dbContainer.Terminate, nil
}

func TestMain(m *testing.M) {
	teardown, err := setupTestDB()
	if err != nil {
		log.Fatalf("could not start postgres container: %v", err)
	}

	m.Run()

	if teardown != nil {
		if err := teardown(context.Background()); err != nil {
			log.Fatalf("could not teardown postgres container: %v", err)
		}
	}
}

func insertTestUser(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, phone, role, created_at, updated_at)
		VALUES ($1, $2, 'hash', 'Test', 'User', '+15550100', 'customer', NOW(), NOW())
	`, id, id.String()+"@example.com")
	if err != nil {
		t.Fatalf("failed to insert user: %v", err)
	}
	return id
}

func insertTestCategory(t *testing.T) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO categories (id, name, description, created_at)
		VALUES ($1, $2, '', NOW())
	`, id, "category-"+id.String())
	if err != nil {
		t.Fatalf("failed to insert category: %v", err)
	}
	return id
}

func insertTestProduct(t *testing.T, categoryID uuid.UUID, price string, stock int, requiresPrescription bool) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO products (id, name, description, price, category_id, stock, requires_prescription, created_at, updated_at)
		VALUES ($1, $2, '', $3, $4, $5, $6, NOW(), NOW())
	`, id, "product-"+id.String(), price, categoryID, stock, requiresPrescription)
	if err != nil {
		t.Fatalf("failed to insert product: %v", err)
	}
	return id
}

func insertTestPrescription(t *testing.T, userID uuid.UUID, status string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := testDB.Exec(`
		INSERT INTO prescriptions (id, user_id, doctor_name, doctor_license, prescription_date, image_url, status, created_at, updated_at)
		VALUES ($1, $2, 'Dr. Kowalska', 'PL-12345', CURRENT_DATE, 'https://example.com/rx.jpg', $3, NOW(), NOW())
	`, id, userID, status)
	if err != nil {
		t.Fatalf("failed to insert prescription: %v", err)
	}
	return id
}

func insertTestCartItem(t *testing.T, userID, productID uuid.UUID, quantity int, prescriptionID *uuid.UUID) {
	t.Helper()
	_, err := testDB.Exec(`
		INSERT INTO cart_items (id, user_id, product_id, quantity, prescription_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	`, uuid.New(), userID, productID, quantity, prescriptionID)
	if err != nil {
		t.Fatalf("failed to insert cart item: %v", err)
	}
}

func productStock(t *testing.T, productID uuid.UUID) int {
	t.Helper()
	var stock int
	if err := testDB.QueryRow(`SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock); err != nil {
		t.Fatalf("failed to read stock: %v", err)
	}
	return stock
}

func cartSize(t *testing.T, userID uuid.UUID) int {
	t.Helper()
	var count int
	if err := testDB.QueryRow(`SELECT COUNT(*) FROM cart_items WHERE user_id = $1`, userID).Scan(&count); err != nil {
		t.Fatalf("failed to count cart items: %v", err)
	}
	return count
}

func pendingOrder(userID uuid.UUID) *domain.Order {
	return &domain.Order{
		ID:              uuid.New(),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   "card",
		DeliveryMethod:  "courier",
		DeliveryAddress: "1 Main St",
		DeliveryPhone:   "+15550100",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}
}

func TestCreateFromCart_SnapshotsPricesAndDecrementsStock(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t)
	categoryID := insertTestCategory(t)
	productA := insertTestProduct(t, categoryID, "12.99", 10, false)
	productB := insertTestProduct(t, categoryID, "21.99", 5, false)
	insertTestCartItem(t, userID, productA, 2, nil)
	insertTestCartItem(t, userID, productB, 1, nil)

	order := pendingOrder(userID)
	items, err := repo.CreateFromCart(ctx, order)
	if err != nil {
		t.Fatalf("CreateFromCart() error = %v", err)
	}

	if want := decimal.NewFromFloat(47.97); !order.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", order.TotalAmount, want)
	}
	if len(items) != 2 {
		t.Fatalf("got %d order items, want 2", len(items))
	}
	for _, item := range items {
		var wantPrice decimal.Decimal
		switch item.ProductID {
		case productA:
			wantPrice = decimal.NewFromFloat(12.99)
		case productB:
			wantPrice = decimal.NewFromFloat(21.99)
		default:
			t.Fatalf("unexpected product %s in order", item.ProductID)
		}
		if !item.UnitPrice.Equal(wantPrice) {
			t.Errorf("unit price = %s, want %s", item.UnitPrice, wantPrice)
		}
	}

	if got := productStock(t, productA); got != 8 {
		t.Errorf("product A stock = %d, want 8", got)
	}
	if got := productStock(t, productB); got != 4 {
		t.Errorf("product B stock = %d, want 4", got)
	}
	if got := cartSize(t, userID); got != 0 {
		t.Errorf("cart still holds %d items after checkout", got)
	}

	// Raising the price afterwards must not touch the snapshot
	if _, err := testDB.Exec(`UPDATE products SET price = 99.99 WHERE id = $1`, productA); err != nil {
		t.Fatalf("failed to update price: %v", err)
	}
	reloaded, err := repo.ListItems(ctx, order.ID)
	if err != nil {
		t.Fatalf("ListItems() error = %v", err)
	}
	for _, item := range reloaded {
		if item.ProductID == productA && !item.UnitPrice.Equal(decimal.NewFromFloat(12.99)) {
			t.Errorf("snapshot changed after price update: %s", item.UnitPrice)
		}
	}
}

func TestCreateFromCart_InsufficientStockRollsBackEverything(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t)
	categoryID := insertTestCategory(t)
	cheap := insertTestProduct(t, categoryID, "3.50", 100, false)
	scarce := insertTestProduct(t, categoryID, "8.00", 2, false)
	insertTestCartItem(t, userID, cheap, 1, nil)
	insertTestCartItem(t, userID, scarce, 3, nil)

	_, err := repo.CreateFromCart(ctx, pendingOrder(userID))
	if err != ErrInsufficientStock {
		t.Fatalf("CreateFromCart() error = %v, want %v", err, ErrInsufficientStock)
	}

	// All-or-nothing: no partial decrement, cart untouched, no order rows
	if got := productStock(t, cheap); got != 100 {
		t.Errorf("cheap product stock = %d, want 100", got)
	}
	if got := productStock(t, scarce); got != 2 {
		t.Errorf("scarce product stock = %d, want 2", got)
	}
	if got := cartSize(t, userID); got != 2 {
		t.Errorf("cart size = %d, want 2", got)
	}
	var orders int
	if err := testDB.QueryRow(`SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&orders); err != nil {
		t.Fatalf("failed to count orders: %v", err)
	}
	if orders != 0 {
		t.Errorf("found %d orders after failed checkout", orders)
	}
}

func TestCreateFromCart_ConcurrentCheckoutsSerializeOnStock(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	categoryID := insertTestCategory(t)
	productID := insertTestProduct(t, categoryID, "19.99", 1, false)

	userA := insertTestUser(t)
	userB := insertTestUser(t)
	insertTestCartItem(t, userA, productID, 1, nil)
	insertTestCartItem(t, userB, productID, 1, nil)

	// Both checkouts contend for the last unit. The product row lock
	// serializes them: the loser re-reads the committed stock of zero and
	// fails, it never drives stock negative.
	errs := make(chan error, 2)
	for _, userID := range []uuid.UUID{userA, userB} {
		go func(userID uuid.UUID) {
			_, err := repo.CreateFromCart(ctx, pendingOrder(userID))
			errs <- err
		}(userID)
	}

	var succeeded, outOfStock int
	for i := 0; i < 2; i++ {
		switch err := <-errs; err {
		case nil:
			succeeded++
		case ErrInsufficientStock:
			outOfStock++
		default:
			t.Fatalf("CreateFromCart() error = %v", err)
		}
	}

	if succeeded != 1 || outOfStock != 1 {
		t.Errorf("got %d successes and %d stock failures, want exactly 1 of each", succeeded, outOfStock)
	}
	if got := productStock(t, productID); got != 0 {
		t.Errorf("stock = %d, want 0", got)
	}
}

// insertLegacyDuplicateCartLines writes two rows for the same (user, product)
// pair, the shape carts created before the uniqueness constraint can still
// have. The constraint is dropped around the insert and restored once the
// rows exist.
func insertLegacyDuplicateCartLines(t *testing.T, userID, productID uuid.UUID, quantities []int) {
	t.Helper()
	if _, err := testDB.Exec(`ALTER TABLE cart_items DROP CONSTRAINT uq_cart_items_user_product`); err != nil {
		t.Fatalf("failed to drop cart uniqueness constraint: %v", err)
	}
	for _, quantity := range quantities {
		insertTestCartItem(t, userID, productID, quantity, nil)
	}
	t.Cleanup(func() {
		if _, err := testDB.Exec(`DELETE FROM cart_items WHERE user_id = $1`, userID); err != nil {
			t.Fatalf("failed to clear legacy cart rows: %v", err)
		}
		if _, err := testDB.Exec(`ALTER TABLE cart_items ADD CONSTRAINT uq_cart_items_user_product UNIQUE (user_id, product_id)`); err != nil {
			t.Fatalf("failed to restore cart uniqueness constraint: %v", err)
		}
	})
}

func TestCreateFromCart_LegacyDuplicateLinesAreSummed(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	t.Run("summed quantity exceeding stock fails", func(t *testing.T) {
		userID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		productID := insertTestProduct(t, categoryID, "6.00", 5, false)

		// 3 + 3 > 5 even though each line alone fits
		insertLegacyDuplicateCartLines(t, userID, productID, []int{3, 3})

		if _, err := repo.CreateFromCart(ctx, pendingOrder(userID)); err != ErrInsufficientStock {
			t.Fatalf("CreateFromCart() error = %v, want %v", err, ErrInsufficientStock)
		}
		if got := productStock(t, productID); got != 5 {
			t.Errorf("stock = %d, want 5", got)
		}
	})

	t.Run("summed quantity within stock decrements once by the sum", func(t *testing.T) {
		userID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		productID := insertTestProduct(t, categoryID, "6.00", 10, false)

		insertLegacyDuplicateCartLines(t, userID, productID, []int{2, 3})

		order := pendingOrder(userID)
		items, err := repo.CreateFromCart(ctx, order)
		if err != nil {
			t.Fatalf("CreateFromCart() error = %v", err)
		}

		// One order item per cart line, one decrement by the aggregate
		if len(items) != 2 {
			t.Errorf("got %d order items, want 2", len(items))
		}
		if got := productStock(t, productID); got != 5 {
			t.Errorf("stock = %d, want 5", got)
		}
		if want := decimal.NewFromFloat(30.00); !order.TotalAmount.Equal(want) {
			t.Errorf("total = %s, want %s", order.TotalAmount, want)
		}
	})
}

func TestCreateFromCart_PrescriptionChecks(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	t.Run("missing prescription", func(t *testing.T) {
		userID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		productID := insertTestProduct(t, categoryID, "15.00", 10, true)
		insertTestCartItem(t, userID, productID, 1, nil)

		if _, err := repo.CreateFromCart(ctx, pendingOrder(userID)); err != ErrPrescriptionRequired {
			t.Errorf("CreateFromCart() error = %v, want %v", err, ErrPrescriptionRequired)
		}
	})

	t.Run("unverified prescription", func(t *testing.T) {
		userID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		productID := insertTestProduct(t, categoryID, "15.00", 10, true)
		prescriptionID := insertTestPrescription(t, userID, domain.PrescriptionStatusPending)
		insertTestCartItem(t, userID, productID, 1, &prescriptionID)

		if _, err := repo.CreateFromCart(ctx, pendingOrder(userID)); err != ErrInvalidPrescription {
			t.Errorf("CreateFromCart() error = %v, want %v", err, ErrInvalidPrescription)
		}
	})

	t.Run("someone else's verified prescription", func(t *testing.T) {
		userID := insertTestUser(t)
		otherID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		productID := insertTestProduct(t, categoryID, "15.00", 10, true)
		prescriptionID := insertTestPrescription(t, otherID, domain.PrescriptionStatusVerified)
		insertTestCartItem(t, userID, productID, 1, &prescriptionID)

		if _, err := repo.CreateFromCart(ctx, pendingOrder(userID)); err != ErrInvalidPrescription {
			t.Errorf("CreateFromCart() error = %v, want %v", err, ErrInvalidPrescription)
		}
	})

	t.Run("prescription failure reported before stock failure", func(t *testing.T) {
		userID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		// no prescription attached AND quantity above stock
		productID := insertTestProduct(t, categoryID, "15.00", 1, true)
		insertTestCartItem(t, userID, productID, 3, nil)

		if _, err := repo.CreateFromCart(ctx, pendingOrder(userID)); err != ErrPrescriptionRequired {
			t.Errorf("CreateFromCart() error = %v, want %v", err, ErrPrescriptionRequired)
		}
	})

	t.Run("own verified prescription", func(t *testing.T) {
		userID := insertTestUser(t)
		categoryID := insertTestCategory(t)
		productID := insertTestProduct(t, categoryID, "15.00", 10, true)
		prescriptionID := insertTestPrescription(t, userID, domain.PrescriptionStatusVerified)
		insertTestCartItem(t, userID, productID, 2, &prescriptionID)

		order := pendingOrder(userID)
		items, err := repo.CreateFromCart(ctx, order)
		if err != nil {
			t.Fatalf("CreateFromCart() error = %v", err)
		}
		if len(items) != 1 || items[0].PrescriptionID == nil || *items[0].PrescriptionID != prescriptionID {
			t.Errorf("order item does not carry the prescription reference")
		}
	})
}

func TestCreateFromCart_EmptyCart(t *testing.T) {
	repo := NewOrderRepository(testDB)

	userID := insertTestUser(t)
	if _, err := repo.CreateFromCart(context.Background(), pendingOrder(userID)); err != ErrEmptyCart {
		t.Errorf("CreateFromCart() error = %v, want %v", err, ErrEmptyCart)
	}
}

func TestUpdateStatus_UnknownOrder(t *testing.T) {
	repo := NewOrderRepository(testDB)

	if err := repo.UpdateStatus(context.Background(), uuid.New(), domain.OrderStatusShipped); err != ErrOrderNotFound {
		t.Errorf("UpdateStatus() error = %v, want %v", err, ErrOrderNotFound)
	}
}

func TestListByUser_NewestFirst(t *testing.T) {
	repo := NewOrderRepository(testDB)
	ctx := context.Background()

	userID := insertTestUser(t)
	categoryID := insertTestCategory(t)
	productID := insertTestProduct(t, categoryID, "4.20", 100, false)

	var placed []uuid.UUID
	for i := 0; i < 3; i++ {
		insertTestCartItem(t, userID, productID, 1, nil)
		order := pendingOrder(userID)
		order.CreatedAt = time.Now().Add(time.Duration(i) * time.Second)
		order.UpdatedAt = order.CreatedAt
		if _, err := repo.CreateFromCart(ctx, order); err != nil {
			t.Fatalf("CreateFromCart() error = %v", err)
		}
		placed = append(placed, order.ID)
	}

	orders, err := repo.ListByUser(ctx, userID)
	if err != nil {
		t.Fatalf("ListByUser() error = %v", err)
	}
	if len(orders) != 3 {
		t.Fatalf("got %d orders, want 3", len(orders))
	}
	for i, order := range orders {
		if want := placed[len(placed)-1-i]; order.ID != want {
			t.Errorf("orders[%d] = %s, want %s", i, order.ID, want)
		}
	}
}
