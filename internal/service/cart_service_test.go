package service

import (
	"context"
	"testing"
	"time"

	"apteka/internal/domain"
	"apteka/internal/repository"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

// Mock repositories for testing
type mockCartRepository struct {
	items map[uuid.UUID]*domain.CartItem
}

func newMockCartRepository() *mockCartRepository {
	return &mockCartRepository{items: make(map[uuid.UUID]*domain.CartItem)}
}

func (m *mockCartRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.CartLine, error) {
	var lines []*domain.CartLine
	for _, item := range m.items {
		if item.UserID == userID {
			lines = append(lines, &domain.CartLine{CartItem: *item})
		}
	}
	return lines, nil
}

func (m *mockCartRepository) FindLine(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartLine, error) {
	item, exists := m.items[itemID]
	if !exists || item.UserID != userID {
		return nil, repository.ErrCartItemNotFound
	}
	return &domain.CartLine{CartItem: *item, Stock: 100}, nil
}

func (m *mockCartRepository) FindByUserAndProduct(ctx context.Context, userID, productID uuid.UUID) (*domain.CartItem, error) {
	for _, item := range m.items {
		if item.UserID == userID && item.ProductID == productID {
			return item, nil
		}
	}
	return nil, repository.ErrCartItemNotFound
}

func (m *mockCartRepository) Create(ctx context.Context, item *domain.CartItem) error {
	m.items[item.ID] = item
	return nil
}

func (m *mockCartRepository) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	item, exists := m.items[itemID]
	if !exists || item.UserID != userID {
		return repository.ErrCartItemNotFound
	}
	item.Quantity = quantity
	return nil
}

func (m *mockCartRepository) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	item, exists := m.items[itemID]
	if !exists || item.UserID != userID {
		return repository.ErrCartItemNotFound
	}
	delete(m.items, itemID)
	return nil
}

func (m *mockCartRepository) Clear(ctx context.Context, userID uuid.UUID) error {
	for id, item := range m.items {
		if item.UserID == userID {
			delete(m.items, id)
		}
	}
	return nil
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, id uuid.UUID, update *repository.ProductUpdate) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	if update.Name != nil {
		product.Name = *update.Name
	}
	if update.Price != nil {
		product.Price = *update.Price
	}
	if update.IsActive != nil {
		product.IsActive = *update.IsActive
	}
	return product, nil
}

func (m *mockProductRepository) UpdateStock(ctx context.Context, id uuid.UUID, stock int) error {
	product, exists := m.products[id]
	if !exists {
		return repository.ErrProductNotFound
	}
	product.Stock = stock
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	product, exists := m.products[id]
	if !exists {
		return nil, repository.ErrProductNotFound
	}
	return product, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	for _, p := range m.products {
		products = append(products, p)
	}
	return products, nil
}

func (m *mockProductRepository) Search(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	products, _ := m.List(ctx)
	return products, len(products), nil
}

type mockPrescriptionRepository struct {
	prescriptions map[uuid.UUID]*domain.Prescription
}

func newMockPrescriptionRepository() *mockPrescriptionRepository {
	return &mockPrescriptionRepository{prescriptions: make(map[uuid.UUID]*domain.Prescription)}
}

func (m *mockPrescriptionRepository) Create(ctx context.Context, prescription *domain.Prescription) error {
	m.prescriptions[prescription.ID] = prescription
	return nil
}

func (m *mockPrescriptionRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Prescription, error) {
	prescription, exists := m.prescriptions[id]
	if !exists {
		return nil, repository.ErrPrescriptionNotFound
	}
	return prescription, nil
}

func (m *mockPrescriptionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Prescription, error) {
	var prescriptions []*domain.Prescription
	for _, p := range m.prescriptions {
		if p.UserID == userID {
			prescriptions = append(prescriptions, p)
		}
	}
	return prescriptions, nil
}

func (m *mockPrescriptionRepository) ListPending(ctx context.Context) ([]*domain.Prescription, error) {
	var prescriptions []*domain.Prescription
	for _, p := range m.prescriptions {
		if p.Status == domain.PrescriptionStatusPending {
			prescriptions = append(prescriptions, p)
		}
	}
	return prescriptions, nil
}

func (m *mockPrescriptionRepository) SetVerification(ctx context.Context, id, verifierID uuid.UUID, status, notes string) error {
	prescription, exists := m.prescriptions[id]
	if !exists {
		return repository.ErrPrescriptionNotFound
	}
	prescription.Status = status
	prescription.VerifiedBy = &verifierID
	prescription.VerificationNotes = notes
	return nil
}

func newTestProduct(stock int, requiresPrescription bool) *domain.Product {
	return &domain.Product{
		ID:                   uuid.New(),
		Name:                 "Ibuprofen 200mg",
		Price:                decimal.NewFromFloat(5.99),
		CategoryID:           uuid.New(),
		Stock:                stock,
		RequiresPrescription: requiresPrescription,
		IsActive:             true,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}
}

func TestProperty_AddingSameProductMergesIntoOneLine(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("repeated adds of one product leave a single line holding the sum", prop.ForAll(
		func(quantities []int) bool {
			cartRepo := newMockCartRepository()
			productRepo := newMockProductRepository()
			svc := NewCartService(cartRepo, productRepo, newMockPrescriptionRepository())

			product := newTestProduct(1_000_000, false)
			productRepo.Create(context.Background(), product)
			userID := uuid.New()

			total := 0
			for _, q := range quantities {
				if _, err := svc.AddItem(context.Background(), userID, product.ID, q, nil); err != nil {
					t.Logf("AddItem failed: %v", err)
					return false
				}
				total += q
			}

			lines, _ := cartRepo.ListByUser(context.Background(), userID)
			if len(lines) != 1 {
				t.Logf("expected 1 cart line, got %d", len(lines))
				return false
			}
			return lines[0].Quantity == total
		},
		gen.SliceOfN(5, gen.IntRange(1, 20)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_AddItemNeverExceedsStock(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("the cart line never grows past the product's stock", prop.ForAll(
		func(stock int, quantities []int) bool {
			cartRepo := newMockCartRepository()
			productRepo := newMockProductRepository()
			svc := NewCartService(cartRepo, productRepo, newMockPrescriptionRepository())

			product := newTestProduct(stock, false)
			productRepo.Create(context.Background(), product)
			userID := uuid.New()

			for _, q := range quantities {
				_, err := svc.AddItem(context.Background(), userID, product.ID, q, nil)
				if err != nil && err != repository.ErrInsufficientStock {
					t.Logf("unexpected error: %v", err)
					return false
				}
			}

			lines, _ := cartRepo.ListByUser(context.Background(), userID)
			for _, line := range lines {
				if line.Quantity > stock {
					t.Logf("line quantity %d exceeds stock %d", line.Quantity, stock)
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 30),
		gen.SliceOfN(8, gen.IntRange(1, 15)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestAddItem_PrescriptionGating(t *testing.T) {
	userID := uuid.New()
	otherUserID := uuid.New()

	prescription := &domain.Prescription{
		ID:     uuid.New(),
		UserID: userID,
		Status: domain.PrescriptionStatusPending,
	}
	foreignPrescription := &domain.Prescription{
		ID:     uuid.New(),
		UserID: otherUserID,
		Status: domain.PrescriptionStatusVerified,
	}

	tests := []struct {
		name                 string
		requiresPrescription bool
		prescriptionID       *uuid.UUID
		wantErr              error
	}{
		{
			name:                 "prescription product without prescription",
			requiresPrescription: true,
			prescriptionID:       nil,
			wantErr:              repository.ErrPrescriptionRequired,
		},
		{
			name:                 "prescription product with own prescription",
			requiresPrescription: true,
			prescriptionID:       &prescription.ID,
			wantErr:              nil,
		},
		{
			name:                 "prescription product with someone else's prescription",
			requiresPrescription: true,
			prescriptionID:       &foreignPrescription.ID,
			wantErr:              repository.ErrInvalidPrescription,
		},
		{
			name:                 "over-the-counter product without prescription",
			requiresPrescription: false,
			prescriptionID:       nil,
			wantErr:              nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cartRepo := newMockCartRepository()
			productRepo := newMockProductRepository()
			prescriptionRepo := newMockPrescriptionRepository()
			prescriptionRepo.Create(context.Background(), prescription)
			prescriptionRepo.Create(context.Background(), foreignPrescription)
			svc := NewCartService(cartRepo, productRepo, prescriptionRepo)

			product := newTestProduct(10, tt.requiresPrescription)
			productRepo.Create(context.Background(), product)

			_, err := svc.AddItem(context.Background(), userID, product.ID, 1, tt.prescriptionID)
			if err != tt.wantErr {
				t.Errorf("AddItem() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAddItem_RejectsUnknownPrescription(t *testing.T) {
	cartRepo := newMockCartRepository()
	productRepo := newMockProductRepository()
	svc := NewCartService(cartRepo, productRepo, newMockPrescriptionRepository())

	product := newTestProduct(10, true)
	productRepo.Create(context.Background(), product)

	missingID := uuid.New()
	_, err := svc.AddItem(context.Background(), uuid.New(), product.ID, 1, &missingID)
	if err != repository.ErrInvalidPrescription {
		t.Errorf("AddItem() error = %v, want %v", err, repository.ErrInvalidPrescription)
	}
}

func TestAddItem_RejectsInactiveProduct(t *testing.T) {
	cartRepo := newMockCartRepository()
	productRepo := newMockProductRepository()
	svc := NewCartService(cartRepo, productRepo, newMockPrescriptionRepository())

	product := newTestProduct(10, false)
	product.IsActive = false
	productRepo.Create(context.Background(), product)

	_, err := svc.AddItem(context.Background(), uuid.New(), product.ID, 1, nil)
	if err != ErrProductInactive {
		t.Errorf("AddItem() error = %v, want %v", err, ErrProductInactive)
	}
}

func TestAddItem_RejectsNonPositiveQuantity(t *testing.T) {
	cartRepo := newMockCartRepository()
	productRepo := newMockProductRepository()
	svc := NewCartService(cartRepo, productRepo, newMockPrescriptionRepository())

	product := newTestProduct(10, false)
	productRepo.Create(context.Background(), product)

	for _, quantity := range []int{0, -1, -100} {
		if _, err := svc.AddItem(context.Background(), uuid.New(), product.ID, quantity, nil); err != ErrInvalidQuantity {
			t.Errorf("AddItem(quantity=%d) error = %v, want %v", quantity, err, ErrInvalidQuantity)
		}
	}
}

func TestUpdateItem_OtherUsersLineReportedAsNotFound(t *testing.T) {
	cartRepo := newMockCartRepository()
	productRepo := newMockProductRepository()
	svc := NewCartService(cartRepo, productRepo, newMockPrescriptionRepository())

	product := newTestProduct(10, false)
	productRepo.Create(context.Background(), product)

	owner := uuid.New()
	item, err := svc.AddItem(context.Background(), owner, product.ID, 2, nil)
	if err != nil {
		t.Fatalf("AddItem() error = %v", err)
	}

	_, err = svc.UpdateItem(context.Background(), uuid.New(), item.ID, 5)
	if err != repository.ErrCartItemNotFound {
		t.Errorf("UpdateItem() error = %v, want %v", err, repository.ErrCartItemNotFound)
	}

	if err := svc.RemoveItem(context.Background(), uuid.New(), item.ID); err != repository.ErrCartItemNotFound {
		t.Errorf("RemoveItem() error = %v, want %v", err, repository.ErrCartItemNotFound)
	}
}
