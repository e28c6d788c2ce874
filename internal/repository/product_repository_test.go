package repository

import (
	"context"
	"testing"
	"time"

	"apteka/internal/domain"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

func TestProperty_ProductCreationPreservesAttributes(t *testing.T) {
	productRepo := NewProductRepository(testDB)

	categoryID := insertTestCategory(t)

	properties := gopter.NewProperties(nil)

	properties.Property("creating and retrieving a product preserves all attributes", prop.ForAll(
		func(name string, description string, priceCents int, stock int, requiresPrescription bool, manufacturer string) bool {
			ctx := context.Background()

			product := &domain.Product{
				ID:                   uuid.New(),
				Name:                 name,
				Description:          description,
				Price:                decimal.NewFromInt(int64(priceCents)).Div(decimal.NewFromInt(100)),
				CategoryID:           categoryID,
				Manufacturer:         manufacturer,
				ImageURL:             "https://example.com/p.jpg",
				Stock:                stock,
				RequiresPrescription: requiresPrescription,
				IsActive:             true,
				CreatedAt:            time.Now(),
				UpdatedAt:            time.Now(),
			}

			if err := productRepo.Create(ctx, product); err != nil {
				t.Logf("Create failed: %v", err)
				return false
			}

			retrieved, err := productRepo.FindByID(ctx, product.ID)
			if err != nil {
				t.Logf("FindByID failed: %v", err)
				return false
			}

			return retrieved.Name == name &&
				retrieved.Description == description &&
				retrieved.Price.Equal(product.Price) &&
				retrieved.Stock == stock &&
				retrieved.RequiresPrescription == requiresPrescription &&
				retrieved.Manufacturer == manufacturer
		},
		gen.RegexMatch(`[A-Za-z][A-Za-z0-9 ]{2,40}`),
		gen.RegexMatch(`[A-Za-z0-9 .,]{0,80}`),
		gen.IntRange(1, 100_000),
		gen.IntRange(0, 10_000),
		gen.Bool(),
		gen.RegexMatch(`[A-Za-z]{3,20}`),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestUpdate_OnlySetFieldsChange(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	categoryID := insertTestCategory(t)
	id := insertTestProduct(t, categoryID, "9.99", 7, false)

	original, err := productRepo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}

	newPrice := decimal.NewFromFloat(12.50)
	inactive := false
	updated, err := productRepo.Update(ctx, id, &ProductUpdate{
		Price:    &newPrice,
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	if !updated.Price.Equal(newPrice) {
		t.Errorf("price = %s, want %s", updated.Price, newPrice)
	}
	if updated.IsActive {
		t.Error("product still active after update")
	}

	// Absent fields keep their stored values
	if updated.Name != original.Name {
		t.Errorf("name changed: %q -> %q", original.Name, updated.Name)
	}
	if updated.Stock != original.Stock {
		t.Errorf("stock changed: %d -> %d", original.Stock, updated.Stock)
	}
	if updated.CategoryID != original.CategoryID {
		t.Errorf("category changed: %s -> %s", original.CategoryID, updated.CategoryID)
	}
}

func TestUpdate_MissingProduct(t *testing.T) {
	productRepo := NewProductRepository(testDB)

	name := "renamed"
	_, err := productRepo.Update(context.Background(), uuid.New(), &ProductUpdate{Name: &name})
	if err != ErrProductNotFound {
		t.Errorf("Update() error = %v, want %v", err, ErrProductNotFound)
	}
}

func TestSearch_FiltersAreANDCombined(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	categoryID := insertTestCategory(t)
	otherCategoryID := insertTestCategory(t)

	marker := uuid.New().String()[:8]
	mk := func(name, price string, category uuid.UUID, requiresPrescription bool) {
		product := &domain.Product{
			ID:                   uuid.New(),
			Name:                 marker + " " + name,
			Price:                decimal.RequireFromString(price),
			CategoryID:           category,
			Manufacturer:         "Polfa",
			Stock:                10,
			RequiresPrescription: requiresPrescription,
			IsActive:             true,
			CreatedAt:            time.Now(),
			UpdatedAt:            time.Now(),
		}
		if err := productRepo.Create(ctx, product); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	mk("aspirin", "4.99", categoryID, false)
	mk("amoxicillin", "24.99", categoryID, true)
	mk("bandage", "4.99", otherCategoryID, false)

	requiresPrescription := false
	maxPrice := decimal.NewFromFloat(10.00)
	results, total, err := productRepo.Search(ctx, ProductFilter{
		Query:                &marker,
		CategoryID:           &categoryID,
		RequiresPrescription: &requiresPrescription,
		MaxPrice:             &maxPrice,
		Limit:                20,
	})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if total != 1 || len(results) != 1 {
		t.Fatalf("got %d results (total %d), want 1", len(results), total)
	}
	if results[0].Name != marker+" aspirin" {
		t.Errorf("result = %q, want %q", results[0].Name, marker+" aspirin")
	}
}

func TestSearch_TotalCountsBeyondPage(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	categoryID := insertTestCategory(t)
	marker := uuid.New().String()[:8]
	for i := 0; i < 5; i++ {
		product := &domain.Product{
			ID:         uuid.New(),
			Name:       marker + " vitamin",
			Price:      decimal.NewFromFloat(7.00),
			CategoryID: categoryID,
			Stock:      3,
			IsActive:   true,
			CreatedAt:  time.Now(),
			UpdatedAt:  time.Now(),
		}
		if err := productRepo.Create(ctx, product); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	results, total, err := productRepo.Search(ctx, ProductFilter{Query: &marker, Limit: 2})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(results) != 2 {
		t.Errorf("page size = %d, want 2", len(results))
	}
	if total != 5 {
		t.Errorf("total = %d, want 5", total)
	}
}

func TestUpdateStock_SetsAbsoluteValue(t *testing.T) {
	productRepo := NewProductRepository(testDB)
	ctx := context.Background()

	categoryID := insertTestCategory(t)
	id := insertTestProduct(t, categoryID, "5.00", 3, false)

	if err := productRepo.UpdateStock(ctx, id, 42); err != nil {
		t.Fatalf("UpdateStock() error = %v", err)
	}

	product, err := productRepo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID() error = %v", err)
	}
	if product.Stock != 42 {
		t.Errorf("stock = %d, want 42", product.Stock)
	}

	if err := productRepo.UpdateStock(ctx, uuid.New(), 1); err != ErrProductNotFound {
		t.Errorf("UpdateStock() error = %v, want %v", err, ErrProductNotFound)
	}
}
