package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apteka/internal/domain"
	"apteka/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidParent = errors.New("parent category does not exist")
	ErrInvalidPrice  = errors.New("price must be positive")
	ErrInvalidStock  = errors.New("stock must not be negative")
)

// CreateCategoryInput holds the fields for a new category
type CreateCategoryInput struct {
	Name                   string
	Description            string
	ParentID               *uuid.UUID
	IsPrescriptionRequired bool
}

// CreateProductInput holds the fields for a new product
type CreateProductInput struct {
	Name                 string
	Description          string
	Price                decimal.Decimal
	CategoryID           uuid.UUID
	Manufacturer         string
	ImageURL             string
	Stock                int
	RequiresPrescription bool
}

// CatalogService defines the business logic over products and categories
type CatalogService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error)
	CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error)

	ListProducts(ctx context.Context) ([]*domain.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	SearchProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, update *repository.ProductUpdate) (*domain.Product, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stock int) (*domain.Product, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, categoryRepo repository.CategoryRepository) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
	}
}

// ListCategories returns all categories
func (s *catalogService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// GetCategory returns a category by ID
func (s *catalogService) GetCategory(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	return s.categoryRepo.FindByID(ctx, id)
}

// CreateCategory creates a category. The parent, when given, must exist; the
// hierarchy itself is an unchecked adjacency tree.
func (s *catalogService) CreateCategory(ctx context.Context, input CreateCategoryInput) (*domain.Category, error) {
	if input.ParentID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *input.ParentID); err != nil {
			if err == repository.ErrCategoryNotFound {
				return nil, ErrInvalidParent
			}
			return nil, fmt.Errorf("failed to check parent category: %w", err)
		}
	}

	category := &domain.Category{
		ID:                     uuid.New(),
		Name:                   input.Name,
		Description:            input.Description,
		ParentID:               input.ParentID,
		IsPrescriptionRequired: input.IsPrescriptionRequired,
		CreatedAt:              time.Now(),
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}

	return category, nil
}

// ListProducts returns all products
func (s *catalogService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	products, err := s.productRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProduct returns a product by ID
func (s *catalogService) GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	return s.productRepo.FindByID(ctx, id)
}

// SearchProducts returns the products matching the filter plus the total
// match count
func (s *catalogService) SearchProducts(ctx context.Context, filter repository.ProductFilter) ([]*domain.Product, int, error) {
	return s.productRepo.Search(ctx, filter)
}

// CreateProduct creates a product in an existing category
func (s *catalogService) CreateProduct(ctx context.Context, input CreateProductInput) (*domain.Product, error) {
	if !input.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if input.Stock < 0 {
		return nil, ErrInvalidStock
	}

	if _, err := s.categoryRepo.FindByID(ctx, input.CategoryID); err != nil {
		return nil, err
	}

	product := &domain.Product{
		ID:                   uuid.New(),
		Name:                 input.Name,
		Description:          input.Description,
		Price:                input.Price,
		CategoryID:           input.CategoryID,
		Manufacturer:         input.Manufacturer,
		ImageURL:             input.ImageURL,
		Stock:                input.Stock,
		RequiresPrescription: input.RequiresPrescription,
		IsActive:             true,
		CreatedAt:            time.Now(),
		UpdatedAt:            time.Now(),
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, err
	}

	return product, nil
}

// UpdateProduct applies a partial update. Only fields present in update are
// touched; a new category must exist, a new price must be positive.
func (s *catalogService) UpdateProduct(ctx context.Context, id uuid.UUID, update *repository.ProductUpdate) (*domain.Product, error) {
	if update.Price != nil && !update.Price.IsPositive() {
		return nil, ErrInvalidPrice
	}
	if update.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *update.CategoryID); err != nil {
			return nil, err
		}
	}

	return s.productRepo.Update(ctx, id, update)
}

// UpdateStock sets a product's stock to an absolute, non-negative value
func (s *catalogService) UpdateStock(ctx context.Context, id uuid.UUID, stock int) (*domain.Product, error) {
	if stock < 0 {
		return nil, ErrInvalidStock
	}

	if err := s.productRepo.UpdateStock(ctx, id, stock); err != nil {
		return nil, err
	}

	return s.productRepo.FindByID(ctx, id)
}
