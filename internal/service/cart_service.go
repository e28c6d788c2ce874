package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"apteka/internal/domain"
	"apteka/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrProductInactive = errors.New("product is not available")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// CartService defines the business logic for the shopping cart. Stock checks
// here are point-in-time reads; the authoritative check happens again under
// lock at order creation.
type CartService interface {
	GetItems(ctx context.Context, userID uuid.UUID) ([]*domain.CartLine, error)
	AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, prescriptionID *uuid.UUID) (*domain.CartItem, error)
	UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartLine, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	Clear(ctx context.Context, userID uuid.UUID) error
}

type cartService struct {
	cartRepo         repository.CartRepository
	productRepo      repository.ProductRepository
	prescriptionRepo repository.PrescriptionRepository
}

// NewCartService creates a new instance of CartService
func NewCartService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	prescriptionRepo repository.PrescriptionRepository,
) CartService {
	return &cartService{
		cartRepo:         cartRepo,
		productRepo:      productRepo,
		prescriptionRepo: prescriptionRepo,
	}
}

// GetItems returns the user's cart joined with current product data
func (s *cartService) GetItems(ctx context.Context, userID uuid.UUID) ([]*domain.CartLine, error) {
	return s.cartRepo.ListByUser(ctx, userID)
}

// AddItem puts a product in the cart. Adding a product already in the cart
// increments the existing line instead of creating a second one, so the cart
// never holds more than one row per (user, product) pair.
func (s *cartService) AddItem(ctx context.Context, userID, productID uuid.UUID, quantity int, prescriptionID *uuid.UUID) (*domain.CartItem, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	if product.RequiresPrescription && prescriptionID == nil {
		return nil, repository.ErrPrescriptionRequired
	}
	if prescriptionID != nil {
		prescription, err := s.prescriptionRepo.FindByID(ctx, *prescriptionID)
		if err != nil {
			if err == repository.ErrPrescriptionNotFound {
				return nil, repository.ErrInvalidPrescription
			}
			return nil, err
		}
		if prescription.UserID != userID {
			return nil, repository.ErrInvalidPrescription
		}
	}

	existing, err := s.cartRepo.FindByUserAndProduct(ctx, userID, productID)
	if err != nil && err != repository.ErrCartItemNotFound {
		return nil, err
	}

	requested := quantity
	if existing != nil {
		requested += existing.Quantity
	}
	if requested > product.Stock {
		return nil, repository.ErrInsufficientStock
	}

	if existing != nil {
		if err := s.cartRepo.UpdateQuantity(ctx, userID, existing.ID, requested); err != nil {
			return nil, fmt.Errorf("failed to increment cart item: %w", err)
		}
		existing.Quantity = requested
		return existing, nil
	}

	item := &domain.CartItem{
		ID:             uuid.New(),
		UserID:         userID,
		ProductID:      productID,
		Quantity:       quantity,
		PrescriptionID: prescriptionID,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := s.cartRepo.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add cart item: %w", err)
	}

	return item, nil
}

// UpdateItem sets the quantity of a cart line owned by the user. Stock is
// re-read at call time.
func (s *cartService) UpdateItem(ctx context.Context, userID, itemID uuid.UUID, quantity int) (*domain.CartLine, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	line, err := s.cartRepo.FindLine(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if quantity > line.Stock {
		return nil, repository.ErrInsufficientStock
	}

	if err := s.cartRepo.UpdateQuantity(ctx, userID, itemID, quantity); err != nil {
		return nil, err
	}

	line.Quantity = quantity
	return line, nil
}

// RemoveItem deletes a cart line owned by the user
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	return s.cartRepo.Remove(ctx, userID, itemID)
}

// Clear deletes every cart line for the user
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.cartRepo.Clear(ctx, userID)
}
