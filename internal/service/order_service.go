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
	ErrInvalidOrderStatus = errors.New("unknown order status")
)

// CreateOrderInput holds the delivery details for a new order
type CreateOrderInput struct {
	UserID          uuid.UUID
	PaymentMethod   string
	DeliveryMethod  string
	DeliveryAddress string
	DeliveryPhone   string
	Notes           string
}

// OrderService defines the business logic for orders. Creation converts the
// user's cart into a persisted order atomically; everything after that is a
// read or a staff status overwrite.
type OrderService interface {
	Create(ctx context.Context, input CreateOrderInput) (*domain.Order, []*domain.OrderItem, error)
	GetByID(ctx context.Context, orderID uuid.UUID, ownerID *uuid.UUID) (*domain.Order, error)
	GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error)
	ListAll(ctx context.Context) ([]*domain.Order, error)
	ListByStatus(ctx context.Context, status string) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error)
}

type orderService struct {
	orderRepo repository.OrderRepository
}

// NewOrderService creates a new instance of OrderService
func NewOrderService(orderRepo repository.OrderRepository) OrderService {
	return &orderService{orderRepo: orderRepo}
}

// Create places an order from the user's cart. The total is computed from
// current prices inside the checkout transaction, never supplied by the
// caller. Fails with ErrEmptyCart, ErrInsufficientStock,
// ErrPrescriptionRequired or ErrInvalidPrescription; on any failure the cart,
// stock and order tables are unchanged.
func (s *orderService) Create(ctx context.Context, input CreateOrderInput) (*domain.Order, []*domain.OrderItem, error) {
	order := &domain.Order{
		ID:              uuid.New(),
		UserID:          input.UserID,
		Status:          domain.OrderStatusPending,
		PaymentMethod:   input.PaymentMethod,
		DeliveryMethod:  input.DeliveryMethod,
		DeliveryAddress: input.DeliveryAddress,
		DeliveryPhone:   input.DeliveryPhone,
		Notes:           input.Notes,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	items, err := s.orderRepo.CreateFromCart(ctx, order)
	if err != nil {
		return nil, nil, err
	}

	return order, items, nil
}

// GetByID returns an order. When ownerID is given, an order belonging to a
// different user is reported as not found; the caller cannot tell "absent"
// from "not yours".
func (s *orderService) GetByID(ctx context.Context, orderID uuid.UUID, ownerID *uuid.UUID) (*domain.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if ownerID != nil && order.UserID != *ownerID {
		return nil, repository.ErrOrderNotFound
	}

	return order, nil
}

// GetItems returns the items of an order
func (s *orderService) GetItems(ctx context.Context, orderID uuid.UUID) ([]*domain.OrderItem, error) {
	return s.orderRepo.ListItems(ctx, orderID)
}

// ListByUser returns the orders placed by a user
func (s *orderService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	return s.orderRepo.ListByUser(ctx, userID)
}

// ListAll returns every order
func (s *orderService) ListAll(ctx context.Context) ([]*domain.Order, error) {
	return s.orderRepo.ListAll(ctx)
}

// ListByStatus returns orders with the given status
func (s *orderService) ListByStatus(ctx context.Context, status string) ([]*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}
	return s.orderRepo.ListByStatus(ctx, status)
}

// UpdateStatus overwrites the order status. Any known status may follow any
// other; no transition graph is enforced.
func (s *orderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string) (*domain.Order, error) {
	if !domain.ValidOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order: %w", err)
	}

	return order, nil
}
