package transport

import (
	"net/http"
	"time"

	"apteka/internal/domain"
	"apteka/internal/middleware"
	"apteka/internal/repository"
	"apteka/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateOrderRequest carries the delivery details of a checkout. The items
// and the total come from the caller's cart, never from the body.
type CreateOrderRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"required"`
	DeliveryMethod  string `json:"delivery_method" validate:"required"`
	DeliveryAddress string `json:"delivery_address" validate:"required"`
	DeliveryPhone   string `json:"delivery_phone" validate:"required"`
	Notes           string `json:"notes"`
}

// UpdateOrderStatusRequest represents a staff status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderItemResponse represents one snapshotted order line
type OrderItemResponse struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"product_id"`
	Quantity       int     `json:"quantity"`
	UnitPrice      float64 `json:"unit_price"`
	Subtotal       float64 `json:"subtotal"`
	PrescriptionID *string `json:"prescription_id,omitempty"`
}

// OrderResponse represents order data
type OrderResponse struct {
	ID                string              `json:"id"`
	UserID            string              `json:"user_id"`
	TotalAmount       float64             `json:"total_amount"`
	Status            string              `json:"status"`
	PaymentMethod     string              `json:"payment_method"`
	DeliveryMethod    string              `json:"delivery_method"`
	DeliveryAddress   string              `json:"delivery_address"`
	DeliveryPhone     string              `json:"delivery_phone"`
	Notes             string              `json:"notes,omitempty"`
	EstimatedDelivery *string             `json:"estimated_delivery,omitempty"`
	Items             []OrderItemResponse `json:"items,omitempty"`
	CreatedAt         string              `json:"created_at"`
	UpdatedAt         string              `json:"updated_at"`
}

func toOrderItemResponse(item *domain.OrderItem) OrderItemResponse {
	resp := OrderItemResponse{
		ID:        item.ID.String(),
		ProductID: item.ProductID.String(),
		Quantity:  item.Quantity,
		UnitPrice: item.UnitPrice.InexactFloat64(),
		Subtotal:  item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))).InexactFloat64(),
	}
	if item.PrescriptionID != nil {
		prescriptionID := item.PrescriptionID.String()
		resp.PrescriptionID = &prescriptionID
	}
	return resp
}

func toOrderItemResponses(items []*domain.OrderItem) []OrderItemResponse {
	responses := make([]OrderItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toOrderItemResponse(item))
	}
	return responses
}

func toOrderResponse(order *domain.Order, items []*domain.OrderItem) OrderResponse {
	resp := OrderResponse{
		ID:              order.ID.String(),
		UserID:          order.UserID.String(),
		TotalAmount:     order.TotalAmount.InexactFloat64(),
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		DeliveryMethod:  order.DeliveryMethod,
		DeliveryAddress: order.DeliveryAddress,
		DeliveryPhone:   order.DeliveryPhone,
		Notes:           order.Notes,
		CreatedAt:       order.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       order.UpdatedAt.Format(time.RFC3339),
	}
	if order.EstimatedDelivery != nil {
		estimated := order.EstimatedDelivery.Format(time.RFC3339)
		resp.EstimatedDelivery = &estimated
	}
	if items != nil {
		resp.Items = toOrderItemResponses(items)
	}
	return resp
}

func toOrderResponses(orders []*domain.Order) []OrderResponse {
	responses := make([]OrderResponse, 0, len(orders))
	for _, order := range orders {
		responses = append(responses, toOrderResponse(order, nil))
	}
	return responses
}

// OrderHandler handles HTTP requests for orders
type OrderHandler struct {
	orderService service.OrderService
	logger       *zap.Logger
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(orderService service.OrderService, logger *zap.Logger) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
		logger:       logger,
	}
}

// RegisterRoutes registers all order routes
func (h *OrderHandler) RegisterRoutes(r chi.Router, authMiddleware, staffMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/orders", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Post("/", h.Create)
		r.Get("/", h.ListMine)
		r.Get("/{id}", h.GetByID)
		r.Get("/{id}/items", h.GetItems)

		r.Group(func(r chi.Router) {
			r.Use(staffMiddleware)
			r.Get("/all", h.ListAll)
			r.Put("/{id}/status", h.UpdateStatus)
		})
	})
}

// Create converts the caller's cart into an order. Stock checks, prescription
// checks, the total and the stock decrement all happen in one transaction.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateOrderRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, items, err := h.orderService.Create(r.Context(), service.CreateOrderInput{
		UserID:          userID,
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		DeliveryPhone:   req.DeliveryPhone,
		Notes:           req.Notes,
	})
	if err != nil {
		switch err {
		case repository.ErrEmptyCart:
			middleware.RespondWithError(w, http.StatusBadRequest, "cart is empty")
		case repository.ErrInsufficientStock:
			middleware.RespondWithError(w, http.StatusConflict, "insufficient stock")
		case repository.ErrPrescriptionRequired:
			middleware.RespondWithError(w, http.StatusBadRequest, "a product in the cart requires a prescription")
		case repository.ErrInvalidPrescription:
			middleware.RespondWithError(w, http.StatusBadRequest, "prescription is not valid for this purchase")
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create order")
		}
		return
	}

	h.logger.Info("Order created",
		zap.String("order_id", order.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("total", order.TotalAmount.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toOrderResponse(order, items))
}

// ListMine returns the caller's orders, newest first
func (h *OrderHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orders, err := h.orderService.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponses(orders))
}

// GetByID returns one order. Customers only see their own; staff see any.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	ownerID := &userID
	if isStaff(r) {
		ownerID = nil
	}

	order, err := h.orderService.GetByID(r.Context(), orderID, ownerID)
	if err != nil {
		if err == repository.ErrOrderNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to get order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	items, err := h.orderService.GetItems(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to get order items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order, items))
}

// GetItems returns the snapshotted lines of one order
func (h *OrderHandler) GetItems(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	ownerID := &userID
	if isStaff(r) {
		ownerID = nil
	}

	if _, err := h.orderService.GetByID(r.Context(), orderID, ownerID); err != nil {
		if err == repository.ErrOrderNotFound {
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.Error("Failed to get order", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	items, err := h.orderService.GetItems(r.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to get order items", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get order items")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderItemResponses(items))
}

// ListAll returns every order, optionally filtered by status
func (h *OrderHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	var orders []*domain.Order
	var err error

	if status := r.URL.Query().Get("status"); status != "" {
		orders, err = h.orderService.ListByStatus(r.Context(), status)
	} else {
		orders, err = h.orderService.ListAll(r.Context())
	}
	if err != nil {
		if err == service.ErrInvalidOrderStatus {
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
			return
		}
		h.logger.Error("Failed to list orders", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponses(orders))
}

// UpdateStatus overwrites an order's status with any recognized value
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req UpdateOrderStatusRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orderService.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		switch err {
		case repository.ErrOrderNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "order not found")
		case service.ErrInvalidOrderStatus:
			middleware.RespondWithError(w, http.StatusBadRequest, "unknown order status")
		default:
			h.logger.Error("Failed to update order status", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update order status")
		}
		return
	}

	h.logger.Info("Order status updated",
		zap.String("order_id", orderID.String()),
		zap.String("status", req.Status))
	middleware.RespondWithJSON(w, http.StatusOK, toOrderResponse(order, nil))
}
