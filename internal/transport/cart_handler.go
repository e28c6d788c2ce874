package transport

import (
	"net/http"
	"time"

	"apteka/internal/domain"
	"apteka/internal/middleware"
	"apteka/internal/repository"
	"apteka/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AddCartItemRequest represents the add-to-cart payload
type AddCartItemRequest struct {
	ProductID      string  `json:"product_id" validate:"required,uuid"`
	Quantity       int     `json:"quantity" validate:"required,gt=0"`
	PrescriptionID *string `json:"prescription_id"`
}

// UpdateCartItemRequest represents a quantity change for a cart line
type UpdateCartItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

// CartItemResponse represents a bare cart item
type CartItemResponse struct {
	ID             string  `json:"id"`
	ProductID      string  `json:"product_id"`
	Quantity       int     `json:"quantity"`
	PrescriptionID *string `json:"prescription_id,omitempty"`
	CreatedAt      string  `json:"created_at"`
}

// CartLineResponse represents a cart item joined with its product's current state
type CartLineResponse struct {
	CartItemResponse
	ProductName          string  `json:"product_name"`
	Price                float64 `json:"price"`
	Stock                int     `json:"stock"`
	RequiresPrescription bool    `json:"requires_prescription"`
	Subtotal             float64 `json:"subtotal"`
}

func toCartItemResponse(item *domain.CartItem) CartItemResponse {
	resp := CartItemResponse{
		ID:        item.ID.String(),
		ProductID: item.ProductID.String(),
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt.Format(time.RFC3339),
	}
	if item.PrescriptionID != nil {
		prescriptionID := item.PrescriptionID.String()
		resp.PrescriptionID = &prescriptionID
	}
	return resp
}

func toCartLineResponse(line *domain.CartLine) CartLineResponse {
	return CartLineResponse{
		CartItemResponse:     toCartItemResponse(&line.CartItem),
		ProductName:          line.ProductName,
		Price:                line.Price.InexactFloat64(),
		Stock:                line.Stock,
		RequiresPrescription: line.RequiresPrescription,
		Subtotal:             line.Price.Mul(decimal.NewFromInt(int64(line.Quantity))).InexactFloat64(),
	}
}

// CartHandler handles HTTP requests for the shopping cart
type CartHandler struct {
	cartService service.CartService
	logger      *zap.Logger
}

// NewCartHandler creates a new CartHandler
func NewCartHandler(cartService service.CartService, logger *zap.Logger) *CartHandler {
	return &CartHandler{
		cartService: cartService,
		logger:      logger,
	}
}

// RegisterRoutes registers all cart routes
func (h *CartHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/cart", func(r chi.Router) {
		r.Use(authMiddleware)

		r.Get("/", h.GetCart)
		r.Post("/items", h.AddItem)
		r.Put("/items/{id}", h.UpdateItem)
		r.Delete("/items/{id}", h.RemoveItem)
		r.Delete("/", h.Clear)
	})
}

// GetCart returns the caller's cart lines
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	lines, err := h.cartService.GetItems(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get cart")
		return
	}

	responses := make([]CartLineResponse, 0, len(lines))
	for _, line := range lines {
		responses = append(responses, toCartLineResponse(line))
	}

	middleware.RespondWithJSON(w, http.StatusOK, responses)
}

// AddItem adds a product to the cart, merging with an existing line for the
// same product
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req AddCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var prescriptionID *uuid.UUID
	if req.PrescriptionID != nil {
		parsed, err := uuid.Parse(*req.PrescriptionID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid prescription ID")
			return
		}
		prescriptionID = &parsed
	}

	item, err := h.cartService.AddItem(r.Context(), userID, productID, req.Quantity, prescriptionID)
	if err != nil {
		h.respondCartError(w, err, "failed to add cart item")
		return
	}

	h.logger.Info("Cart item added",
		zap.String("user_id", userID.String()),
		zap.String("product_id", productID.String()),
		zap.Int("quantity", req.Quantity))
	middleware.RespondWithJSON(w, http.StatusCreated, toCartItemResponse(item))
}

// UpdateItem sets a cart line to an absolute quantity
func (h *CartHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item ID")
		return
	}

	var req UpdateCartItemRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	line, err := h.cartService.UpdateItem(r.Context(), userID, itemID, req.Quantity)
	if err != nil {
		h.respondCartError(w, err, "failed to update cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toCartLineResponse(line))
}

// RemoveItem deletes a cart line
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	itemID, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid cart item ID")
		return
	}

	if err := h.cartService.RemoveItem(r.Context(), userID, itemID); err != nil {
		h.respondCartError(w, err, "failed to remove cart item")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "item removed"})
}

// Clear removes every line from the caller's cart
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, err := currentUserID(r)
	if err != nil {
		middleware.RespondWithError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := h.cartService.Clear(r.Context(), userID); err != nil {
		h.logger.Error("Failed to clear cart", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to clear cart")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}

func (h *CartHandler) respondCartError(w http.ResponseWriter, err error, fallback string) {
	switch err {
	case repository.ErrProductNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "product not found")
	case repository.ErrCartItemNotFound:
		middleware.RespondWithError(w, http.StatusNotFound, "cart item not found")
	case service.ErrProductInactive:
		middleware.RespondWithError(w, http.StatusBadRequest, "product is not available")
	case service.ErrInvalidQuantity:
		middleware.RespondWithError(w, http.StatusBadRequest, "quantity must be positive")
	case repository.ErrInsufficientStock:
		middleware.RespondWithError(w, http.StatusConflict, "insufficient stock")
	case repository.ErrPrescriptionRequired:
		middleware.RespondWithError(w, http.StatusBadRequest, "product requires a prescription")
	case repository.ErrInvalidPrescription:
		middleware.RespondWithError(w, http.StatusBadRequest, "prescription is not valid for this purchase")
	default:
		h.logger.Error("Cart operation failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, fallback)
	}
}
