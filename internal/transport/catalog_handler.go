package transport

import (
	"net/http"
	"strconv"
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

// CreateCategoryRequest represents the category creation payload
type CreateCategoryRequest struct {
	Name                   string  `json:"name" validate:"required"`
	Description            string  `json:"description"`
	ParentID               *string `json:"parent_id"`
	IsPrescriptionRequired bool    `json:"is_prescription_required"`
}

// CategoryResponse represents category data
type CategoryResponse struct {
	ID                     string  `json:"id"`
	Name                   string  `json:"name"`
	Description            string  `json:"description"`
	ParentID               *string `json:"parent_id,omitempty"`
	IsPrescriptionRequired bool    `json:"is_prescription_required"`
	CreatedAt              string  `json:"created_at"`
}

func toCategoryResponse(c *domain.Category) CategoryResponse {
	resp := CategoryResponse{
		ID:                     c.ID.String(),
		Name:                   c.Name,
		Description:            c.Description,
		IsPrescriptionRequired: c.IsPrescriptionRequired,
		CreatedAt:              c.CreatedAt.Format(time.RFC3339),
	}
	if c.ParentID != nil {
		parent := c.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

// CreateProductRequest represents the product creation payload. Price crosses
// the API boundary as a floating-point number.
type CreateProductRequest struct {
	Name                 string  `json:"name" validate:"required"`
	Description          string  `json:"description"`
	Price                float64 `json:"price" validate:"required,gt=0"`
	CategoryID           string  `json:"category_id" validate:"required,uuid"`
	Manufacturer         string  `json:"manufacturer"`
	ImageURL             string  `json:"image_url"`
	Stock                int     `json:"stock" validate:"gte=0"`
	RequiresPrescription bool    `json:"requires_prescription"`
}

// UpdateProductRequest represents a partial product update; only the fields
// present in the body are applied
type UpdateProductRequest struct {
	Name                 *string  `json:"name"`
	Description          *string  `json:"description"`
	Price                *float64 `json:"price"`
	CategoryID           *string  `json:"category_id"`
	Manufacturer         *string  `json:"manufacturer"`
	ImageURL             *string  `json:"image_url"`
	RequiresPrescription *bool    `json:"requires_prescription"`
	IsActive             *bool    `json:"is_active"`
}

// UpdateStockRequest represents an absolute stock update
type UpdateStockRequest struct {
	Stock int `json:"stock" validate:"gte=0"`
}

// ProductResponse represents product data
type ProductResponse struct {
	ID                   string  `json:"id"`
	Name                 string  `json:"name"`
	Description          string  `json:"description"`
	Price                float64 `json:"price"`
	CategoryID           string  `json:"category_id"`
	Manufacturer         string  `json:"manufacturer"`
	ImageURL             string  `json:"image_url"`
	Stock                int     `json:"stock"`
	RequiresPrescription bool    `json:"requires_prescription"`
	IsActive             bool    `json:"is_active"`
	CreatedAt            string  `json:"created_at"`
	UpdatedAt            string  `json:"updated_at"`
}

// ProductSearchResponse is one page of search results plus the total match count
type ProductSearchResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
}

func toProductResponse(p *domain.Product) ProductResponse {
	return ProductResponse{
		ID:                   p.ID.String(),
		Name:                 p.Name,
		Description:          p.Description,
		Price:                p.Price.InexactFloat64(),
		CategoryID:           p.CategoryID.String(),
		Manufacturer:         p.Manufacturer,
		ImageURL:             p.ImageURL,
		Stock:                p.Stock,
		RequiresPrescription: p.RequiresPrescription,
		IsActive:             p.IsActive,
		CreatedAt:            p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:            p.UpdatedAt.Format(time.RFC3339),
	}
}

func toProductResponses(products []*domain.Product) []ProductResponse {
	responses := make([]ProductResponse, 0, len(products))
	for _, p := range products {
		responses = append(responses, toProductResponse(p))
	}
	return responses
}

// CatalogHandler handles HTTP requests for products and categories
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

// RegisterRoutes registers all catalog routes
func (h *CatalogHandler) RegisterRoutes(r chi.Router, authMiddleware, staffMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/categories", func(r chi.Router) {
		r.Get("/", h.ListCategories)
		r.Get("/{id}", h.GetCategory)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, staffMiddleware)
			r.Post("/", h.CreateCategory)
		})
	})

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.Get("/search", h.SearchProducts)
		r.Get("/{id}", h.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware, staffMiddleware)
			r.Post("/", h.CreateProduct)
			r.Put("/{id}", h.UpdateProduct)
			r.Patch("/{id}/stock", h.UpdateStock)
		})
	})
}

// ListCategories returns all categories
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalogService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	responses := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		responses = append(responses, toCategoryResponse(c))
	}

	middleware.RespondWithJSON(w, http.StatusOK, responses)
}

// GetCategory returns a category by ID, or null when it does not exist
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	category, err := h.catalogService.GetCategory(r.Context(), id)
	if err != nil {
		if err == repository.ErrCategoryNotFound {
			middleware.RespondWithJSON(w, http.StatusOK, nil)
			return
		}
		h.logger.Error("Failed to get category", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get category")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toCategoryResponse(category))
}

// CreateCategory creates a category
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req CreateCategoryRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	input := service.CreateCategoryInput{
		Name:                   req.Name,
		Description:            req.Description,
		IsPrescriptionRequired: req.IsPrescriptionRequired,
	}
	if req.ParentID != nil {
		parentID, err := uuid.Parse(*req.ParentID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid parent ID")
			return
		}
		input.ParentID = &parentID
	}

	category, err := h.catalogService.CreateCategory(r.Context(), input)
	if err != nil {
		switch err {
		case service.ErrInvalidParent:
			middleware.RespondWithError(w, http.StatusBadRequest, "parent category does not exist")
		case repository.ErrCategoryAlreadyExists:
			middleware.RespondWithError(w, http.StatusConflict, "category with this name already exists")
		default:
			h.logger.Error("Failed to create category", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create category")
		}
		return
	}

	h.logger.Info("Category created", zap.String("category_id", category.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toCategoryResponse(category))
}

// ListProducts returns all products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalogService.ListProducts(r.Context())
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponses(products))
}

// GetProduct returns a product by ID, or null when it does not exist
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	product, err := h.catalogService.GetProduct(r.Context(), id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			middleware.RespondWithJSON(w, http.StatusOK, nil)
			return
		}
		h.logger.Error("Failed to get product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// SearchProducts applies the AND-combination of the optional query filters
// and returns one page plus the total match count
func (h *CatalogHandler) SearchProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := repository.ProductFilter{Limit: 20}

	if q := query.Get("query"); q != "" {
		filter.Query = &q
	}
	if c := query.Get("category_id"); c != "" {
		categoryID, err := uuid.Parse(c)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
			return
		}
		filter.CategoryID = &categoryID
	}
	if rp := query.Get("requires_prescription"); rp != "" {
		requires, err := strconv.ParseBool(rp)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid requires_prescription value")
			return
		}
		filter.RequiresPrescription = &requires
	}
	if mp := query.Get("min_price"); mp != "" {
		minPrice, err := decimal.NewFromString(mp)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid min_price value")
			return
		}
		filter.MinPrice = &minPrice
	}
	if mp := query.Get("max_price"); mp != "" {
		maxPrice, err := decimal.NewFromString(mp)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid max_price value")
			return
		}
		filter.MaxPrice = &maxPrice
	}
	if m := query.Get("manufacturer"); m != "" {
		filter.Manufacturer = &m
	}
	if l := query.Get("limit"); l != "" {
		limit, err := strconv.Atoi(l)
		if err != nil || limit <= 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid limit value")
			return
		}
		filter.Limit = limit
	}
	if o := query.Get("offset"); o != "" {
		offset, err := strconv.Atoi(o)
		if err != nil || offset < 0 {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid offset value")
			return
		}
		filter.Offset = offset
	}

	products, total, err := h.catalogService.SearchProducts(r.Context(), filter)
	if err != nil {
		h.logger.Error("Product search failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductSearchResponse{
		Products: toProductResponses(products),
		Total:    total,
	})
}

// CreateProduct creates a product
func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest

	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	categoryID, err := uuid.Parse(req.CategoryID)
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
		return
	}

	product, err := h.catalogService.CreateProduct(r.Context(), service.CreateProductInput{
		Name:                 req.Name,
		Description:          req.Description,
		Price:                decimal.NewFromFloat(req.Price),
		CategoryID:           categoryID,
		Manufacturer:         req.Manufacturer,
		ImageURL:             req.ImageURL,
		Stock:                req.Stock,
		RequiresPrescription: req.RequiresPrescription,
	})
	if err != nil {
		switch err {
		case repository.ErrCategoryNotFound:
			middleware.RespondWithError(w, http.StatusBadRequest, "category does not exist")
		case service.ErrInvalidPrice:
			middleware.RespondWithError(w, http.StatusBadRequest, "price must be positive")
		default:
			h.logger.Error("Failed to create product", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		}
		return
	}

	h.logger.Info("Product created", zap.String("product_id", product.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(product))
}

// UpdateProduct applies a partial update to a product
func (h *CatalogHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req UpdateProductRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	update := &repository.ProductUpdate{
		Name:                 req.Name,
		Description:          req.Description,
		Manufacturer:         req.Manufacturer,
		ImageURL:             req.ImageURL,
		RequiresPrescription: req.RequiresPrescription,
		IsActive:             req.IsActive,
	}
	if req.Price != nil {
		price := decimal.NewFromFloat(*req.Price)
		update.Price = &price
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "invalid category ID")
			return
		}
		update.CategoryID = &categoryID
	}

	product, err := h.catalogService.UpdateProduct(r.Context(), id, update)
	if err != nil {
		switch err {
		case repository.ErrProductNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		case repository.ErrCategoryNotFound:
			middleware.RespondWithError(w, http.StatusBadRequest, "category does not exist")
		case service.ErrInvalidPrice:
			middleware.RespondWithError(w, http.StatusBadRequest, "price must be positive")
		default:
			h.logger.Error("Failed to update product", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update product")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}

// UpdateStock sets a product's stock to an absolute value
func (h *CatalogHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req UpdateStockRequest
	if err := middleware.DecodeAndValidate(r, &req); err != nil {
		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return
		}
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalogService.UpdateStock(r.Context(), id, req.Stock)
	if err != nil {
		switch err {
		case repository.ErrProductNotFound:
			middleware.RespondWithError(w, http.StatusNotFound, "product not found")
		case service.ErrInvalidStock:
			middleware.RespondWithError(w, http.StatusBadRequest, "stock must not be negative")
		default:
			h.logger.Error("Failed to update stock", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to update stock")
		}
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, toProductResponse(product))
}
