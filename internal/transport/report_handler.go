package transport

import (
	"net/http"
	"time"

	"apteka/internal/middleware"
	"apteka/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// TopProductResponse represents one best-seller entry
type TopProductResponse struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	UnitsSold int     `json:"units_sold"`
	Revenue   float64 `json:"revenue"`
}

// SalesReportResponse represents a sales report
type SalesReportResponse struct {
	TotalRevenue      float64              `json:"total_revenue"`
	TotalOrders       int                  `json:"total_orders"`
	TotalProductsSold int                  `json:"total_products_sold"`
	PeriodStart       string               `json:"period_start"`
	PeriodEnd         string               `json:"period_end"`
	TopProducts       []TopProductResponse `json:"top_products"`
}

// InventoryReportResponse represents an inventory report
type InventoryReportResponse struct {
	TotalProducts int               `json:"total_products"`
	LowStock      []ProductResponse `json:"low_stock"`
	OutOfStock    []ProductResponse `json:"out_of_stock"`
}

// ReportHandler handles HTTP requests for staff reports
type ReportHandler struct {
	reportService service.ReportService
	logger        *zap.Logger
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(reportService service.ReportService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		logger:        logger,
	}
}

// RegisterRoutes registers all report routes
func (h *ReportHandler) RegisterRoutes(r chi.Router, authMiddleware, staffMiddleware func(http.Handler) http.Handler) {
	r.Route("/api/reports", func(r chi.Router) {
		r.Use(authMiddleware, staffMiddleware)

		r.Get("/sales", h.Sales)
		r.Get("/inventory", h.Inventory)
		r.Get("/customers", h.Customers)
	})
}

// Sales aggregates orders over [start, end). Both bounds are YYYY-MM-DD query
// parameters; the default period is the trailing 30 days.
func (h *ReportHandler) Sales(w http.ResponseWriter, r *http.Request) {
	end := time.Now()
	start := end.AddDate(0, 0, -30)

	if s := r.URL.Query().Get("start"); s != "" {
		parsed, err := time.Parse("2006-01-02", s)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
			return
		}
		start = parsed
	}
	if e := r.URL.Query().Get("end"); e != "" {
		parsed, err := time.Parse("2006-01-02", e)
		if err != nil {
			middleware.RespondWithError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
			return
		}
		end = parsed
	}
	if !end.After(start) {
		middleware.RespondWithError(w, http.StatusBadRequest, "end must be after start")
		return
	}

	report, err := h.reportService.Sales(r.Context(), start, end)
	if err != nil {
		h.logger.Error("Failed to build sales report", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build sales report")
		return
	}

	topProducts := make([]TopProductResponse, 0, len(report.TopProducts))
	for _, p := range report.TopProducts {
		topProducts = append(topProducts, TopProductResponse{
			ProductID: p.ProductID.String(),
			Name:      p.Name,
			UnitsSold: p.UnitsSold,
			Revenue:   p.Revenue.InexactFloat64(),
		})
	}

	middleware.RespondWithJSON(w, http.StatusOK, SalesReportResponse{
		TotalRevenue:      report.TotalRevenue.InexactFloat64(),
		TotalOrders:       report.TotalOrders,
		TotalProductsSold: report.TotalProductsSold,
		PeriodStart:       report.Period.Start.Format("2006-01-02"),
		PeriodEnd:         report.Period.End.Format("2006-01-02"),
		TopProducts:       topProducts,
	})
}

// Inventory reports current stock levels
func (h *ReportHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.Inventory(r.Context())
	if err != nil {
		h.logger.Error("Failed to build inventory report", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build inventory report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, InventoryReportResponse{
		TotalProducts: report.TotalProducts,
		LowStock:      toProductResponses(report.LowStock),
		OutOfStock:    toProductResponses(report.OutOfStock),
	})
}

// Customers reports the customer base, including the trailing three month
// retention rate
func (h *ReportHandler) Customers(w http.ResponseWriter, r *http.Request) {
	report, err := h.reportService.Customers(r.Context())
	if err != nil {
		h.logger.Error("Failed to build customer report", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to build customer report")
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, report)
}
