package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"apteka/internal/domain"
	"apteka/internal/repository"
)

const (
	lowStockThreshold = 10
	topProductsLimit  = 10
	activityWindow    = 3 * 30 * 24 * time.Hour
)

// ReportService composes the read-only aggregation reports
type ReportService interface {
	Sales(ctx context.Context, start, end time.Time) (*domain.SalesReport, error)
	Inventory(ctx context.Context) (*domain.InventoryReport, error)
	Customers(ctx context.Context) (*domain.CustomerReport, error)
}

type reportService struct {
	reportRepo repository.ReportRepository
}

// NewReportService creates a new instance of ReportService
func NewReportService(reportRepo repository.ReportRepository) ReportService {
	return &reportService{reportRepo: reportRepo}
}

// Sales aggregates orders over [start, end)
func (s *reportService) Sales(ctx context.Context, start, end time.Time) (*domain.SalesReport, error) {
	revenue, orders, productsSold, err := s.reportRepo.SalesTotals(ctx, start, end)
	if err != nil {
		return nil, err
	}

	top, err := s.reportRepo.TopProducts(ctx, start, end, topProductsLimit)
	if err != nil {
		return nil, err
	}

	return &domain.SalesReport{
		TotalRevenue:      revenue,
		TotalOrders:       orders,
		TotalProductsSold: productsSold,
		Period:            domain.ReportPeriod{Start: start, End: end},
		TopProducts:       top,
	}, nil
}

// Inventory summarizes current stock: low stock is 1..10 units, out of stock
// is exactly zero
func (s *reportService) Inventory(ctx context.Context) (*domain.InventoryReport, error) {
	total, err := s.reportRepo.CountProducts(ctx)
	if err != nil {
		return nil, err
	}

	low, err := s.reportRepo.ProductsWithStockBetween(ctx, 1, lowStockThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to load low stock products: %w", err)
	}

	out, err := s.reportRepo.ProductsWithStockBetween(ctx, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load out of stock products: %w", err)
	}

	return &domain.InventoryReport{
		TotalProducts: total,
		LowStock:      low,
		OutOfStock:    out,
	}, nil
}

// Customers summarizes the customer base. The retention rate is the share of
// customers with at least one order in the trailing three months, as a
// percentage rounded to two decimals; zero customers yields a zero rate.
func (s *reportService) Customers(ctx context.Context) (*domain.CustomerReport, error) {
	now := time.Now()

	total, err := s.reportRepo.CountCustomers(ctx)
	if err != nil {
		return nil, err
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	newThisMonth, err := s.reportRepo.CountCustomersCreatedSince(ctx, monthStart)
	if err != nil {
		return nil, err
	}

	active, err := s.reportRepo.CountCustomersWithOrdersSince(ctx, now.Add(-activityWindow))
	if err != nil {
		return nil, err
	}

	return &domain.CustomerReport{
		TotalCustomers:    total,
		NewThisMonth:      newThisMonth,
		ActiveLast3Months: active,
		RetentionRate:     RetentionRate(active, total),
	}, nil
}

// RetentionRate returns active/total as a percentage rounded to two decimals
func RetentionRate(active, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(active)/float64(total)*100*100) / 100
}
