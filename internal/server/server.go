package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"apteka/internal/config"
	"apteka/internal/database"
	custommiddleware "apteka/internal/middleware"
	"apteka/internal/repository"
	"apteka/internal/service"
	"apteka/internal/transport"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	*http.Server
	config    *config.Config
	logger    *zap.Logger
	dbService database.Service
	redis     *redis.Client
}

func NewServer(cfg *config.Config, logger *zap.Logger, dbService database.Service) *Server {
	db := dbService.DB()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	router := chi.NewRouter()

	// Add basic middleware
	router.Use(custommiddleware.DefaultMiddlewareStack()...)
	router.Use(custommiddleware.CORSMiddleware(nil, cfg.Server.Env == "development"))
	router.Use(custommiddleware.LoggingMiddleware(logger))
	router.Use(custommiddleware.ErrorHandlingMiddleware(logger))
	router.Use(custommiddleware.RateLimitMiddleware(redisClient, custommiddleware.RateLimitConfig{
		RequestsPerWindow: 100,
		Window:            time.Minute,
		KeyPrefix:         "ratelimit",
	}, logger))

	// Health check endpoint
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(dbService.Health())
	})

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	productRepo := repository.NewProductRepository(db)
	prescriptionRepo := repository.NewPrescriptionRepository(db)
	cartRepo := repository.NewCartRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	consultationRepo := repository.NewConsultationRepository(db)
	reportRepo := repository.NewReportRepository(db)

	// Initialize services
	userService := service.NewUserService(userRepo, refreshTokenRepo, cfg.JWT.Secret)
	catalogService := service.NewCatalogService(productRepo, categoryRepo)
	prescriptionService := service.NewPrescriptionService(prescriptionRepo)
	cartService := service.NewCartService(cartRepo, productRepo, prescriptionRepo)
	orderService := service.NewOrderService(orderRepo)
	consultationService := service.NewConsultationService(consultationRepo)
	reportService := service.NewReportService(reportRepo)

	// Initialize handlers
	userHandler := transport.NewUserHandler(userService, logger)
	catalogHandler := transport.NewCatalogHandler(catalogService, logger)
	prescriptionHandler := transport.NewPrescriptionHandler(prescriptionService, logger)
	cartHandler := transport.NewCartHandler(cartService, logger)
	orderHandler := transport.NewOrderHandler(orderService, logger)
	consultationHandler := transport.NewConsultationHandler(consultationService, logger)
	reportHandler := transport.NewReportHandler(reportService, logger)

	// Create auth middleware
	authMiddleware := custommiddleware.AuthMiddleware(cfg.JWT.Secret, logger)
	staffMiddleware := custommiddleware.RequireStaff(logger)

	// Register routes
	userHandler.RegisterRoutes(router, authMiddleware)
	catalogHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)
	prescriptionHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)
	cartHandler.RegisterRoutes(router, authMiddleware)
	orderHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)
	consultationHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)
	reportHandler.RegisterRoutes(router, authMiddleware, staffMiddleware)

	server := &Server{
		Server: &http.Server{
			Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
			Handler:      router,
			IdleTimeout:  time.Minute,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		config:    cfg,
		logger:    logger,
		dbService: dbService,
		redis:     redisClient,
	}

	return server
}

func (s *Server) Close() error {
	s.logger.Info("Closing server resources")

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			s.logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}

	if s.dbService != nil {
		if err := s.dbService.Close(); err != nil {
			s.logger.Error("Failed to close database connection", zap.Error(err))
		}
	}

	s.logger.Sync()
	return nil
}
