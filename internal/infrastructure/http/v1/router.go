// Package v1 provides HTTP API version 1.
package v1

import (
	"context"

	"github.com/gin-gonic/gin"

	"tillpoint/internal/app"
	"tillpoint/internal/infrastructure/http/v1/handlers"
	"tillpoint/internal/infrastructure/http/v1/middleware"
	"tillpoint/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Services *app.Container

	// Logger for request logging
	Logger *logger.Logger

	// Development switches gin to debug mode.
	Development bool
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Default()
	}

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	checks := make(map[string]handlers.Pinger, len(cfg.Services.HealthChecks))
	for name, check := range cfg.Services.HealthChecks {
		checks[name] = handlers.PingerFunc(func(ctx context.Context) error { return check(ctx) })
	}
	healthHandler := handlers.NewHealthHandler(checks)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	api := router.Group("/api/v1")
	api.Use(middleware.Principal())
	api.Use(middleware.Idempotency(cfg.Services.Idempotency))

	base := handlers.NewBaseHandler()
	registerSaleRoutes(api, base, cfg.Services)
	registerInventoryRoutes(api, base, cfg.Services)

	return router
}

func registerSaleRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s *app.Container) {
	handlers.NewSaleHandler(base, s.Sales).RegisterRoutes(rg.Group("/sales"))
}

func registerInventoryRoutes(rg *gin.RouterGroup, base *handlers.BaseHandler, s *app.Container) {
	products := rg.Group("/company-products")
	variants := rg.Group("/variants")
	lots := rg.Group("/stock-lots")

	handlers.NewVariantHandler(base, s.Variants).RegisterRoutes(products, variants)
	handlers.NewStockHandler(base, s.Stock, s.Variants).RegisterRoutes(variants, lots)
}
