// Package main is the entry point for the tillpoint API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"tillpoint/internal/app"
	"tillpoint/internal/config"
	"tillpoint/internal/core/id"
	v1 "tillpoint/internal/infrastructure/http/v1"
	"tillpoint/internal/infrastructure/storage/postgres"
	"tillpoint/pkg/logger"
)

func main() {
	cfg, err := config.Load(".")
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	if err := id.Init(cfg.NodeID); err != nil {
		log.Fatalw("failed to init id generator", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Infow("starting tillpoint server", "storage", cfg.Storage, "stock_policy", cfg.StockPolicy)

	var services *app.Container
	switch cfg.Storage {
	case config.StorageMemory:
		services = app.NewMemory(cfg)
		if cfg.DemoData {
			companyID := id.ID(cfg.SeedCompanyID)
			if id.IsNil(companyID) {
				companyID = id.New()
			}
			if _, err := services.LoadDemo(ctx, companyID); err != nil {
				log.Fatalw("failed to load demo data", "error", err)
			}
			log.Infow("demo data loaded", "company_id", companyID)
		}
	default:
		poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
		if cfg.DBMaxConns > 0 {
			poolCfg.MaxConns = cfg.DBMaxConns
		}
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			log.Fatalw("failed to connect to database", "error", err)
		}
		defer pool.Close()
		log.Info("database connection established")

		var rdb *redis.Client
		if cfg.RedisAddr != "" {
			rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				log.Warnw("redis unreachable, catalog cache will fall back to the database", "error", err)
			}
		}

		services, err = app.NewPostgres(ctx, cfg, pool, rdb)
		if err != nil {
			log.Fatalw("failed to wire services", "error", err)
		}
	}
	defer services.Close()

	router := v1.NewRouter(v1.RouterConfig{
		Services:    services,
		Logger:      log,
		Development: cfg.Development(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
