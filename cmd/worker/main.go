// Package main is the entry point for the tillpoint background worker.
// It relays the transactional outbox into the company client register and
// runs the periodic housekeeping jobs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"tillpoint/internal/config"
	"tillpoint/internal/core/id"
	"tillpoint/internal/infrastructure/storage/postgres"
	"tillpoint/internal/infrastructure/storage/postgres/client_repo"
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

	if cfg.Storage != config.StoragePostgres {
		log.Fatalw("worker requires postgres storage", "storage", cfg.Storage)
	}
	if err := id.Init(cfg.NodeID); err != nil {
		log.Fatalw("failed to init id generator", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info("starting tillpoint worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.DatabaseURL)
	if cfg.DBMaxConns > 0 {
		poolCfg.MaxConns = cfg.DBMaxConns
	}
	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txManager := postgres.NewTxManager(pool)

	router := postgres.OutboxRouter{
		client_repo.EventClientActivity: client_repo.NewActivityHandler(client_repo.NewRepo(txManager)),
	}
	relayCfg := postgres.DefaultRelayConfig()
	relayCfg.BatchSize = cfg.OutboxBatchSize
	relay := postgres.NewOutboxRelay(txManager, router, relayCfg)

	w := &Worker{
		relay:        relay,
		idempotency:  postgres.NewIdempotencyStore(txManager, cfg.IdempotencyTTL),
		pollInterval: cfg.OutboxPollInterval,
		retention:    cfg.OutboxRetention,
		lock:         noLock,
		log:          log.WithComponent("worker"),
		reportStats:  func(ctx context.Context) { postgres.LogPoolStats(ctx, pool.Pool) },
	}

	// Housekeeping is cluster-wide; with Redis only one worker runs it per tick.
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
		w.lock = redisLock(redislock.New(rdb))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.Run(ctx)
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down worker...")
	cancel()

	wg.Wait()
	log.Info("worker stopped")
}
