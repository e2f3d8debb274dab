// Package app assembles the services for one storage backend.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tillpoint/internal/config"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/idempotency"
	"tillpoint/internal/demo"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
	"tillpoint/internal/infrastructure/cache"
	"tillpoint/internal/infrastructure/numerator"
	"tillpoint/internal/infrastructure/storage/memory"
	"tillpoint/internal/infrastructure/storage/postgres"
	"tillpoint/internal/infrastructure/storage/postgres/catalog_repo"
	"tillpoint/internal/infrastructure/storage/postgres/client_repo"
	"tillpoint/internal/infrastructure/storage/postgres/inventory_repo"
	"tillpoint/internal/infrastructure/storage/postgres/sales_repo"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Container holds the wired services.
type Container struct {
	Stock       *stock.Service
	Variants    *variant.Service
	Sales       *sale.Service
	Idempotency idempotency.Store

	// Catalog is the in-memory catalog; nil for postgres.
	Catalog *catalog.Static
	// Clients is the in-memory company client register; nil for postgres.
	Clients *memory.ClientRegistry

	HealthChecks map[string]HealthCheck

	closers []func()
}

// Close releases background resources in reverse order.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

// NewMemory wires everything on the in-process store. Client activity is
// applied to the register directly.
func NewMemory(cfg *config.Config) *Container {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	static := catalog.NewStatic()
	auditLog := memory.NewAuditLog(store)
	clients := memory.NewClientRegistry(store)

	stockService := stock.NewService(memory.NewLotRepo(store), txm, auditLog)
	variants := variant.NewService(memory.NewVariantRepo(store), stockService, static, txm)
	sales := sale.NewService(
		memory.NewSaleRepo(store),
		saleitem.NewService(memory.NewItemRepo(store), txm),
		stockService,
		variants,
		static,
		clients,
		auditLog,
		memory.NewSequences(store),
		txm,
		cfg.SaleConfig(),
	)

	return &Container{
		Stock:        stockService,
		Variants:     variants,
		Sales:        sales,
		Idempotency:  memory.NewIdempotencyStore(cfg.IdempotencyTTL),
		Catalog:      static,
		Clients:      clients,
		HealthChecks: map[string]HealthCheck{},
	}
}

// LoadDemo fills a memory container with the demo company: catalog names,
// one variant per product and its stock lots.
func (c *Container) LoadDemo(ctx context.Context, companyID id.ID) (demo.Data, error) {
	if c.Catalog == nil {
		return demo.Data{}, errors.New("demo data needs the in-memory catalog")
	}
	data := demo.New(companyID)
	data.FillCatalog(c.Catalog)

	ctx = appctx.WithPrincipal(ctx, &appctx.Principal{CompanyID: companyID, UserID: data.Users[0].ID, Role: "seed"})
	if err := data.SeedInventory(ctx, c.Variants, time.Now().UTC()); err != nil {
		return demo.Data{}, fmt.Errorf("seed demo inventory: %w", err)
	}
	return data, nil
}

// NewPostgres wires everything on PostgreSQL. rdb may be nil, which disables
// the catalog cache. Client activity goes through the outbox.
func NewPostgres(ctx context.Context, cfg *config.Config, pool *postgres.Pool, rdb *redis.Client) (*Container, error) {
	txm := postgres.NewTxManager(pool)

	auditService, err := postgres.NewAuditService(txm)
	if err != nil {
		return nil, fmt.Errorf("audit service: %w", err)
	}

	c := &Container{
		HealthChecks: map[string]HealthCheck{"database": pool.Ping},
	}

	var reader catalog.Reader = catalog_repo.NewReader(txm)
	if rdb != nil {
		cached := cache.NewCatalogCache(reader, rdb, cfg.CatalogCacheTTL)
		reader = cached

		invalidator := cache.NewInvalidator(pool.Pool, cached)
		invalidator.Start(ctx)
		c.closers = append(c.closers, invalidator.Stop)
		c.HealthChecks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	numbers := numerator.New(func(ctx context.Context) numerator.Querier { return txm.GetQuerier(ctx) })
	tracker := client_repo.NewOutboxTracker(txm, postgres.NewOutboxPublisher(txm))

	c.Stock = stock.NewService(inventory_repo.NewLotRepo(txm), txm, auditService)
	c.Variants = variant.NewService(inventory_repo.NewVariantRepo(txm), c.Stock, reader, txm)
	c.Sales = sale.NewService(
		sales_repo.NewSaleRepo(txm),
		saleitem.NewService(sales_repo.NewItemRepo(txm), txm),
		c.Stock,
		c.Variants,
		reader,
		tracker,
		auditService,
		numbers,
		txm,
		cfg.SaleConfig(),
	)
	c.Idempotency = postgres.NewIdempotencyStore(txm, cfg.IdempotencyTTL)
	return c, nil
}
