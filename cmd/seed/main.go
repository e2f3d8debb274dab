// Package main provides a CLI tool for seeding the database with demo data:
// catalog rows are bulk-loaded, then variants and stock lots go through the
// inventory services.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"tillpoint/internal/app"
	"tillpoint/internal/config"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	"tillpoint/internal/demo"
	"tillpoint/internal/infrastructure/storage/postgres"
	"tillpoint/pkg/logger"
)

func main() {
	log, err := logger.New(logger.Config{
		Level:       "info",
		Development: true,
	})
	if err != nil {
		fmt.Printf("failed to create logger: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalw("failed to load config", "error", err)
	}
	if cfg.Storage != config.StoragePostgres {
		log.Fatalw("seeding requires postgres storage", "storage", cfg.Storage)
	}
	if err := id.Init(cfg.NodeID); err != nil {
		log.Fatalw("failed to init id generator", "error", err)
	}

	ctx := logger.WithLogger(context.Background(), log)

	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	log.Info("connected to database")

	var seeded bool
	if err := pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM company_products)`).Scan(&seeded); err != nil {
		log.Fatalw("failed to check existing data", "error", err)
	}
	if seeded {
		log.Info("catalog already has data, nothing to do")
		return
	}

	companyID := id.ID(cfg.SeedCompanyID)
	if id.IsNil(companyID) {
		companyID = id.New()
	}
	data := demo.New(companyID)

	txManager := postgres.NewTxManager(pool)
	if err := seedCatalog(ctx, txManager, data, log); err != nil {
		log.Fatalw("failed to seed catalog", "error", err)
	}

	services, err := app.NewPostgres(ctx, cfg, pool, nil)
	if err != nil {
		log.Fatalw("failed to wire services", "error", err)
	}
	defer services.Close()

	ctx = appctx.WithPrincipal(ctx, &appctx.Principal{CompanyID: companyID, UserID: data.Users[0].ID, Role: "seed"})
	if err := data.SeedInventory(ctx, services.Variants, time.Now().UTC()); err != nil {
		log.Fatalw("failed to seed inventory", "error", err)
	}

	log.Infow("seeding completed successfully", "company_id", companyID)
}

func seedCatalog(ctx context.Context, txManager *postgres.TxManager, data demo.Data, log *logger.Logger) error {
	inserter := postgres.NewBatchInserter(txManager)
	return txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		steps := []struct {
			table string
			copy  func(ctx context.Context) (int64, error)
		}{
			{"users", func(ctx context.Context) (int64, error) {
				return postgres.CopyStructs(ctx, inserter, "users", data.Users)
			}},
			{"services", func(ctx context.Context) (int64, error) {
				return postgres.CopyStructs(ctx, inserter, "services", data.Services)
			}},
			{"system_variants", func(ctx context.Context) (int64, error) {
				return postgres.CopyStructs(ctx, inserter, "system_variants", data.SystemVariants())
			}},
			{"company_products", func(ctx context.Context) (int64, error) {
				return postgres.CopyStructs(ctx, inserter, "company_products", data.CompanyProducts())
			}},
		}
		for _, step := range steps {
			n, err := step.copy(ctx)
			if err != nil {
				return err
			}
			log.Infow("seeded table", "table", step.table, "rows", n)
		}
		return nil
	})
}
