package variant

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/stock"
	"tillpoint/pkg/logger"
)

// StockLedger is the part of the stock ledger the registry uses.
type StockLedger interface {
	Intake(ctx context.Context, in stock.IntakeInput) (*stock.Lot, error)
	GetByID(ctx context.Context, lotID id.ID) (*stock.Lot, error)
}

// Service provides business operations for variants.
type Service struct {
	repo      Repository
	stock     StockLedger
	catalog   catalog.Reader
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new variant registry service.
func NewService(repo Repository, stockLedger StockLedger, catalogReader catalog.Reader, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		stock:     stockLedger,
		catalog:   catalogReader,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create adds a variant to a company product.
// The first variant of a product is always the default. When the new variant
// is default, siblings are reset before the insert, in the same transaction.
func (s *Service) Create(ctx context.Context, companyProductID id.ID, spec Spec) (*Variant, error) {
	if id.IsNil(companyProductID) {
		return nil, apperror.NewRequired("companyProductId")
	}
	if err := spec.Validate(ctx); err != nil {
		return nil, err
	}

	var created *Variant
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		siblings, err := s.repo.CountByCompanyProduct(ctx, companyProductID)
		if err != nil {
			return fmt.Errorf("count variants: %w", err)
		}

		isDefault := siblings == 0 || spec.wantsDefault()
		if isDefault {
			if err := s.repo.ResetDefaults(ctx, companyProductID, ""); err != nil {
				return fmt.Errorf("reset defaults: %w", err)
			}
		}

		v := newVariant(companyProductID, spec, isDefault, s.now())
		if err := s.repo.Create(ctx, v); err != nil {
			return fmt.Errorf("insert variant: %w", err)
		}
		created = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "variant created",
		"variant_id", created.ID,
		"company_product_id", companyProductID,
		"is_default", created.IsDefault,
	)
	s.decorate(ctx, created)
	return created, nil
}

// CreateBulk inserts several variants of one product in a single transaction,
// adopting the caller's transaction when ctx carries one.
//
// A single spec with no default flag becomes the default. If any spec asks to
// be default, siblings are reset once and only the first such spec keeps the
// flag.
func (s *Service) CreateBulk(ctx context.Context, companyProductID id.ID, specs []Spec) ([]Variant, error) {
	if id.IsNil(companyProductID) {
		return nil, apperror.NewRequired("companyProductId")
	}
	if len(specs) == 0 {
		return []Variant{}, nil
	}
	for i, spec := range specs {
		if err := spec.Validate(ctx); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return nil, appErr.WithDetail("index", i)
			}
			return nil, err
		}
	}

	defaults := resolveDefaults(specs)
	now := s.now()
	batch := make([]*Variant, len(specs))
	for i, spec := range specs {
		batch[i] = newVariant(companyProductID, spec, defaults[i], now)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if anyTrue(defaults) {
			if err := s.repo.ResetDefaults(ctx, companyProductID, ""); err != nil {
				return fmt.Errorf("reset defaults: %w", err)
			}
		}
		if err := s.repo.CreateMany(ctx, batch); err != nil {
			return fmt.Errorf("insert variants: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]Variant, len(batch))
	for i, v := range batch {
		out[i] = *v
	}
	logger.Info(ctx, "variants created",
		"company_product_id", companyProductID,
		"count", len(out),
	)
	return out, nil
}

// resolveDefaults returns the final isDefault flag per spec.
func resolveDefaults(specs []Spec) []bool {
	flags := make([]bool, len(specs))
	for i, spec := range specs {
		if spec.wantsDefault() {
			flags[i] = true
			return flags
		}
	}
	if len(specs) == 1 {
		flags[0] = true
	}
	return flags
}

func anyTrue(flags []bool) bool {
	for _, f := range flags {
		if f {
			return true
		}
	}
	return false
}

// FindByID returns a variant with its catalog name/SKU and active stock.
func (s *Service) FindByID(ctx context.Context, variantID id.ID) (*Variant, error) {
	if id.IsNil(variantID) {
		return nil, apperror.NewRequired("variantId")
	}
	v, err := s.repo.GetByID(ctx, variantID)
	if err != nil {
		return nil, err
	}
	s.decorate(ctx, v)
	return v, nil
}

// FindByCompanyProductID lists a product's variants, default first.
func (s *Service) FindByCompanyProductID(ctx context.Context, companyProductID id.ID) ([]Variant, error) {
	if id.IsNil(companyProductID) {
		return nil, apperror.NewRequired("companyProductId")
	}
	vs, err := s.repo.ListByCompanyProduct(ctx, companyProductID)
	if err != nil {
		return nil, err
	}
	for i := range vs {
		s.decorate(ctx, &vs[i])
	}
	return vs, nil
}

// Update applies a partial update. Setting isDefault resets the other
// variants of the product first.
func (s *Service) Update(ctx context.Context, variantID id.ID, patch Patch) (*Variant, error) {
	if id.IsNil(variantID) {
		return nil, apperror.NewRequired("variantId")
	}

	var updated *Variant
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		v, err := s.repo.GetForUpdate(ctx, variantID)
		if err != nil {
			return err
		}
		becameDefault, err := patch.Apply(v)
		if err != nil {
			return err
		}
		if becameDefault {
			if err := s.repo.ResetDefaults(ctx, v.CompanyProductID, v.ID); err != nil {
				return fmt.Errorf("reset defaults: %w", err)
			}
		}
		v.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, v); err != nil {
			return fmt.Errorf("update variant: %w", err)
		}
		updated = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.decorate(ctx, updated)
	return updated, nil
}

// Delete removes a variant. Its lots are not touched.
func (s *Service) Delete(ctx context.Context, variantID id.ID) (bool, error) {
	ok, err := s.repo.Delete(ctx, variantID)
	if err != nil {
		return false, fmt.Errorf("delete variant: %w", err)
	}
	if ok {
		logger.Info(ctx, "variant deleted", "variant_id", variantID)
	}
	return ok, nil
}

// IntakeStock records a lot for the variant and, when the variant has no
// active stock yet, points it at the new lot.
func (s *Service) IntakeStock(ctx context.Context, variantID id.ID, in stock.IntakeInput) (*stock.Lot, error) {
	if id.IsNil(variantID) {
		return nil, apperror.NewRequired("variantId")
	}
	in.VariantID = variantID

	var lot *stock.Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		v, err := s.repo.GetForUpdate(ctx, variantID)
		if err != nil {
			return err
		}

		lot, err = s.stock.Intake(ctx, in)
		if err != nil {
			return err
		}

		if v.ActiveStockID == nil {
			if err := s.repo.SetActiveStock(ctx, variantID, lot.ID); err != nil {
				return fmt.Errorf("set active stock: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// decorate fills the read-side projections. Lookup failures leave the fields
// empty.
func (s *Service) decorate(ctx context.Context, v *Variant) {
	if v.SystemVariantID != nil && s.catalog != nil {
		sv, err := s.catalog.SystemVariant(ctx, *v.SystemVariantID)
		if err != nil {
			logger.Debug(ctx, "catalog variant lookup failed",
				"variant_id", v.ID, "system_variant_id", *v.SystemVariantID, "error", err)
		} else {
			v.Name, v.SKU = sv.Name, sv.SKU
		}
	}

	if v.ActiveStockID != nil {
		lot, err := s.stock.GetByID(ctx, *v.ActiveStockID)
		if err != nil {
			logger.Debug(ctx, "active stock lookup failed",
				"variant_id", v.ID, "lot_id", *v.ActiveStockID, "error", err)
			return
		}
		v.ActiveStock = &ActiveStock{
			LotID:     lot.ID,
			CostPrice: lot.CostPrice,
			SellPrice: lot.SellPrice,
			Quantity:  lot.Quantity,
		}
	}
}
