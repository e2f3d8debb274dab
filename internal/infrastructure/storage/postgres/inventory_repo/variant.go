package inventory_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/variant"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const variantsTable = "product_variants"

var _ variant.Repository = (*VariantRepo)(nil)

// VariantRepo implements variant.Repository. The single default per product
// is backed by the partial unique index ux_product_variants_default.
type VariantRepo struct {
	table *postgres.Table[variant.Variant]
	now   func() time.Time
}

// NewVariantRepo creates a new variant repository.
func NewVariantRepo(txManager *postgres.TxManager) *VariantRepo {
	return &VariantRepo{
		table: postgres.NewTable[variant.Variant](txManager, variantsTable, "product_variant"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *VariantRepo) Create(ctx context.Context, v *variant.Variant) error {
	return r.table.Insert(ctx, v)
}

func (r *VariantRepo) CreateMany(ctx context.Context, vs []*variant.Variant) error {
	return r.table.Insert(ctx, vs...)
}

func (r *VariantRepo) GetByID(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	return r.table.GetByID(ctx, variantID, false)
}

func (r *VariantRepo) GetForUpdate(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	return r.table.GetByID(ctx, variantID, true)
}

func (r *VariantRepo) listQuery(companyProductID id.ID) squirrel.SelectBuilder {
	return r.table.Select().
		Where(squirrel.Eq{"company_product_id": companyProductID}).
		OrderBy("is_default DESC", "created_at ASC", "id ASC")
}

func (r *VariantRepo) ListByCompanyProduct(ctx context.Context, companyProductID id.ID) ([]variant.Variant, error) {
	return r.table.List(ctx, r.listQuery(companyProductID))
}

func (r *VariantRepo) CountByCompanyProduct(ctx context.Context, companyProductID id.ID) (int, error) {
	return r.table.Count(ctx, r.table.Builder().
		Select("id").
		From(variantsTable).
		Where(squirrel.Eq{"company_product_id": companyProductID}))
}

func (r *VariantRepo) resetDefaultsQuery(companyProductID, exceptID id.ID) squirrel.UpdateBuilder {
	q := r.table.Builder().Update(variantsTable).
		Set("is_default", false).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"company_product_id": companyProductID, "is_default": true})
	if !id.IsNil(exceptID) {
		q = q.Where(squirrel.NotEq{"id": exceptID})
	}
	return q
}

func (r *VariantRepo) ResetDefaults(ctx context.Context, companyProductID, exceptID id.ID) error {
	if _, err := r.table.Exec(ctx, r.resetDefaultsQuery(companyProductID, exceptID)); err != nil {
		return fmt.Errorf("reset default variants: %w", err)
	}
	return nil
}

func (r *VariantRepo) updateQuery(v *variant.Variant) squirrel.UpdateBuilder {
	return r.table.Builder().Update(variantsTable).
		Set("system_variant_id", v.SystemVariantID).
		Set("variant_type", v.Type).
		Set("is_default", v.IsDefault).
		Set("is_active", v.IsActive).
		Set("active_stock_id", v.ActiveStockID).
		Set("min_stock", v.MinStock).
		Set("max_stock", v.MaxStock).
		Set("updated_at", v.UpdatedAt).
		Where(squirrel.Eq{"id": v.ID})
}

func (r *VariantRepo) Update(ctx context.Context, v *variant.Variant) error {
	n, err := r.table.Exec(ctx, r.updateQuery(v))
	if err != nil {
		return fmt.Errorf("update variant: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("product_variant", v.ID)
	}
	return nil
}

func (r *VariantRepo) SetActiveStock(ctx context.Context, variantID, lotID id.ID) error {
	n, err := r.table.Exec(ctx, r.table.Builder().Update(variantsTable).
		Set("active_stock_id", lotID).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"id": variantID}))
	if err != nil {
		return fmt.Errorf("set active stock: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("product_variant", variantID)
	}
	return nil
}

func (r *VariantRepo) Delete(ctx context.Context, variantID id.ID) (bool, error) {
	return r.table.DeleteByID(ctx, variantID)
}
