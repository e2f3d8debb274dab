package memory

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/variant"
)

// VariantRepo implements variant.Repository.
type VariantRepo struct {
	store *Store
}

var _ variant.Repository = (*VariantRepo)(nil)

func NewVariantRepo(store *Store) *VariantRepo {
	return &VariantRepo{store: store}
}

func (r *VariantRepo) Create(ctx context.Context, v *variant.Variant) error {
	return r.CreateMany(ctx, []*variant.Variant{v})
}

// CreateMany also enforces the partial unique index on defaults.
func (r *VariantRepo) CreateMany(ctx context.Context, vs []*variant.Variant) error {
	return r.store.write(ctx, func(d *state) error {
		for _, v := range vs {
			if _, ok := d.variants.rows[v.ID]; ok {
				return apperror.NewDuplicate("product_variant", "id", v.ID)
			}
			if v.IsDefault && hasDefault(d, v.CompanyProductID, v.ID) {
				return duplicateDefault(v.CompanyProductID)
			}
			d.variants.put(v.ID, stripProjections(*v))
		}
		return nil
	})
}

func hasDefault(d *state, companyProductID, exceptID id.ID) bool {
	for _, other := range d.variants.rows {
		if other.CompanyProductID == companyProductID && other.IsDefault && other.ID != exceptID {
			return true
		}
	}
	return false
}

func duplicateDefault(companyProductID id.ID) error {
	return apperror.NewConflict("unique constraint violated").
		WithDetail("constraint", "ux_product_variants_default").
		WithDetail("company_product_id", companyProductID)
}

func stripProjections(v variant.Variant) variant.Variant {
	v.Name, v.SKU, v.ActiveStock = "", "", nil
	return v
}

func (r *VariantRepo) GetByID(_ context.Context, variantID id.ID) (*variant.Variant, error) {
	var out *variant.Variant
	err := r.store.read(func(d *state) error {
		v, ok := d.variants.rows[variantID]
		if !ok {
			return apperror.NewNotFound("product_variant", variantID)
		}
		out = &v
		return nil
	})
	return out, err
}

func (r *VariantRepo) GetForUpdate(ctx context.Context, variantID id.ID) (*variant.Variant, error) {
	return r.GetByID(ctx, variantID)
}

func (r *VariantRepo) ListByCompanyProduct(_ context.Context, companyProductID id.ID) ([]variant.Variant, error) {
	var out []variant.Variant
	err := r.store.read(func(d *state) error {
		out = d.variants.ordered(
			func(v variant.Variant) bool { return v.CompanyProductID == companyProductID },
			func(a, b variant.Variant) int {
				if a.IsDefault != b.IsDefault {
					if a.IsDefault {
						return -1
					}
					return 1
				}
				return a.CreatedAt.Compare(b.CreatedAt)
			},
		)
		return nil
	})
	return out, err
}

func (r *VariantRepo) CountByCompanyProduct(_ context.Context, companyProductID id.ID) (int, error) {
	n := 0
	err := r.store.read(func(d *state) error {
		for _, v := range d.variants.rows {
			if v.CompanyProductID == companyProductID {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (r *VariantRepo) ResetDefaults(ctx context.Context, companyProductID, exceptID id.ID) error {
	return r.store.write(ctx, func(d *state) error {
		now := time.Now().UTC()
		for key, v := range d.variants.rows {
			if v.CompanyProductID == companyProductID && v.IsDefault && v.ID != exceptID {
				v.IsDefault = false
				v.UpdatedAt = now
				d.variants.put(key, v)
			}
		}
		return nil
	})
}

func (r *VariantRepo) Update(ctx context.Context, v *variant.Variant) error {
	return r.store.write(ctx, func(d *state) error {
		if _, ok := d.variants.rows[v.ID]; !ok {
			return apperror.NewNotFound("product_variant", v.ID)
		}
		if v.IsDefault && hasDefault(d, v.CompanyProductID, v.ID) {
			return duplicateDefault(v.CompanyProductID)
		}
		d.variants.put(v.ID, stripProjections(*v))
		return nil
	})
}

func (r *VariantRepo) SetActiveStock(ctx context.Context, variantID, lotID id.ID) error {
	return r.store.write(ctx, func(d *state) error {
		v, ok := d.variants.rows[variantID]
		if !ok {
			return apperror.NewNotFound("product_variant", variantID)
		}
		v.ActiveStockID = &lotID
		v.UpdatedAt = time.Now().UTC()
		d.variants.put(variantID, v)
		return nil
	})
}

func (r *VariantRepo) Delete(ctx context.Context, variantID id.ID) (bool, error) {
	var ok bool
	err := r.store.write(ctx, func(d *state) error {
		ok = d.variants.remove(variantID)
		return nil
	})
	return ok, err
}
