package variant

import (
	"context"

	"tillpoint/internal/core/id"
)

// Repository defines persistence for variants.
type Repository interface {
	Create(ctx context.Context, v *Variant) error

	// CreateMany inserts all variants in one statement.
	CreateMany(ctx context.Context, vs []*Variant) error

	// GetByID returns NOT_FOUND for an unknown variant.
	GetByID(ctx context.Context, variantID id.ID) (*Variant, error)

	// GetForUpdate is GetByID with a row lock.
	GetForUpdate(ctx context.Context, variantID id.ID) (*Variant, error)

	// ListByCompanyProduct orders by is_default DESC, created_at ASC.
	ListByCompanyProduct(ctx context.Context, companyProductID id.ID) ([]Variant, error)

	CountByCompanyProduct(ctx context.Context, companyProductID id.ID) (int, error)

	// ResetDefaults clears is_default on every variant of the product except
	// exceptID (pass "" to clear all).
	ResetDefaults(ctx context.Context, companyProductID, exceptID id.ID) error

	// Update persists every mutable field. NOT_FOUND when no row matched.
	Update(ctx context.Context, v *Variant) error

	SetActiveStock(ctx context.Context, variantID, lotID id.ID) error

	Delete(ctx context.Context, variantID id.ID) (bool, error)
}
