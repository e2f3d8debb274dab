// Package variant provides the variant registry: sellable configurations of a
// company's product, with the single-default rule per product.
package variant

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// Variant is one sellable configuration of a company product.
type Variant struct {
	ID               id.ID   `db:"id" json:"id"`
	CompanyProductID id.ID   `db:"company_product_id" json:"companyProductId"`
	SystemVariantID  *id.ID  `db:"system_variant_id" json:"systemVariantId,omitempty"`
	Type             *string `db:"variant_type" json:"type,omitempty"`

	IsDefault     bool   `db:"is_default" json:"isDefault"`
	IsActive      bool   `db:"is_active" json:"isActive"`
	ActiveStockID *id.ID `db:"active_stock_id" json:"activeStockId,omitempty"`

	MinStock *int `db:"min_stock" json:"minStock,omitempty"`
	MaxStock *int `db:"max_stock" json:"maxStock,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Read-side projections, never persisted.
	Name        string       `db:"-" json:"name,omitempty"`
	SKU         string       `db:"-" json:"sku,omitempty"`
	ActiveStock *ActiveStock `db:"-" json:"activeStock,omitempty"`
}

// ActiveStock is the read-only projection of the lot a variant points at.
type ActiveStock struct {
	LotID     id.ID        `json:"lotId"`
	CostPrice types.Money  `json:"costPrice"`
	SellPrice *types.Money `json:"sellPrice,omitempty"`
	Quantity  int          `json:"quantity"`
}

// Spec describes a variant to create.
type Spec struct {
	SystemVariantID *id.ID
	Type            *string
	IsDefault       *bool
	IsActive        *bool
	MinStock        *int
	MaxStock        *int
}

func (s Spec) wantsDefault() bool {
	return s.IsDefault != nil && *s.IsDefault
}

// Validate checks stock thresholds.
func (s Spec) Validate(_ context.Context) error {
	return validateThresholds(s.MinStock, s.MaxStock)
}

func validateThresholds(minStock, maxStock *int) error {
	if minStock != nil && *minStock < 0 {
		return apperror.NewValidation("minStock must not be negative").WithDetail("field", "minStock")
	}
	if maxStock != nil && *maxStock < 0 {
		return apperror.NewValidation("maxStock must not be negative").WithDetail("field", "maxStock")
	}
	if minStock != nil && maxStock != nil && *minStock > *maxStock {
		return apperror.NewValidation("minStock must not exceed maxStock").WithDetail("field", "minStock")
	}
	return nil
}

func newVariant(companyProductID id.ID, s Spec, isDefault bool, now time.Time) *Variant {
	active := true
	if s.IsActive != nil {
		active = *s.IsActive
	}
	return &Variant{
		ID:               id.New(),
		CompanyProductID: companyProductID,
		SystemVariantID:  s.SystemVariantID,
		Type:             s.Type,
		IsDefault:        isDefault,
		IsActive:         active,
		MinStock:         s.MinStock,
		MaxStock:         s.MaxStock,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

// Patch is a partial variant update. Nil fields are left unchanged.
// ActiveStockID pointing at an empty id clears the active stock pointer.
type Patch struct {
	SystemVariantID *id.ID
	Type            *string
	IsDefault       *bool
	IsActive        *bool
	ActiveStockID   *id.ID
	MinStock        *int
	MaxStock        *int
}

// Apply validates the patch and copies supplied fields onto v.
// It reports whether v becomes the default.
func (p Patch) Apply(v *Variant) (becameDefault bool, err error) {
	minStock, maxStock := v.MinStock, v.MaxStock
	if p.MinStock != nil {
		minStock = p.MinStock
	}
	if p.MaxStock != nil {
		maxStock = p.MaxStock
	}
	if err := validateThresholds(minStock, maxStock); err != nil {
		return false, err
	}
	v.MinStock, v.MaxStock = minStock, maxStock

	if p.SystemVariantID != nil {
		v.SystemVariantID = p.SystemVariantID
	}
	if p.Type != nil {
		v.Type = p.Type
	}
	if p.IsActive != nil {
		v.IsActive = *p.IsActive
	}
	if p.ActiveStockID != nil {
		if id.IsNil(*p.ActiveStockID) {
			v.ActiveStockID = nil
		} else {
			lotID := *p.ActiveStockID
			v.ActiveStockID = &lotID
		}
	}
	if p.IsDefault != nil {
		becameDefault = *p.IsDefault && !v.IsDefault
		v.IsDefault = *p.IsDefault
	}
	return becameDefault, nil
}
