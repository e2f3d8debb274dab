package dto

import (
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/variant"
)

// VariantSpecRequest describes one variant to create.
type VariantSpecRequest struct {
	SystemVariantID *id.ID  `json:"systemVariantId"`
	Type            *string `json:"type"`
	IsDefault       *bool   `json:"isDefault"`
	IsActive        *bool   `json:"isActive"`
	MinStock        *int    `json:"minStock"`
	MaxStock        *int    `json:"maxStock"`
}

// CreateVariantsRequest creates variants of one company product in one go.
type CreateVariantsRequest struct {
	Variants []VariantSpecRequest `json:"variants" binding:"required,min=1"`
}

// ToSpecs converts the request into registry specs.
func (r CreateVariantsRequest) ToSpecs() []variant.Spec {
	out := make([]variant.Spec, 0, len(r.Variants))
	for _, v := range r.Variants {
		out = append(out, variant.Spec{
			SystemVariantID: v.SystemVariantID,
			Type:            v.Type,
			IsDefault:       v.IsDefault,
			IsActive:        v.IsActive,
			MinStock:        v.MinStock,
			MaxStock:        v.MaxStock,
		})
	}
	return out
}

// UpdateVariantRequest is a partial update. activeStockId "" clears the pointer.
type UpdateVariantRequest struct {
	SystemVariantID *id.ID  `json:"systemVariantId"`
	Type            *string `json:"type"`
	IsDefault       *bool   `json:"isDefault"`
	IsActive        *bool   `json:"isActive"`
	ActiveStockID   *id.ID  `json:"activeStockId"`
	MinStock        *int    `json:"minStock"`
	MaxStock        *int    `json:"maxStock"`
}

// ToPatch converts the request.
func (r UpdateVariantRequest) ToPatch() variant.Patch {
	return variant.Patch(r)
}
