package dto

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/stock"
)

// IntakeRequest receives a lot of stock for a variant.
type IntakeRequest struct {
	Quantity     int          `json:"quantity"`
	CostPrice    types.Money  `json:"costPrice"`
	SellPrice    *types.Money `json:"sellPrice"`
	PurchaseDate *time.Time   `json:"purchaseDate"`
	ExpiryDate   *time.Time   `json:"expiryDate"`
	SupplierID   *string      `json:"supplierId"`
	BatchNumber  *string      `json:"batchNumber"`
}

// ToInput converts the request for variantID.
func (r IntakeRequest) ToInput(variantID id.ID) stock.IntakeInput {
	return stock.IntakeInput{
		VariantID:    variantID,
		Quantity:     r.Quantity,
		UnitCost:     r.CostPrice,
		SellPrice:    r.SellPrice,
		PurchaseDate: r.PurchaseDate,
		ExpiryDate:   r.ExpiryDate,
		SupplierID:   r.SupplierID,
		BatchNumber:  r.BatchNumber,
	}
}

// UpdateLotRequest is a partial lot update.
type UpdateLotRequest struct {
	Quantity     *int         `json:"quantity"`
	CostPrice    *types.Money `json:"costPrice"`
	SellPrice    *types.Money `json:"sellPrice"`
	PurchaseDate *time.Time   `json:"purchaseDate"`
	ExpiryDate   *time.Time   `json:"expiryDate"`
	SupplierID   *string      `json:"supplierId"`
	BatchNumber  *string      `json:"batchNumber"`
	IsActive     *bool        `json:"isActive"`
}

// ToPatch converts the request.
func (r UpdateLotRequest) ToPatch() stock.LotPatch {
	return stock.LotPatch(r)
}

// AvailableResponse is the sellable quantity of a variant.
type AvailableResponse struct {
	VariantID id.ID `json:"variantId"`
	Available int   `json:"available"`
}
