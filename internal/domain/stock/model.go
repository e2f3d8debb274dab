// Package stock provides the stock ledger: per-variant lots of physical stock.
package stock

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// Lot is one purchased batch of a variant's stock.
// Quantity never goes negative. An inactive lot is excluded from available
// stock and from deduction.
type Lot struct {
	ID        id.ID `db:"id" json:"id"`
	VariantID id.ID `db:"variant_id" json:"variantId"`

	Quantity  int          `db:"quantity" json:"quantity"`
	CostPrice types.Money  `db:"cost_price" json:"costPrice"`
	SellPrice *types.Money `db:"sell_price" json:"sellPrice,omitempty"`

	PurchaseDate *time.Time `db:"purchase_date" json:"purchaseDate,omitempty"`
	ExpiryDate   *time.Time `db:"expiry_date" json:"expiryDate,omitempty"`
	SupplierID   *string    `db:"supplier_id" json:"supplierId,omitempty"`
	BatchNumber  *string    `db:"batch_number" json:"batchNumber,omitempty"`

	IsActive bool `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IntakeInput describes a stock intake (goods received for a variant).
type IntakeInput struct {
	VariantID    id.ID
	Quantity     int
	UnitCost     types.Money
	SellPrice    *types.Money
	PurchaseDate *time.Time
	ExpiryDate   *time.Time
	SupplierID   *string
	BatchNumber  *string
}

// Validate implements entity-style self validation (no database access).
func (in IntakeInput) Validate(_ context.Context) error {
	if id.IsNil(in.VariantID) {
		return apperror.NewRequired("variantId")
	}
	if in.Quantity <= 0 {
		return apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}
	if in.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost must not be negative").
			WithDetail("field", "costPrice")
	}
	if in.SellPrice != nil && in.SellPrice.IsNegative() {
		return apperror.NewValidation("sell price must not be negative").
			WithDetail("field", "sellPrice")
	}
	if !types.FitsScale(in.UnitCost) {
		return apperror.NewValidation("unit cost has more than 2 decimal places").
			WithDetail("field", "costPrice")
	}
	if in.SellPrice != nil && !types.FitsScale(*in.SellPrice) {
		return apperror.NewValidation("sell price has more than 2 decimal places").
			WithDetail("field", "sellPrice")
	}
	return nil
}

// newLot builds an active lot from an intake.
func newLot(in IntakeInput, now time.Time) *Lot {
	return &Lot{
		ID:           id.New(),
		VariantID:    in.VariantID,
		Quantity:     in.Quantity,
		CostPrice:    in.UnitCost,
		SellPrice:    in.SellPrice,
		PurchaseDate: in.PurchaseDate,
		ExpiryDate:   in.ExpiryDate,
		SupplierID:   in.SupplierID,
		BatchNumber:  in.BatchNumber,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// LotPatch carries a partial lot update. Nil fields are left unchanged.
type LotPatch struct {
	Quantity     *int
	CostPrice    *types.Money
	SellPrice    *types.Money
	PurchaseDate *time.Time
	ExpiryDate   *time.Time
	SupplierID   *string
	BatchNumber  *string
	IsActive     *bool
}

// Apply validates the patch and copies the supplied fields onto lot.
func (p LotPatch) Apply(lot *Lot) error {
	if p.Quantity != nil {
		if *p.Quantity < 0 {
			return apperror.NewValidation("quantity must not be negative").
				WithDetail("field", "quantity")
		}
		lot.Quantity = *p.Quantity
	}
	if p.CostPrice != nil {
		if p.CostPrice.IsNegative() {
			return apperror.NewValidation("cost price must not be negative").
				WithDetail("field", "costPrice")
		}
		lot.CostPrice = *p.CostPrice
	}
	if p.SellPrice != nil {
		if p.SellPrice.IsNegative() {
			return apperror.NewValidation("sell price must not be negative").
				WithDetail("field", "sellPrice")
		}
		sp := *p.SellPrice
		lot.SellPrice = &sp
	}
	if p.PurchaseDate != nil {
		lot.PurchaseDate = p.PurchaseDate
	}
	if p.ExpiryDate != nil {
		lot.ExpiryDate = p.ExpiryDate
	}
	if p.SupplierID != nil {
		lot.SupplierID = p.SupplierID
	}
	if p.BatchNumber != nil {
		lot.BatchNumber = p.BatchNumber
	}
	if p.IsActive != nil {
		lot.IsActive = *p.IsActive
	}
	return nil
}

// Valuation is the active on-hand quantity and its cost value for a variant.
type Valuation struct {
	VariantID id.ID       `json:"variantId"`
	Quantity  int         `json:"quantity"`
	Value     types.Money `json:"value"`
	Lots      []Lot       `json:"lots"`
}

// auditState is the audited view of a lot.
func (l *Lot) auditState() map[string]any {
	return map[string]any{
		"variant_id":    l.VariantID,
		"quantity":      l.Quantity,
		"cost_price":    l.CostPrice.String(),
		"sell_price":    moneyString(l.SellPrice),
		"purchase_date": l.PurchaseDate,
		"expiry_date":   l.ExpiryDate,
		"supplier_id":   l.SupplierID,
		"batch_number":  l.BatchNumber,
		"is_active":     l.IsActive,
	}
}

func moneyString(m *types.Money) any {
	if m == nil {
		return nil
	}
	return m.String()
}
