// Package saleitem provides the priced lines of a sale.
package saleitem

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// Type discriminates service lines from product lines.
type Type string

const (
	TypeService Type = "service"
	TypeProduct Type = "product"
)

// Valid reports whether t is a known item type.
func (t Type) Valid() bool {
	return t == TypeService || t == TypeProduct
}

// Item is one line of a sale. Exactly one of ServiceID and VariantID is set,
// according to ItemType. The product is reached through the variant.
type Item struct {
	ID        id.ID       `db:"id" json:"id"`
	SaleID    id.ID       `db:"sale_id" json:"saleId"`
	ItemType  Type        `db:"item_type" json:"itemType"`
	ServiceID *id.ID      `db:"service_id" json:"serviceId,omitempty"`
	VariantID *id.ID      `db:"variant_id" json:"variantId,omitempty"`
	Quantity  int         `db:"quantity" json:"quantity"`
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
	Discount  types.Money `db:"discount" json:"discount"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time   `db:"updated_at" json:"updatedAt"`
}

// Gross is quantity × unit price.
func (it Item) Gross() types.Money {
	return types.LineAmount(it.Quantity, it.UnitPrice)
}

// DiscountAmount is the gross amount × discount / 100, rounded per line to
// the stored scale.
func (it Item) DiscountAmount() types.Money {
	return types.RoundMoney(types.PercentOf(it.Gross(), it.Discount))
}

// Input describes a line to create.
type Input struct {
	ItemType  Type
	ServiceID *id.ID
	VariantID *id.ID
	Quantity  int
	UnitPrice types.Money
	Discount  types.Money
}

// Validate checks the line before anything is written.
func (in Input) Validate(_ context.Context) error {
	if !in.ItemType.Valid() {
		return apperror.NewValidation("unknown item type").
			WithDetail("field", "itemType").
			WithDetail("value", string(in.ItemType))
	}
	switch in.ItemType {
	case TypeService:
		if in.ServiceID == nil || id.IsNil(*in.ServiceID) {
			return apperror.NewRequired("serviceId")
		}
	case TypeProduct:
		if in.VariantID == nil || id.IsNil(*in.VariantID) {
			return apperror.NewRequired("variantId")
		}
	}
	if in.Quantity < 1 {
		return apperror.NewValidation("quantity must be at least 1").WithDetail("field", "quantity")
	}
	if in.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price must not be negative").WithDetail("field", "unitPrice")
	}
	if !types.FitsScale(in.UnitPrice) {
		return apperror.NewValidation("unit price has more than 2 decimal places").WithDetail("field", "unitPrice")
	}
	if !types.ValidPercent(in.Discount) {
		return apperror.NewValidation("discount must be between 0 and 100").WithDetail("field", "discount")
	}
	if !types.FitsScale(in.Discount) {
		return apperror.NewValidation("discount has more than 2 decimal places").WithDetail("field", "discount")
	}
	return nil
}

func newItem(saleID id.ID, in Input, now time.Time) Item {
	it := Item{
		ID:        id.New(),
		SaleID:    saleID,
		ItemType:  in.ItemType,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
		Discount:  in.Discount,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if in.ItemType == TypeService {
		it.ServiceID = in.ServiceID
	} else {
		it.VariantID = in.VariantID
	}
	return it
}

// Totals are the monetary figures of a set of items.
type Totals struct {
	Subtotal       types.Money `json:"subtotal"`
	DiscountAmount types.Money `json:"discountAmount"`
	TotalAmount    types.Money `json:"totalAmount"`
}

// ComputeTotals sums gross and the per-line rounded discount over items.
// TotalAmount = Subtotal − DiscountAmount, so the figures stay consistent
// once stored at MoneyScale.
func ComputeTotals(items []Item) Totals {
	t := Totals{Subtotal: types.Zero(), DiscountAmount: types.Zero()}
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.Gross())
		t.DiscountAmount = t.DiscountAmount.Add(it.DiscountAmount())
	}
	t.TotalAmount = t.Subtotal.Sub(t.DiscountAmount)
	return t
}
