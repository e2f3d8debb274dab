// Package sale provides the sale ledger: sale headers, their lines, and the
// stock deduction that goes with posting a sale.
package sale

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/saleitem"
)

// Sale is the header of a sale.
// TotalAmount = Subtotal − DiscountAmount, both summed over Items.
type Sale struct {
	ID            id.ID  `db:"id" json:"id"`
	Number        string `db:"number" json:"number"`
	CompanyID     id.ID  `db:"company_id" json:"companyId"`
	UserID        id.ID  `db:"user_id" json:"userId"`
	StaffID       *id.ID `db:"staff_id" json:"staffId,omitempty"`
	AppointmentID *id.ID `db:"appointment_id" json:"appointmentId,omitempty"`

	Subtotal       types.Money `db:"subtotal" json:"subtotal"`
	DiscountAmount types.Money `db:"discount_amount" json:"discountAmount"`
	TotalAmount    types.Money `db:"total_amount" json:"totalAmount"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	Items []saleitem.Item `db:"-" json:"items"`
}

// Totals returns the header's monetary figures.
func (s *Sale) Totals() saleitem.Totals {
	return saleitem.Totals{
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		TotalAmount:    s.TotalAmount,
	}
}

func (s *Sale) setTotals(t saleitem.Totals) {
	s.Subtotal = t.Subtotal
	s.DiscountAmount = t.DiscountAmount
	s.TotalAmount = t.TotalAmount
}

func totalsEqual(a, b saleitem.Totals) bool {
	return a.Subtotal.Equal(b.Subtotal) &&
		a.DiscountAmount.Equal(b.DiscountAmount) &&
		a.TotalAmount.Equal(b.TotalAmount)
}

// ServiceLine is a service sold in a sale.
type ServiceLine struct {
	ServiceID id.ID
	Quantity  int
	UnitPrice types.Money
	Discount  types.Money
}

// ProductLine is a product variant sold in a sale.
type ProductLine struct {
	VariantID id.ID
	Quantity  int
	UnitPrice types.Money
	Discount  types.Money
}

// CreateInput is everything needed to post a sale. The monetary figures
// are the caller's; the ledger recomputes them from the lines.
type CreateInput struct {
	CompanyID     id.ID
	UserID        id.ID
	StaffID       *id.ID
	AppointmentID *id.ID

	Services []ServiceLine
	Products []ProductLine

	Subtotal       types.Money
	DiscountAmount types.Money
	TotalAmount    types.Money
}

// Validate runs before anything is written.
func (in CreateInput) Validate(ctx context.Context) error {
	if id.IsNil(in.UserID) {
		return apperror.NewRequired("userId")
	}
	if id.IsNil(in.CompanyID) {
		return apperror.NewRequired("companyId")
	}
	for field, v := range map[string]types.Money{
		"subtotal":       in.Subtotal,
		"discountAmount": in.DiscountAmount,
		"totalAmount":    in.TotalAmount,
	} {
		if v.IsNegative() {
			return apperror.NewValidation(field+" must not be negative").WithDetail("field", field)
		}
	}
	return saleitem.ValidateAll(ctx, in.itemInputs())
}

// itemInputs flattens the service and product lines into one list, services
// first. Product lines carry only the variant.
func (in CreateInput) itemInputs() []saleitem.Input {
	out := make([]saleitem.Input, 0, len(in.Services)+len(in.Products))
	for _, l := range in.Services {
		serviceID := l.ServiceID
		out = append(out, saleitem.Input{
			ItemType:  saleitem.TypeService,
			ServiceID: &serviceID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}
	for _, l := range in.Products {
		variantID := l.VariantID
		out = append(out, saleitem.Input{
			ItemType:  saleitem.TypeProduct,
			VariantID: &variantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}
	return out
}

func (in CreateInput) callerTotals() saleitem.Totals {
	return saleitem.Totals{
		Subtotal:       in.Subtotal,
		DiscountAmount: in.DiscountAmount,
		TotalAmount:    in.TotalAmount,
	}
}

// ListFilter narrows ListByCompany. From/To bound created_at (inclusive).
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

func (f ListFilter) normalized() ListFilter {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	f.Limit = min(f.Limit, maxListLimit)
	f.Offset = max(f.Offset, 0)
	return f
}

// ListResult is a page of sale headers, newest first. Limit and Offset are
// the values applied after defaults and caps.
type ListResult struct {
	Items      []Sale `json:"items"`
	TotalCount int    `json:"totalCount"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}
