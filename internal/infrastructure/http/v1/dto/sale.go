package dto

import (
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/sale"
)

// SaleLineRequest is one service or product line of a new sale.
type SaleLineRequest struct {
	ServiceID id.ID       `json:"serviceId"`
	VariantID id.ID       `json:"variantId"`
	Quantity  int         `json:"quantity"`
	UnitPrice types.Money `json:"unitPrice"`
	Discount  types.Money `json:"discount"`
}

// CreateSaleRequest posts a sale. The company comes from the caller identity;
// userId is the buyer. staffId defaults to the calling user.
type CreateSaleRequest struct {
	UserID        id.ID             `json:"userId"`
	StaffID       *id.ID            `json:"staffId"`
	AppointmentID *id.ID            `json:"appointmentId"`
	Services      []SaleLineRequest `json:"services"`
	Products      []SaleLineRequest `json:"products"`

	Subtotal       types.Money `json:"subtotal"`
	DiscountAmount types.Money `json:"discountAmount"`
	TotalAmount    types.Money `json:"totalAmount"`
}

// ToInput converts the request into the ledger input.
func (r CreateSaleRequest) ToInput(companyID, callerID id.ID) sale.CreateInput {
	in := sale.CreateInput{
		CompanyID:      companyID,
		UserID:         r.UserID,
		StaffID:        r.StaffID,
		AppointmentID:  r.AppointmentID,
		Services:       make([]sale.ServiceLine, 0, len(r.Services)),
		Products:       make([]sale.ProductLine, 0, len(r.Products)),
		Subtotal:       r.Subtotal,
		DiscountAmount: r.DiscountAmount,
		TotalAmount:    r.TotalAmount,
	}
	if in.StaffID == nil && !id.IsNil(callerID) {
		staff := callerID
		in.StaffID = &staff
	}
	for _, l := range r.Services {
		in.Services = append(in.Services, sale.ServiceLine{
			ServiceID: l.ServiceID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}
	for _, l := range r.Products {
		in.Products = append(in.Products, sale.ProductLine{
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Discount:  l.Discount,
		})
	}
	return in
}

// ListSalesQuery filters GET /sales. Dates are inclusive calendar days.
type ListSalesQuery struct {
	From   *time.Time `form:"from" time_format:"2006-01-02"`
	To     *time.Time `form:"to" time_format:"2006-01-02"`
	Limit  int        `form:"limit" binding:"omitempty,min=1,max=200"`
	Offset int        `form:"offset" binding:"omitempty,min=0"`
}

// ToFilter converts the query. To covers the whole day.
func (q ListSalesQuery) ToFilter() sale.ListFilter {
	f := sale.ListFilter{From: q.From, Limit: q.Limit, Offset: q.Offset}
	if q.To != nil {
		end := q.To.Add(24*time.Hour - time.Nanosecond)
		f.To = &end
	}
	return f
}
