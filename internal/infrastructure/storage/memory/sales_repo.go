package memory

import (
	"context"
	"slices"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/domain/saleitem"
)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	store *Store
}

var _ sale.Repository = (*SaleRepo)(nil)

func NewSaleRepo(store *Store) *SaleRepo {
	return &SaleRepo{store: store}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.store.write(ctx, func(d *state) error {
		if _, ok := d.sales.rows[s.ID]; ok {
			return apperror.NewDuplicate("sale", "id", s.ID)
		}
		row := *s
		row.Items = nil
		d.sales.put(s.ID, row)
		return nil
	})
}

func (r *SaleRepo) GetByID(_ context.Context, saleID id.ID) (*sale.Sale, error) {
	var out *sale.Sale
	err := r.store.read(func(d *state) error {
		s, ok := d.sales.rows[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		out = &s
		return nil
	})
	return out, err
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.GetByID(ctx, saleID)
}

func (r *SaleRepo) UpdateTotals(ctx context.Context, saleID id.ID, totals saleitem.Totals, updatedAt time.Time) error {
	return r.store.write(ctx, func(d *state) error {
		s, ok := d.sales.rows[saleID]
		if !ok {
			return apperror.NewNotFound("sale", saleID)
		}
		s.Subtotal = totals.Subtotal
		s.DiscountAmount = totals.DiscountAmount
		s.TotalAmount = totals.TotalAmount
		s.UpdatedAt = updatedAt
		d.sales.put(saleID, s)
		return nil
	})
}

func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) (bool, error) {
	var ok bool
	err := r.store.write(ctx, func(d *state) error {
		ok = d.sales.remove(saleID)
		return nil
	})
	return ok, err
}

func (r *SaleRepo) ListByCompany(_ context.Context, companyID id.ID, f sale.ListFilter) ([]sale.Sale, int, error) {
	var (
		page  []sale.Sale
		total int
	)
	err := r.store.read(func(d *state) error {
		all := d.sales.ordered(
			func(s sale.Sale) bool {
				if s.CompanyID != companyID {
					return false
				}
				if f.From != nil && s.CreatedAt.Before(*f.From) {
					return false
				}
				if f.To != nil && s.CreatedAt.After(*f.To) {
					return false
				}
				return true
			},
			func(a, b sale.Sale) int { return a.CreatedAt.Compare(b.CreatedAt) },
		)
		// Newest first, later inserts first on equal timestamps.
		slices.Reverse(all)
		total = len(all)
		start := min(f.Offset, total)
		end := min(start+f.Limit, total)
		page = all[start:end]
		return nil
	})
	return page, total, err
}
