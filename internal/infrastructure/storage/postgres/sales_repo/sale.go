// Package sales_repo provides PostgreSQL repositories for sale headers and
// sale items.
package sales_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const salesTable = "sales"

var _ sale.Repository = (*SaleRepo)(nil)

// SaleRepo implements sale.Repository.
type SaleRepo struct {
	table *postgres.Table[sale.Sale]
}

// NewSaleRepo creates a new sale repository.
func NewSaleRepo(txManager *postgres.TxManager) *SaleRepo {
	return &SaleRepo{table: postgres.NewTable[sale.Sale](txManager, salesTable, "sale")}
}

func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.table.Insert(ctx, s)
}

func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.table.GetByID(ctx, saleID, false)
}

func (r *SaleRepo) GetForUpdate(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	return r.table.GetByID(ctx, saleID, true)
}

func (r *SaleRepo) totalsQuery(saleID id.ID, totals saleitem.Totals, updatedAt time.Time) squirrel.UpdateBuilder {
	return r.table.Builder().Update(salesTable).
		Set("subtotal", totals.Subtotal).
		Set("discount_amount", totals.DiscountAmount).
		Set("total_amount", totals.TotalAmount).
		Set("updated_at", updatedAt).
		Where(squirrel.Eq{"id": saleID})
}

func (r *SaleRepo) UpdateTotals(ctx context.Context, saleID id.ID, totals saleitem.Totals, updatedAt time.Time) error {
	n, err := r.table.Exec(ctx, r.totalsQuery(saleID, totals, updatedAt))
	if err != nil {
		return fmt.Errorf("update sale totals: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("sale", saleID)
	}
	return nil
}

func (r *SaleRepo) Delete(ctx context.Context, saleID id.ID) (bool, error) {
	return r.table.DeleteByID(ctx, saleID)
}

func (r *SaleRepo) filtered(companyID id.ID, f sale.ListFilter) squirrel.SelectBuilder {
	q := r.table.Select().Where(squirrel.Eq{"company_id": companyID})
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *f.To})
	}
	return q
}

func (r *SaleRepo) pageQuery(companyID id.ID, f sale.ListFilter) squirrel.SelectBuilder {
	q := r.filtered(companyID, f).OrderBy("created_at DESC", "id DESC")
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}
	return q
}

func (r *SaleRepo) ListByCompany(ctx context.Context, companyID id.ID, f sale.ListFilter) ([]sale.Sale, int, error) {
	total, err := r.table.Count(ctx, r.filtered(companyID, f))
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []sale.Sale{}, 0, nil
	}
	sales, err := r.table.List(ctx, r.pageQuery(companyID, f))
	if err != nil {
		return nil, 0, err
	}
	return sales, total, nil
}
