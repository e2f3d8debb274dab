// Package inventory_repo provides PostgreSQL repositories for stock lots and
// product variants.
package inventory_repo

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const lotsTable = "stock_lots"

// fifoOrder is the oldest-first lot order used for deduction.
var fifoOrder = []string{"purchase_date ASC NULLS LAST", "created_at ASC", "id ASC"}

var _ stock.Repository = (*LotRepo)(nil)

// LotRepo implements stock.Repository.
type LotRepo struct {
	table *postgres.Table[stock.Lot]
	now   func() time.Time
}

// NewLotRepo creates a new lot repository.
func NewLotRepo(txManager *postgres.TxManager) *LotRepo {
	return &LotRepo{
		table: postgres.NewTable[stock.Lot](txManager, lotsTable, "stock_lot"),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (r *LotRepo) Create(ctx context.Context, lot *stock.Lot) error {
	return r.table.Insert(ctx, lot)
}

func (r *LotRepo) GetByID(ctx context.Context, lotID id.ID) (*stock.Lot, error) {
	return r.table.GetByID(ctx, lotID, false)
}

func (r *LotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*stock.Lot, error) {
	return r.table.GetByID(ctx, lotID, true)
}

func (r *LotRepo) listQuery(variantID id.ID, activeOnly bool) squirrel.SelectBuilder {
	q := r.table.Select().
		Where(squirrel.Eq{"variant_id": variantID}).
		OrderBy(fifoOrder...)
	if activeOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}
	return q
}

func (r *LotRepo) ListByVariant(ctx context.Context, variantID id.ID, activeOnly bool) ([]stock.Lot, error) {
	return r.table.List(ctx, r.listQuery(variantID, activeOnly))
}

// ListActiveForUpdate locks every active lot of the variant, in FIFO order,
// so concurrent deductions queue behind each other.
func (r *LotRepo) ListActiveForUpdate(ctx context.Context, variantID id.ID) ([]stock.Lot, error) {
	return r.table.List(ctx, r.listQuery(variantID, true).Suffix("FOR UPDATE"))
}

func (r *LotRepo) sumQuery(variantID id.ID) squirrel.SelectBuilder {
	return r.table.Builder().
		Select("COALESCE(SUM(quantity), 0)").
		From(lotsTable).
		Where(squirrel.Eq{"variant_id": variantID, "is_active": true})
}

func (r *LotRepo) SumActiveQuantity(ctx context.Context, variantID id.ID) (int, error) {
	sql, args, err := r.sumQuery(variantID).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sum: %w", err)
	}
	var total int64
	if err := r.table.Querier(ctx).QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum active quantity: %w", err)
	}
	return int(total), nil
}

func (r *LotRepo) updateQuery(lot *stock.Lot) squirrel.UpdateBuilder {
	return r.table.Builder().Update(lotsTable).
		Set("quantity", lot.Quantity).
		Set("cost_price", lot.CostPrice).
		Set("sell_price", lot.SellPrice).
		Set("purchase_date", lot.PurchaseDate).
		Set("expiry_date", lot.ExpiryDate).
		Set("supplier_id", lot.SupplierID).
		Set("batch_number", lot.BatchNumber).
		Set("is_active", lot.IsActive).
		Set("updated_at", lot.UpdatedAt).
		Where(squirrel.Eq{"id": lot.ID})
}

func (r *LotRepo) Update(ctx context.Context, lot *stock.Lot) error {
	n, err := r.table.Exec(ctx, r.updateQuery(lot))
	if err != nil {
		return fmt.Errorf("update lot: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("stock_lot", lot.ID)
	}
	return nil
}

func (r *LotRepo) UpdateQuantity(ctx context.Context, lotID id.ID, quantity int) error {
	n, err := r.table.Exec(ctx, r.table.Builder().Update(lotsTable).
		Set("quantity", quantity).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"id": lotID}))
	if err != nil {
		return fmt.Errorf("update lot quantity: %w", err)
	}
	if n == 0 {
		return apperror.NewNotFound("stock_lot", lotID)
	}
	return nil
}

func (r *LotRepo) SetActive(ctx context.Context, lotID id.ID, active bool) (bool, error) {
	n, err := r.table.Exec(ctx, r.table.Builder().Update(lotsTable).
		Set("is_active", active).
		Set("updated_at", r.now()).
		Where(squirrel.Eq{"id": lotID}))
	if err != nil {
		return false, fmt.Errorf("set lot active: %w", err)
	}
	return n > 0, nil
}

func (r *LotRepo) Delete(ctx context.Context, lotID id.ID) (bool, error) {
	return r.table.DeleteByID(ctx, lotID)
}
