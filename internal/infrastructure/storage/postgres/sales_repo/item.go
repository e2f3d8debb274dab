package sales_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const itemsTable = "sale_items"

var _ saleitem.Repository = (*ItemRepo)(nil)

// ItemRepo implements saleitem.Repository.
type ItemRepo struct {
	table *postgres.Table[saleitem.Item]
}

// NewItemRepo creates a new sale item repository.
func NewItemRepo(txManager *postgres.TxManager) *ItemRepo {
	return &ItemRepo{table: postgres.NewTable[saleitem.Item](txManager, itemsTable, "sale_item")}
}

func (r *ItemRepo) CreateMany(ctx context.Context, items []saleitem.Item) error {
	rows := make([]*saleitem.Item, len(items))
	for i := range items {
		rows[i] = &items[i]
	}
	return r.table.Insert(ctx, rows...)
}

func (r *ItemRepo) listQuery(saleID id.ID) squirrel.SelectBuilder {
	return r.table.Select().
		Where(squirrel.Eq{"sale_id": saleID}).
		OrderBy("CASE item_type WHEN 'service' THEN 0 ELSE 1 END", "created_at ASC", "id ASC")
}

func (r *ItemRepo) ListBySale(ctx context.Context, saleID id.ID) ([]saleitem.Item, error) {
	return r.table.List(ctx, r.listQuery(saleID))
}

func (r *ItemRepo) GetByID(ctx context.Context, itemID id.ID) (*saleitem.Item, error) {
	return r.table.GetByID(ctx, itemID, false)
}

func (r *ItemRepo) Delete(ctx context.Context, itemID id.ID) (bool, error) {
	return r.table.DeleteByID(ctx, itemID)
}

func (r *ItemRepo) DeleteBySale(ctx context.Context, saleID id.ID) (int64, error) {
	n, err := r.table.Exec(ctx, r.table.Builder().Delete(itemsTable).Where(squirrel.Eq{"sale_id": saleID}))
	if err != nil {
		return 0, fmt.Errorf("delete sale items: %w", err)
	}
	return n, nil
}
