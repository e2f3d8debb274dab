package memory

import (
	"context"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/saleitem"
)

// ItemRepo implements saleitem.Repository.
type ItemRepo struct {
	store *Store
}

var _ saleitem.Repository = (*ItemRepo)(nil)

func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

func (r *ItemRepo) CreateMany(ctx context.Context, items []saleitem.Item) error {
	return r.store.write(ctx, func(d *state) error {
		for _, it := range items {
			if _, ok := d.sales.rows[it.SaleID]; !ok {
				return apperror.NewConflict("referenced row is missing or still in use").
					WithDetail("constraint", "sale_items_sale_id_fkey")
			}
			d.items.put(it.ID, it)
		}
		return nil
	})
}

func typeRank(t saleitem.Type) int {
	if t == saleitem.TypeService {
		return 0
	}
	return 1
}

func (r *ItemRepo) ListBySale(_ context.Context, saleID id.ID) ([]saleitem.Item, error) {
	var out []saleitem.Item
	err := r.store.read(func(d *state) error {
		out = d.items.ordered(
			func(it saleitem.Item) bool { return it.SaleID == saleID },
			func(a, b saleitem.Item) int {
				if ra, rb := typeRank(a.ItemType), typeRank(b.ItemType); ra != rb {
					return ra - rb
				}
				return a.CreatedAt.Compare(b.CreatedAt)
			},
		)
		return nil
	})
	return out, err
}

func (r *ItemRepo) GetByID(_ context.Context, itemID id.ID) (*saleitem.Item, error) {
	var out *saleitem.Item
	err := r.store.read(func(d *state) error {
		it, ok := d.items.rows[itemID]
		if !ok {
			return apperror.NewNotFound("sale_item", itemID)
		}
		out = &it
		return nil
	})
	return out, err
}

func (r *ItemRepo) Delete(ctx context.Context, itemID id.ID) (bool, error) {
	var ok bool
	err := r.store.write(ctx, func(d *state) error {
		ok = d.items.remove(itemID)
		return nil
	})
	return ok, err
}

func (r *ItemRepo) DeleteBySale(ctx context.Context, saleID id.ID) (int64, error) {
	var n int64
	err := r.store.write(ctx, func(d *state) error {
		for key, it := range d.items.rows {
			if it.SaleID == saleID {
				d.items.remove(key)
				n++
			}
		}
		return nil
	})
	return n, err
}
