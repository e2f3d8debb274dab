package memory

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/stock"
)

// LotRepo implements stock.Repository.
type LotRepo struct {
	store *Store
}

var _ stock.Repository = (*LotRepo)(nil)

func NewLotRepo(store *Store) *LotRepo {
	return &LotRepo{store: store}
}

// fifoOrder is purchase_date ASC NULLS LAST, created_at ASC.
func fifoOrder(a, b stock.Lot) int {
	switch {
	case a.PurchaseDate == nil && b.PurchaseDate != nil:
		return 1
	case a.PurchaseDate != nil && b.PurchaseDate == nil:
		return -1
	case a.PurchaseDate != nil && b.PurchaseDate != nil:
		if c := a.PurchaseDate.Compare(*b.PurchaseDate); c != 0 {
			return c
		}
	}
	return a.CreatedAt.Compare(b.CreatedAt)
}

func (r *LotRepo) Create(ctx context.Context, lot *stock.Lot) error {
	return r.store.write(ctx, func(d *state) error {
		if _, ok := d.lots.rows[lot.ID]; ok {
			return apperror.NewDuplicate("stock_lot", "id", lot.ID)
		}
		d.lots.put(lot.ID, *lot)
		return nil
	})
}

func (r *LotRepo) GetByID(_ context.Context, lotID id.ID) (*stock.Lot, error) {
	var out *stock.Lot
	err := r.store.read(func(d *state) error {
		lot, ok := d.lots.rows[lotID]
		if !ok {
			return apperror.NewNotFound("stock_lot", lotID)
		}
		out = &lot
		return nil
	})
	return out, err
}

func (r *LotRepo) GetForUpdate(ctx context.Context, lotID id.ID) (*stock.Lot, error) {
	return r.GetByID(ctx, lotID)
}

func (r *LotRepo) ListByVariant(_ context.Context, variantID id.ID, activeOnly bool) ([]stock.Lot, error) {
	var out []stock.Lot
	err := r.store.read(func(d *state) error {
		out = d.lots.ordered(func(l stock.Lot) bool {
			return l.VariantID == variantID && (!activeOnly || l.IsActive)
		}, fifoOrder)
		return nil
	})
	return out, err
}

func (r *LotRepo) ListActiveForUpdate(ctx context.Context, variantID id.ID) ([]stock.Lot, error) {
	return r.ListByVariant(ctx, variantID, true)
}

func (r *LotRepo) SumActiveQuantity(_ context.Context, variantID id.ID) (int, error) {
	total := 0
	err := r.store.read(func(d *state) error {
		for _, l := range d.lots.rows {
			if l.VariantID == variantID && l.IsActive {
				total += l.Quantity
			}
		}
		return nil
	})
	return total, err
}

func (r *LotRepo) Update(ctx context.Context, lot *stock.Lot) error {
	return r.store.write(ctx, func(d *state) error {
		if _, ok := d.lots.rows[lot.ID]; !ok {
			return apperror.NewNotFound("stock_lot", lot.ID)
		}
		d.lots.put(lot.ID, *lot)
		return nil
	})
}

func (r *LotRepo) UpdateQuantity(ctx context.Context, lotID id.ID, quantity int) error {
	return r.mutate(ctx, lotID, func(l *stock.Lot) { l.Quantity = max(quantity, 0) })
}

func (r *LotRepo) SetActive(ctx context.Context, lotID id.ID, active bool) (bool, error) {
	err := r.mutate(ctx, lotID, func(l *stock.Lot) { l.IsActive = active })
	if apperror.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (r *LotRepo) Delete(ctx context.Context, lotID id.ID) (bool, error) {
	var ok bool
	err := r.store.write(ctx, func(d *state) error {
		ok = d.lots.remove(lotID)
		return nil
	})
	return ok, err
}

func (r *LotRepo) mutate(ctx context.Context, lotID id.ID, fn func(l *stock.Lot)) error {
	return r.store.write(ctx, func(d *state) error {
		lot, ok := d.lots.rows[lotID]
		if !ok {
			return apperror.NewNotFound("stock_lot", lotID)
		}
		fn(&lot)
		lot.UpdatedAt = time.Now().UTC()
		d.lots.put(lotID, lot)
		return nil
	})
}
