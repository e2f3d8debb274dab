package stock

import (
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
)

// LotDraw records how much one lot contributed to a deduction.
type LotDraw struct {
	LotID     id.ID       `json:"lotId"`
	Taken     int         `json:"taken"`
	Remaining int         `json:"remaining"`
	UnitCost  types.Money `json:"unitCost"`
}

// Allocation is the outcome of a FIFO deduction.
// Shortfall > 0 means the active lots could not cover the request.
type Allocation struct {
	VariantID   id.ID       `json:"variantId"`
	Requested   int         `json:"requested"`
	Allocated   int         `json:"allocated"`
	Shortfall   int         `json:"shortfall"`
	Lots        []LotDraw   `json:"lots"`
	CostOfGoods types.Money `json:"costOfGoods"`
	// ActiveLots counts the active lots considered, drained ones included.
	ActiveLots int `json:"activeLots"`
}

// NoStock reports whether the variant has no active lot at all. Active lots
// that are drained to 0 still count: running out is a shortfall.
func (a Allocation) NoStock() bool {
	return a.ActiveLots == 0
}

// allocateFIFO walks lots in the given order (oldest first) and takes
// min(remaining, lot.Quantity) from each until the request is covered.
// Lots are modified in place; only lots that were touched are reported.
func allocateFIFO(variantID id.ID, lots []Lot, quantity int) Allocation {
	alloc := Allocation{
		VariantID:   variantID,
		Requested:   quantity,
		CostOfGoods: types.Zero(),
	}

	remaining := quantity
	for i := range lots {
		lot := &lots[i]
		if !lot.IsActive {
			continue
		}
		alloc.ActiveLots++
		if remaining <= 0 || lot.Quantity <= 0 {
			continue
		}

		take := min(remaining, lot.Quantity)
		lot.Quantity = max(lot.Quantity-take, 0)
		remaining -= take

		alloc.Lots = append(alloc.Lots, LotDraw{
			LotID:     lot.ID,
			Taken:     take,
			Remaining: lot.Quantity,
			UnitCost:  lot.CostPrice,
		})
		alloc.CostOfGoods = alloc.CostOfGoods.Add(types.LineAmount(take, lot.CostPrice))
	}

	alloc.Allocated = quantity - remaining
	alloc.Shortfall = remaining
	return alloc
}
