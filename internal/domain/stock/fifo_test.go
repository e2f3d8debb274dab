package stock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/types"
)

func lotAt(lotID string, qty int, cost string, day int) Lot {
	d := time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC)
	return Lot{ID: lotID, VariantID: "v1", Quantity: qty, CostPrice: types.MustMoney(cost), PurchaseDate: &d, IsActive: true}
}

func TestAllocateFIFO_OldestFirst(t *testing.T) {
	lots := []Lot{lotAt("L1", 5, "2", 1), lotAt("L2", 5, "3", 2)}

	alloc := allocateFIFO("v1", lots, 7)

	assert.Equal(t, 7, alloc.Allocated)
	assert.Equal(t, 0, alloc.Shortfall)
	require.Len(t, alloc.Lots, 2)
	assert.Equal(t, LotDraw{LotID: "L1", Taken: 5, Remaining: 0, UnitCost: types.MustMoney("2")}, alloc.Lots[0])
	assert.Equal(t, "L2", alloc.Lots[1].LotID)
	assert.Equal(t, 2, alloc.Lots[1].Taken)
	assert.Equal(t, 3, alloc.Lots[1].Remaining)
	assert.True(t, types.MustMoney("16").Equal(alloc.CostOfGoods))
	assert.Equal(t, 0, lots[0].Quantity)
	assert.Equal(t, 3, lots[1].Quantity)
}

func TestAllocateFIFO_ShortfallFloorsAtZero(t *testing.T) {
	lots := []Lot{lotAt("L1", 2, "1", 1), lotAt("L2", 1, "1", 2)}

	alloc := allocateFIFO("v1", lots, 10)

	assert.Equal(t, 3, alloc.Allocated)
	assert.Equal(t, 7, alloc.Shortfall)
	assert.False(t, alloc.NoStock())
	for _, l := range lots {
		assert.Equal(t, 0, l.Quantity)
	}
}

func TestAllocateFIFO_SkipsInactiveAndEmpty(t *testing.T) {
	inactive := lotAt("L1", 9, "1", 1)
	inactive.IsActive = false
	lots := []Lot{inactive, lotAt("L2", 0, "1", 2), lotAt("L3", 4, "1", 3)}

	alloc := allocateFIFO("v1", lots, 3)

	require.Len(t, alloc.Lots, 1)
	assert.Equal(t, "L3", alloc.Lots[0].LotID)
	assert.Equal(t, 9, lots[0].Quantity)
	assert.Equal(t, 2, alloc.ActiveLots)
}

func TestAllocateFIFO_DrainedLotsAreNotNoStock(t *testing.T) {
	inactive := lotAt("L1", 5, "1", 1)
	inactive.IsActive = false

	alloc := allocateFIFO("v1", []Lot{inactive, lotAt("L2", 0, "1", 2)}, 2)

	assert.False(t, alloc.NoStock())
	assert.Equal(t, 2, alloc.Shortfall)
	assert.Empty(t, alloc.Lots)

	alloc = allocateFIFO("v1", []Lot{inactive}, 2)
	assert.True(t, alloc.NoStock())
}

func TestAllocateFIFO_NoLots(t *testing.T) {
	alloc := allocateFIFO("v1", nil, 4)

	assert.True(t, alloc.NoStock())
	assert.Equal(t, 4, alloc.Shortfall)
	assert.True(t, alloc.CostOfGoods.IsZero())
}
