package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/stock"
)

func testLot(id string, qty int) *stock.Lot {
	now := time.Now().UTC()
	return &stock.Lot{ID: id, VariantID: "v1", Quantity: qty, CostPrice: types.MustMoney("1"), IsActive: true, CreatedAt: now, UpdatedAt: now}
}

func TestTxManager_RollbackRestoresState(t *testing.T) {
	store := NewStore()
	txm := NewTxManager(store)
	lots := NewLotRepo(store)
	ctx := context.Background()
	require.NoError(t, lots.Create(ctx, testLot("l1", 5)))

	boom := errors.New("boom")
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		require.True(t, txm.InTransaction(ctx))
		require.NoError(t, lots.UpdateQuantity(ctx, "l1", 0))
		require.NoError(t, lots.Create(ctx, testLot("l2", 3)))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := lots.GetByID(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Quantity)
	_, err = lots.GetByID(ctx, "l2")
	assert.True(t, apperror.IsNotFound(err))
}

func TestTxManager_NestedCallsJoin(t *testing.T) {
	store := NewStore()
	txm := NewTxManager(store)
	lots := NewLotRepo(store)
	ctx := context.Background()

	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
			return lots.Create(ctx, testLot("l1", 1))
		}); err != nil {
			return err
		}
		return errors.New("outer fails")
	})
	require.Error(t, err)

	_, err = lots.GetByID(ctx, "l1")
	assert.True(t, apperror.IsNotFound(err))
	assert.False(t, txm.InTransaction(ctx))
}

func TestTxManager_OtherStoreIsNotJoined(t *testing.T) {
	a, b := NewStore(), NewStore()
	txA, txB := NewTxManager(a), NewTxManager(b)

	err := txA.RunInTransaction(context.Background(), func(ctx context.Context) error {
		assert.False(t, txB.InTransaction(ctx))
		return nil
	})
	require.NoError(t, err)
}

func TestLotRepo_FIFOOrder(t *testing.T) {
	store := NewStore()
	lots := NewLotRepo(store)
	ctx := context.Background()
	early := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.AddDate(0, 1, 0)

	undated := testLot("undated", 1)
	newer := testLot("newer", 1)
	newer.PurchaseDate = &late
	older := testLot("older", 1)
	older.PurchaseDate = &early
	inactive := testLot("inactive", 1)
	inactive.IsActive = false
	for _, l := range []*stock.Lot{undated, newer, older, inactive} {
		require.NoError(t, lots.Create(ctx, l))
	}

	got, err := lots.ListActiveForUpdate(ctx, "v1")
	require.NoError(t, err)
	var order []string
	for _, l := range got {
		order = append(order, l.ID)
	}
	assert.Equal(t, []string{"older", "newer", "undated"}, order)
}
