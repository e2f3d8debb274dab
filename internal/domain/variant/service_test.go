package variant_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
	"tillpoint/internal/infrastructure/storage/memory"
)

type fixture struct {
	svc     *variant.Service
	stock   *stock.Service
	catalog *catalog.Static
	txm     *memory.TxManager
}

func newFixture() fixture {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	stockSvc := stock.NewService(memory.NewLotRepo(store), txm, nil)
	cat := catalog.NewStatic()
	return fixture{
		svc:     variant.NewService(memory.NewVariantRepo(store), stockSvc, cat, txm),
		stock:   stockSvc,
		catalog: cat,
		txm:     txm,
	}
}

func boolPtr(b bool) *bool { return &b }

func defaults(vs []variant.Variant) int {
	n := 0
	for _, v := range vs {
		if v.IsDefault {
			n++
		}
	}
	return n
}

func TestCreate_FirstVariantBecomesDefault(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "cp1", variant.Spec{IsDefault: boolPtr(false)})
	require.NoError(t, err)
	assert.True(t, first.IsDefault)
	assert.True(t, first.IsActive)

	second, err := f.svc.Create(ctx, "cp1", variant.Spec{})
	require.NoError(t, err)
	assert.False(t, second.IsDefault)
}

func TestCreate_ExplicitDefaultResetsSiblings(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.svc.Create(ctx, "cp1", variant.Spec{})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, "cp1", variant.Spec{IsDefault: boolPtr(true)})
	require.NoError(t, err)

	list, err := f.svc.FindByCompanyProductID(ctx, "cp1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, 1, defaults(list))
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
	assert.False(t, list[1].IsDefault)
}

func TestCreateBulk_SingleVariantBecomesDefault(t *testing.T) {
	f := newFixture()

	vs, err := f.svc.CreateBulk(context.Background(), "cp1", []variant.Spec{{}})
	require.NoError(t, err)
	require.Len(t, vs, 1)
	assert.True(t, vs[0].IsDefault)
}

func TestCreateBulk_TwoVariantsNoFlag(t *testing.T) {
	f := newFixture()

	vs, err := f.svc.CreateBulk(context.Background(), "cp1", []variant.Spec{{}, {}})
	require.NoError(t, err)
	require.Len(t, vs, 2)
	assert.False(t, vs[0].IsDefault)
	assert.False(t, vs[1].IsDefault)
}

func TestCreateBulk_OnlyFirstRequestedDefaultWins(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	existing, err := f.svc.Create(ctx, "cp1", variant.Spec{})
	require.NoError(t, err)
	require.True(t, existing.IsDefault)

	vs, err := f.svc.CreateBulk(ctx, "cp1", []variant.Spec{
		{},
		{IsDefault: boolPtr(true)},
		{IsDefault: boolPtr(true)},
	})
	require.NoError(t, err)
	assert.False(t, vs[0].IsDefault)
	assert.True(t, vs[1].IsDefault)
	assert.False(t, vs[2].IsDefault)

	list, err := f.svc.FindByCompanyProductID(ctx, "cp1")
	require.NoError(t, err)
	assert.Len(t, list, 4)
	assert.Equal(t, 1, defaults(list))
	assert.Equal(t, vs[1].ID, list[0].ID)
}

func TestCreateBulk_AdoptsCallerTransaction(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	err := f.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := f.svc.CreateBulk(ctx, "cp1", []variant.Spec{{}, {}}); err != nil {
			return err
		}
		return apperror.NewConflict("caller aborts")
	})
	require.Error(t, err)

	list, err := f.svc.FindByCompanyProductID(ctx, "cp1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateBulk_ValidationTagsIndex(t *testing.T) {
	f := newFixture()
	neg := -1

	_, err := f.svc.CreateBulk(context.Background(), "cp1", []variant.Spec{{}, {MinStock: &neg}})
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, 1, appErr.Details["index"])
}

func TestUpdate_SetDefaultKeepsSingleDefault(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	first, err := f.svc.Create(ctx, "cp1", variant.Spec{})
	require.NoError(t, err)
	second, err := f.svc.Create(ctx, "cp1", variant.Spec{})
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, second.ID, variant.Patch{IsDefault: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, updated.IsDefault)

	reloaded, err := f.svc.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)

	_, err = f.svc.Update(ctx, "missing", variant.Patch{})
	assert.True(t, apperror.IsNotFound(err))
}

func TestIntakeStock_SetsActiveStockOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	sysID := "sv1"
	f.catalog.PutSystemVariant(catalog.SystemVariant{ID: sysID, Name: "Shampoo 250ml", SKU: "SH-250"})
	v, err := f.svc.Create(ctx, "cp1", variant.Spec{SystemVariantID: &sysID})
	require.NoError(t, err)

	sell := types.MustMoney("9.90")
	first, err := f.svc.IntakeStock(ctx, v.ID, stock.IntakeInput{Quantity: 5, UnitCost: types.MustMoney("4"), SellPrice: &sell})
	require.NoError(t, err)
	_, err = f.svc.IntakeStock(ctx, v.ID, stock.IntakeInput{Quantity: 3, UnitCost: types.MustMoney("4.5")})
	require.NoError(t, err)

	got, err := f.svc.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shampoo 250ml", got.Name)
	assert.Equal(t, "SH-250", got.SKU)
	require.NotNil(t, got.ActiveStock)
	assert.Equal(t, first.ID, got.ActiveStock.LotID)
	assert.Equal(t, 5, got.ActiveStock.Quantity)
	assert.True(t, sell.Equal(*got.ActiveStock.SellPrice))

	total, err := f.stock.TotalAvailable(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, total)
}

func TestIntakeStock_UnknownVariant(t *testing.T) {
	f := newFixture()

	_, err := f.svc.IntakeStock(context.Background(), "missing", stock.IntakeInput{Quantity: 1})
	assert.True(t, apperror.IsNotFound(err))
}

func TestFindByID_CatalogFailureLeavesNameEmpty(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ghost := "sv-ghost"
	v, err := f.svc.Create(ctx, "cp1", variant.Spec{SystemVariantID: &ghost})
	require.NoError(t, err)

	got, err := f.svc.FindByID(ctx, v.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Name)
	assert.Nil(t, got.ActiveStock)
}

func TestDelete(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	v, err := f.svc.Create(ctx, "cp1", variant.Spec{})
	require.NoError(t, err)

	ok, err := f.svc.Delete(ctx, v.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.Delete(ctx, v.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}
