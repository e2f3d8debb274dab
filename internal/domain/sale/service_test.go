package sale_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
	"tillpoint/internal/infrastructure/storage/memory"
)

type fixture struct {
	store    *memory.Store
	sales    *sale.Service
	stock    *stock.Service
	variants *variant.Service
	catalog  *catalog.Static
	clients  *memory.ClientRegistry
	audit    *memory.AuditLog
}

type option func(*fixtureConfig)

type fixtureConfig struct {
	cfg     sale.Config
	tracker sale.ClientTracker
}

func strict() option {
	return func(c *fixtureConfig) { c.cfg.StockPolicy = sale.StockPolicyStrict }
}

func withTracker(t sale.ClientTracker) option {
	return func(c *fixtureConfig) { c.tracker = t }
}

func newFixture(opts ...option) *fixture {
	store := memory.NewStore()
	txm := memory.NewTxManager(store)
	f := &fixture{
		store:   store,
		catalog: catalog.NewStatic(),
		clients: memory.NewClientRegistry(store),
		audit:   memory.NewAuditLog(store),
	}
	fc := fixtureConfig{cfg: sale.DefaultConfig(), tracker: f.clients}
	for _, opt := range opts {
		opt(&fc)
	}

	f.stock = stock.NewService(memory.NewLotRepo(store), txm, f.audit)
	f.variants = variant.NewService(memory.NewVariantRepo(store), f.stock, f.catalog, txm)
	f.sales = sale.NewService(
		memory.NewSaleRepo(store),
		saleitem.NewService(memory.NewItemRepo(store), txm),
		f.stock,
		f.variants,
		f.catalog,
		fc.tracker,
		f.audit,
		memory.NewSequences(store),
		txm,
		fc.cfg,
	)
	return f
}

// variantWithLots creates a variant of companyProductID and receives one lot
// per quantity, oldest first.
func (f *fixture) variantWithLots(t *testing.T, companyProductID id.ID, quantities ...int) id.ID {
	t.Helper()
	ctx := context.Background()
	v, err := f.variants.Create(ctx, companyProductID, variant.Spec{})
	require.NoError(t, err)
	for _, q := range quantities {
		_, err := f.variants.IntakeStock(ctx, v.ID, stock.IntakeInput{Quantity: q, UnitCost: types.MustMoney("2")})
		require.NoError(t, err)
	}
	return v.ID
}

func (f *fixture) available(t *testing.T, variantID id.ID) int {
	t.Helper()
	n, err := f.stock.TotalAvailable(context.Background(), variantID)
	require.NoError(t, err)
	return n
}

func money(s string) types.Money { return types.MustMoney(s) }

func assertMoney(t *testing.T, want string, got types.Money) {
	t.Helper()
	assert.True(t, money(want).Equal(got), "want %s, got %s", want, got.String())
}

// standardInput is a service at 2 × 10.00 plus a product at 3 × 5.00 with
// 10% off: subtotal 35, discount 1.5, total 33.5.
func standardInput(variantID id.ID) sale.CreateInput {
	return sale.CreateInput{
		CompanyID: "c1",
		UserID:    "u1",
		Services: []sale.ServiceLine{
			{ServiceID: "svc-cut", Quantity: 2, UnitPrice: money("10")},
		},
		Products: []sale.ProductLine{
			{VariantID: variantID, Quantity: 3, UnitPrice: money("5"), Discount: money("10")},
		},
		Subtotal:       money("35"),
		DiscountAmount: money("1.5"),
		TotalAmount:    money("33.5"),
	}
}

func TestCreateSale_RoundTrip(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 4)

	created, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)
	assert.Regexp(t, `^S-\d{4}-00001$`, created.Number)
	assertMoney(t, "35", created.Subtotal)
	assertMoney(t, "1.5", created.DiscountAmount)
	assertMoney(t, "33.5", created.TotalAmount)

	got, err := f.sales.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, saleitem.TypeService, got.Items[0].ItemType)
	assert.Equal(t, saleitem.TypeProduct, got.Items[1].ItemType)
	assert.Nil(t, got.Items[1].ServiceID)
	assertMoney(t, "33.5", got.TotalAmount)

	assert.Equal(t, 1, f.available(t, variantID))
}

func TestCreateSale_DeductsOldestLotsFirst(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 2, 5)

	in := standardInput(variantID)
	in.Products[0].Quantity = 4
	_, err := f.sales.CreateSale(ctx, in)
	require.NoError(t, err)

	lots, err := f.stock.ListByVariant(ctx, variantID, false)
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, 0, lots[0].Quantity)
	assert.Equal(t, 3, lots[1].Quantity)
}

func TestCreateSale_NoLotsStillSucceeds(t *testing.T) {
	f := newFixture()
	variantID := f.variantWithLots(t, "cp1")

	created, err := f.sales.CreateSale(context.Background(), standardInput(variantID))
	require.NoError(t, err)
	assert.False(t, id.IsNil(created.ID))
	assert.Equal(t, 0, f.available(t, variantID))
}

func TestCreateSale_StrictNoLotsSkipsDeduction(t *testing.T) {
	f := newFixture(strict())
	variantID := f.variantWithLots(t, "cp1")

	created, err := f.sales.CreateSale(context.Background(), standardInput(variantID))
	require.NoError(t, err)
	assertMoney(t, "33.5", created.TotalAmount)
	assert.Equal(t, 0, f.available(t, variantID))
}

func TestCreateSale_StrictDrainedLotsRollBack(t *testing.T) {
	f := newFixture(strict())
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 3)

	_, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)
	require.Equal(t, 0, f.available(t, variantID))

	_, err = f.sales.CreateSale(ctx, standardInput(variantID))
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)
}

func TestCreateSale_LenientShortfallDrainsLots(t *testing.T) {
	f := newFixture()
	variantID := f.variantWithLots(t, "cp1", 1)

	in := standardInput(variantID)
	in.Products[0].Quantity = 3
	_, err := f.sales.CreateSale(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 0, f.available(t, variantID))
}

func TestCreateSale_StrictShortfallRollsBack(t *testing.T) {
	f := newFixture(strict())
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 1)

	in := standardInput(variantID)
	in.Products[0].Quantity = 3
	_, err := f.sales.CreateSale(ctx, in)
	require.Error(t, err)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeInsufficientStock, appErr.Code)

	assert.Equal(t, 1, f.available(t, variantID))
	page, err := f.sales.ListByCompany(ctx, "c1", sale.ListFilter{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)

	// The receipt number of the failed sale is handed out again.
	in.Products[0].Quantity = 1
	created, err := f.sales.CreateSale(ctx, in)
	require.NoError(t, err)
	assert.Regexp(t, `-00001$`, created.Number)
}

func TestCreateSale_ComputedTotalsWin(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 5)

	in := standardInput(variantID)
	in.Subtotal, in.DiscountAmount, in.TotalAmount = money("999"), money("0"), money("999")
	created, err := f.sales.CreateSale(ctx, in)
	require.NoError(t, err)
	assertMoney(t, "33.5", created.TotalAmount)

	got, err := f.sales.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assertMoney(t, "35", got.Subtotal)
	assertMoney(t, "1.5", got.DiscountAmount)
	assertMoney(t, "33.5", got.TotalAmount)
}

func TestCreateSale_Validation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.sales.CreateSale(ctx, sale.CreateInput{CompanyID: "c1", Services: []sale.ServiceLine{{ServiceID: "s", Quantity: 1}}})
	assert.True(t, apperror.IsValidation(err))

	in := standardInput("v1")
	in.Products[0].Quantity = 0
	_, err = f.sales.CreateSale(ctx, in)
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, 1, appErr.Details["index"])
}

func TestCreateSale_WithoutLines(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	created, err := f.sales.CreateSale(ctx, sale.CreateInput{CompanyID: "c1", UserID: "u1"})
	require.NoError(t, err)
	assertMoney(t, "0", created.Subtotal)
	assertMoney(t, "0", created.DiscountAmount)
	assertMoney(t, "0", created.TotalAmount)

	got, err := f.sales.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Items)
}

func TestCreateSale_FractionalDiscountMatchesStoredFigures(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 5)

	in := sale.CreateInput{
		CompanyID: "c1",
		UserID:    "u1",
		Services:  []sale.ServiceLine{{ServiceID: "svc-cut", Quantity: 1, UnitPrice: money("1.00"), Discount: money("0.5")}},
		Products:  []sale.ProductLine{{VariantID: variantID, Quantity: 3, UnitPrice: money("3.33"), Discount: money("12.5")}},
	}
	created, err := f.sales.CreateSale(ctx, in)
	require.NoError(t, err)
	assertMoney(t, "10.99", created.Subtotal)
	assertMoney(t, "1.26", created.DiscountAmount)
	assertMoney(t, "9.73", created.TotalAmount)

	got, err := f.sales.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, got.TotalAmount.Equal(got.Subtotal.Sub(got.DiscountAmount)))
	assert.True(t, types.FitsScale(got.DiscountAmount), got.DiscountAmount.String())

	recalculated, err := f.sales.RecalculateTotals(ctx, created.ID)
	require.NoError(t, err)
	assertMoney(t, "9.73", recalculated.TotalAmount)
}

func TestCreateSale_NumbersPerCompany(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1")

	first, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)
	second, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)
	other := standardInput(variantID)
	other.CompanyID = "c2"
	third, err := f.sales.CreateSale(ctx, other)
	require.NoError(t, err)

	assert.Regexp(t, `-00001$`, first.Number)
	assert.Regexp(t, `-00002$`, second.Number)
	assert.Regexp(t, `-00001$`, third.Number)
}

func TestCreateSale_TracksClient(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1")

	for range 2 {
		_, err := f.sales.CreateSale(ctx, standardInput(variantID))
		require.NoError(t, err)
	}

	c, err := f.clients.Get(ctx, "c1", "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, c.VisitCount)
	assertMoney(t, "67", c.TotalSpent)
	assert.NotNil(t, c.LastSaleID)

	_, err = f.clients.Get(ctx, "c1", "someone-else")
	assert.True(t, apperror.IsNotFound(err))
}

type failingTracker struct{ calls int }

func (f *failingTracker) TrackSale(context.Context, sale.ClientActivity) error {
	f.calls++
	return errors.New("registry unavailable")
}

func TestCreateSale_TrackerFailureIsNotReturned(t *testing.T) {
	tracker := &failingTracker{}
	f := newFixture(withTracker(tracker))
	variantID := f.variantWithLots(t, "cp1", 3)

	created, err := f.sales.CreateSale(context.Background(), standardInput(variantID))
	require.NoError(t, err)
	assert.NotNil(t, created)
	assert.Equal(t, 1, tracker.calls)
}

func TestDeleteSaleItem_RecomputesTotals(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1", 3)
	created, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)
	productItem := created.Items[1]
	require.Equal(t, saleitem.TypeProduct, productItem.ItemType)

	updated, err := f.sales.DeleteSaleItem(ctx, created.ID, productItem.ID)
	require.NoError(t, err)
	assertMoney(t, "20", updated.Subtotal)
	assertMoney(t, "0", updated.DiscountAmount)
	assertMoney(t, "20", updated.TotalAmount)
	assert.Len(t, updated.Items, 1)

	_, err = f.sales.DeleteSaleItem(ctx, created.ID, productItem.ID)
	assert.True(t, apperror.IsNotFound(err))

	got, err := f.sales.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assertMoney(t, "20", got.TotalAmount)

	entries := f.audit.Entries("sale", created.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, productItem.ID, entries[0].Changes["item_id"])
}

func TestDeleteSaleItem_ItemOfAnotherSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1")
	a, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)
	b, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)

	_, err = f.sales.DeleteSaleItem(ctx, a.ID, b.Items[0].ID)
	assert.True(t, apperror.IsNotFound(err))

	got, err := f.sales.FindByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, got.Items, 2)
}

func TestDeleteSale(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1")
	created, err := f.sales.CreateSale(ctx, standardInput(variantID))
	require.NoError(t, err)

	ok, err := f.sales.DeleteSale(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = f.sales.FindByID(ctx, created.ID)
	assert.True(t, apperror.IsNotFound(err))

	ok, err = f.sales.DeleteSale(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	entries := f.audit.Entries("sale", created.ID)
	require.Len(t, entries, 1)
	assert.EqualValues(t, 2, entries[0].Changes["items_removed"])
}

func TestListByCompany(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	variantID := f.variantWithLots(t, "cp1")
	var ids []id.ID
	for range 3 {
		s, err := f.sales.CreateSale(ctx, standardInput(variantID))
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	page, err := f.sales.ListByCompany(ctx, "c1", sale.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, page.TotalCount)
	require.Len(t, page.Items, 2)
	assert.Equal(t, ids[2], page.Items[0].ID)
	assert.Equal(t, 2, page.Limit)

	empty, err := f.sales.ListByCompany(ctx, "c-none", sale.ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, empty.Items)
	assert.Empty(t, empty.Items)
	assert.Equal(t, 50, empty.Limit)
	assert.Equal(t, 0, empty.Offset)

	capped, err := f.sales.ListByCompany(ctx, "c1", sale.ListFilter{Limit: 1000, Offset: -5})
	require.NoError(t, err)
	assert.Equal(t, 200, capped.Limit)
	assert.Equal(t, 0, capped.Offset)
}

func TestEnrich_ResolvesNamesAndPlaceholders(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.catalog.PutService("svc-cut", "Haircut")
	f.catalog.PutCustomer("u1", "Ada Client")
	f.catalog.PutCompanyProduct(catalog.CompanyProduct{ID: "cp1", Name: "Shampoo", Unit: "bottle"})
	variantID := f.variantWithLots(t, "cp1", 5)

	in := standardInput(variantID)
	in.Services = append(in.Services, sale.ServiceLine{ServiceID: "svc-gone", Quantity: 1, UnitPrice: money("1")})
	in.Products = append(in.Products, sale.ProductLine{VariantID: "variant-gone", Quantity: 1, UnitPrice: money("1")})
	created, err := f.sales.CreateSale(ctx, in)
	require.NoError(t, err)

	got, err := f.sales.FindByID(ctx, created.ID)
	require.NoError(t, err)
	enriched := f.sales.Enrich(ctx, got)

	assert.Equal(t, "Ada Client", enriched.CustomerName)
	require.Len(t, enriched.Items, 4)

	names := map[string]sale.EnrichedItem{}
	for _, it := range enriched.Items {
		switch {
		case it.ServiceID != nil:
			names[*it.ServiceID] = it
		case it.VariantID != nil:
			names[*it.VariantID] = it
		}
	}
	assert.Equal(t, "Haircut", names["svc-cut"].Name)
	assert.Equal(t, sale.PlaceholderService, names["svc-gone"].Name)
	assert.Equal(t, "Shampoo", names[variantID].Name)
	assert.Equal(t, "bottle", names[variantID].Unit)
	require.NotNil(t, names[variantID].CompanyProductID)
	assert.Equal(t, "cp1", *names[variantID].CompanyProductID)
	assertMoney(t, "13.5", names[variantID].LineTotal)
	assert.Equal(t, sale.PlaceholderProduct, names["variant-gone"].Name)
	assert.Nil(t, names["variant-gone"].CompanyProductID)
}
