package demo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
)

type recordingVariants struct {
	created map[id.ID]id.ID // variant -> company product
	intakes []stock.IntakeInput
}

func (r *recordingVariants) Create(_ context.Context, companyProductID id.ID, spec variant.Spec) (*variant.Variant, error) {
	v := &variant.Variant{ID: id.New(), CompanyProductID: companyProductID, SystemVariantID: spec.SystemVariantID}
	r.created[v.ID] = companyProductID
	return v, nil
}

func (r *recordingVariants) IntakeStock(_ context.Context, variantID id.ID, in stock.IntakeInput) (*stock.Lot, error) {
	in.VariantID = variantID
	r.intakes = append(r.intakes, in)
	return &stock.Lot{ID: id.New(), VariantID: variantID, Quantity: in.Quantity}, nil
}

func TestNew(t *testing.T) {
	data := New("company-1")

	assert.Len(t, data.SystemVariants(), len(data.Products))
	for _, p := range data.CompanyProducts() {
		assert.Equal(t, "company-1", p.CompanyID)
	}
	for _, s := range data.Services {
		assert.Equal(t, "company-1", s.CompanyID)
		assert.True(t, s.Price.IsPositive())
	}
	require.NotEmpty(t, data.Users)
}

func TestFillCatalog(t *testing.T) {
	data := New("company-1")
	c := catalog.NewStatic()
	data.FillCatalog(c)
	ctx := context.Background()

	name, err := c.ServiceName(ctx, data.Services[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Haircut", name)

	p, err := c.CompanyProduct(ctx, data.Products[0].Product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Shampoo 250ml", p.Name)
	assert.Equal(t, "pcs", p.Unit)

	sv, err := c.SystemVariant(ctx, data.Products[1].SystemVariant.ID)
	require.NoError(t, err)
	assert.Equal(t, "WX-100", sv.SKU)

	customer, err := c.CustomerName(ctx, data.Users[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Anna Kovalenko", customer)
}

func TestSeedInventory(t *testing.T) {
	data := New("company-1")
	rec := &recordingVariants{created: map[id.ID]id.ID{}}
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	require.NoError(t, data.SeedInventory(context.Background(), rec, now))

	assert.Len(t, rec.created, len(data.Products))
	lots := 0
	for _, p := range data.Products {
		lots += len(p.Lots)
	}
	require.Len(t, rec.intakes, lots)

	first := rec.intakes[0]
	require.NotNil(t, first.PurchaseDate)
	assert.Equal(t, now.AddDate(0, 0, -30), *first.PurchaseDate)
	assert.Equal(t, 10, first.Quantity)
	assert.Equal(t, "9.9", first.SellPrice.String())
}
