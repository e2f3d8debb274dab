package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/config"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/sale"
)

func TestLoadDemo_EnrichedSaleShowsCatalogNames(t *testing.T) {
	c := NewMemory(&config.Config{StockPolicy: "strict", IdempotencyTTL: time.Hour})
	ctx := context.Background()

	data, err := c.LoadDemo(ctx, "c-demo")
	require.NoError(t, err)

	ctx = appctx.WithPrincipal(ctx, &appctx.Principal{CompanyID: "c-demo", UserID: data.Users[0].ID})
	shampoo := data.Products[0]
	variants, err := c.Variants.FindByCompanyProductID(ctx, shampoo.Product.ID)
	require.NoError(t, err)
	require.Len(t, variants, 1)
	assert.Equal(t, "SH-250", variants[0].SKU)

	available, err := c.Stock.TotalAvailable(ctx, variants[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 30, available)

	created, err := c.Sales.CreateSale(ctx, sale.CreateInput{
		CompanyID: "c-demo",
		UserID:    data.Users[1].ID,
		Services: []sale.ServiceLine{
			{ServiceID: data.Services[0].ID, Quantity: 1, UnitPrice: types.MustMoney("25")},
		},
		Products: []sale.ProductLine{
			{VariantID: variants[0].ID, Quantity: 2, UnitPrice: types.MustMoney("9.90")},
		},
		Subtotal:       types.MustMoney("44.80"),
		DiscountAmount: types.MustMoney("0"),
		TotalAmount:    types.MustMoney("44.80"),
	})
	require.NoError(t, err)

	enriched := c.Sales.Enrich(ctx, created)
	assert.Equal(t, "Marta Shevchuk", enriched.CustomerName)
	require.Len(t, enriched.Items, 2)
	names := []string{enriched.Items[0].Name, enriched.Items[1].Name}
	assert.ElementsMatch(t, []string{"Haircut", "Shampoo 250ml"}, names)
	assert.NotContains(t, names, sale.PlaceholderProduct)
}

func TestLoadDemo_RequiresMemoryCatalog(t *testing.T) {
	_, err := (&Container{}).LoadDemo(context.Background(), "c-demo")
	assert.Error(t, err)
}
