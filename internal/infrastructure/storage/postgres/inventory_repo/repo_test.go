package inventory_repo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
)

func TestLotRepo_ListActiveForUpdate(t *testing.T) {
	r := NewLotRepo(nil)

	sql, args, err := r.listQuery("v1", true).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "SELECT id, variant_id, quantity, cost_price"))
	assert.Contains(t, sql, "FROM stock_lots WHERE variant_id = $1 AND is_active = $2")
	assert.True(t, strings.HasSuffix(sql, "ORDER BY purchase_date ASC NULLS LAST, created_at ASC, id ASC FOR UPDATE"))
	assert.Equal(t, []any{"v1", true}, args)
}

func TestLotRepo_ListAll(t *testing.T) {
	r := NewLotRepo(nil)

	sql, args, err := r.listQuery("v1", false).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, sql, "is_active =")
	assert.Equal(t, []any{"v1"}, args)
}

func TestLotRepo_SumQuery(t *testing.T) {
	r := NewLotRepo(nil)

	sql, args, err := r.sumQuery("v1").ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT COALESCE(SUM(quantity), 0) FROM stock_lots WHERE is_active = $1 AND variant_id = $2", sql)
	assert.Equal(t, []any{true, "v1"}, args)
}

func TestLotRepo_UpdateQuery(t *testing.T) {
	r := NewLotRepo(nil)
	lot := &stock.Lot{ID: "l1", Quantity: 3, CostPrice: types.MustMoney("2"), IsActive: true}

	sql, args, err := r.updateQuery(lot).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "UPDATE stock_lots SET quantity = $1, cost_price = $2"))
	assert.True(t, strings.HasSuffix(sql, "WHERE id = $10"))
	assert.Equal(t, "l1", args[len(args)-1])
}

func TestVariantRepo_ListQuery(t *testing.T) {
	r := NewVariantRepo(nil)

	sql, args, err := r.listQuery("cp1").ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(sql, "FROM product_variants WHERE company_product_id = $1 ORDER BY is_default DESC, created_at ASC, id ASC"))
	assert.Equal(t, []any{"cp1"}, args)
}

func TestVariantRepo_ResetDefaultsQuery(t *testing.T) {
	r := NewVariantRepo(nil)

	sql, args, err := r.resetDefaultsQuery("cp1", "").ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE product_variants SET is_default = $1, updated_at = $2 WHERE company_product_id = $3 AND is_default = $4", sql)
	assert.Equal(t, false, args[0])
	assert.Equal(t, "cp1", args[2])

	sql, args, err = r.resetDefaultsQuery("cp1", "v9").ToSql()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(sql, "AND id <> $5"))
	assert.Equal(t, "v9", args[4])
}

func TestVariantRepo_InsertSkipsProjections(t *testing.T) {
	r := NewVariantRepo(nil)
	v := &variant.Variant{ID: "v1", CompanyProductID: "cp1", IsDefault: true, Name: "shown only"}

	sql, args, err := r.table.InsertQuery(v).ToSql()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(sql, "INSERT INTO product_variants (id,company_product_id,system_variant_id,variant_type,is_default"))
	assert.Len(t, args, 11)
	assert.NotContains(t, args, "shown only")
}
