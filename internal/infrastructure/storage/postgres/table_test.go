package postgres

import (
	"testing"

	"github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type row struct {
	ID   string `db:"id"`
	Name string `db:"name"`
	Tmp  string `db:"-"`
}

func TestTable_InsertQuery(t *testing.T) {
	tbl := NewTable[row](nil, "things", "thing")

	sql, args, err := tbl.InsertQuery(&row{ID: "a", Name: "x"}, &row{ID: "b", Name: "y"}).ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO things (id,name) VALUES ($1,$2),($3,$4)", sql)
	assert.Equal(t, []any{"a", "x", "b", "y"}, args)
}

func TestTable_Select(t *testing.T) {
	tbl := NewTable[row](nil, "things", "thing")

	sql, args, err := tbl.Select().Where(squirrel.Eq{"id": "a"}).Suffix("FOR UPDATE").ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, name FROM things WHERE id = $1 FOR UPDATE", sql)
	assert.Equal(t, []any{"a"}, args)
	assert.Equal(t, "things", tbl.Name())
}
