package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStructRows(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	columns, rows := StructRows([]withEmbedded{
		{Stamped: Stamped{CreatedAt: now}, Name: "a", Note: "ignored"},
		{Name: "b"},
	})

	assert.Equal(t, []string{"created_at", "name"}, columns)
	require.Len(t, rows, 2)
	assert.Equal(t, []any{now, "a"}, rows[0])
	assert.Equal(t, []any{time.Time{}, "b"}, rows[1])
}

func TestBatch_RequiresTransaction(t *testing.T) {
	txm := &TxManager{}
	ctx := context.Background()

	_, err := NewBatchInserter(txm).CopyFromSlice(ctx, "users", []string{"id"}, [][]any{{"u1"}})
	assert.True(t, errors.Is(err, ErrNoTransaction))
}
