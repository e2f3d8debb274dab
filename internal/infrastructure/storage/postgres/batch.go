package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// BatchInserter bulk-loads rows with the COPY protocol. Worth it from a few
// hundred rows up; the seeder uses it for catalog fixtures.
type BatchInserter struct {
	txManager *TxManager
}

// NewBatchInserter creates a new batch inserter.
func NewBatchInserter(txManager *TxManager) *BatchInserter {
	return &BatchInserter{txManager: txManager}
}

// CopyFromSlice COPYs rows into table. Each row follows columns.
func (b *BatchInserter) CopyFromSlice(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	tx := b.txManager.GetTx(ctx)
	if tx == nil {
		return 0, fmt.Errorf("copy into %s: %w", table, ErrNoTransaction)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := tx.CopyFrom(ctx, pgx.Identifier{table}, columns, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy into %s: %w", table, MapError(err))
	}
	return n, nil
}

// CopyStructs COPYs rows whose fields carry "db" tags.
func CopyStructs[T any](ctx context.Context, b *BatchInserter, table string, rows []T) (int64, error) {
	columns, values := StructRows(rows)
	return b.CopyFromSlice(ctx, table, columns, values)
}

// StructRows flattens tagged structs into COPY input.
func StructRows[T any](rows []T) ([]string, [][]any) {
	columns := ExtractDBColumns[T]()
	values := make([][]any, 0, len(rows))
	for i := range rows {
		data := StructToMap(&rows[i])
		row := make([]any, len(columns))
		for j, col := range columns {
			row[j] = data[col]
		}
		values = append(values, row)
	}
	return columns, values
}
