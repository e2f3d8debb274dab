package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
)

// Table is the CRUD plumbing a repository needs for one table whose rows map
// onto T through "db" tags. Queries run on the transaction in ctx when there
// is one.
type Table[T any] struct {
	name      string
	entity    string
	columns   []string
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewTable creates the helper. entity names the row kind in NOT_FOUND errors.
func NewTable[T any](txManager *TxManager, name, entity string) *Table[T] {
	return &Table[T]{
		name:      name,
		entity:    entity,
		columns:   ExtractDBColumns[T](),
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Name returns the table name.
func (t *Table[T]) Name() string { return t.name }

// Columns returns the mapped columns in struct order.
func (t *Table[T]) Columns() []string { return t.columns }

// Builder returns a squirrel builder with PostgreSQL placeholders.
func (t *Table[T]) Builder() squirrel.StatementBuilderType { return t.builder }

// Querier returns the transaction in ctx or the pool.
func (t *Table[T]) Querier(ctx context.Context) Querier { return t.txManager.GetQuerier(ctx) }

// Select starts a SELECT of every mapped column.
func (t *Table[T]) Select() squirrel.SelectBuilder {
	return t.builder.Select(t.columns...).From(t.name)
}

// InsertQuery builds a multi-row INSERT. Values follow Columns().
func (t *Table[T]) InsertQuery(rows ...*T) squirrel.InsertBuilder {
	q := t.builder.Insert(t.name).Columns(t.columns...)
	for _, row := range rows {
		data := StructToMap(row)
		values := make([]any, len(t.columns))
		for i, col := range t.columns {
			values[i] = data[col]
		}
		q = q.Values(values...)
	}
	return q
}

// Insert writes rows in one statement.
func (t *Table[T]) Insert(ctx context.Context, rows ...*T) error {
	if len(rows) == 0 {
		return nil
	}
	if _, err := t.Exec(ctx, t.InsertQuery(rows...)); err != nil {
		return fmt.Errorf("insert %s: %w", t.name, err)
	}
	return nil
}

// Get runs q and scans exactly one row. No row becomes NOT_FOUND for key.
func (t *Table[T]) Get(ctx context.Context, q squirrel.SelectBuilder, key id.ID) (*T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	row := new(T)
	if err := pgxscan.Get(ctx, t.txManager.GetQuerier(ctx), row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound(t.entity, key)
		}
		return nil, fmt.Errorf("get %s: %w", t.entity, err)
	}
	return row, nil
}

// GetByID loads one row by primary key, optionally locking it.
func (t *Table[T]) GetByID(ctx context.Context, key id.ID, forUpdate bool) (*T, error) {
	q := t.Select().Where(squirrel.Eq{"id": key}).Limit(1)
	if forUpdate {
		q = q.Suffix("FOR UPDATE")
	}
	return t.Get(ctx, q, key)
}

// List runs q and scans every row. No rows yields an empty slice.
func (t *Table[T]) List(ctx context.Context, q squirrel.SelectBuilder) ([]T, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	out := []T{}
	if err := pgxscan.Select(ctx, t.txManager.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", t.name, err)
	}
	return out, nil
}

// Exec runs a statement and returns the affected row count. Constraint
// violations come back as AppErrors.
func (t *Table[T]) Exec(ctx context.Context, q squirrel.Sqlizer) (int64, error) {
	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build statement: %w", err)
	}
	tag, err := t.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, MapError(err)
	}
	return tag.RowsAffected(), nil
}

// DeleteByID removes one row and reports whether it existed.
func (t *Table[T]) DeleteByID(ctx context.Context, key id.ID) (bool, error) {
	n, err := t.Exec(ctx, t.builder.Delete(t.name).Where(squirrel.Eq{"id": key}))
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", t.entity, err)
	}
	return n > 0, nil
}

// Count runs a COUNT(*) over q.
func (t *Table[T]) Count(ctx context.Context, q squirrel.SelectBuilder) (int, error) {
	sql, args, err := t.builder.Select("COUNT(*)").FromSelect(q, "sub").ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count: %w", err)
	}
	var n int
	if err := t.txManager.GetQuerier(ctx).QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", t.name, err)
	}
	return n, nil
}

// ErrNoTransaction is returned by writes that must join a caller transaction.
var ErrNoTransaction = errors.New("operation requires transaction context")
