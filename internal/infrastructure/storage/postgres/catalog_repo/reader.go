// Package catalog_repo provides the PostgreSQL catalog.Reader over the
// catalog tables owned by the wider platform.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/infrastructure/storage/postgres"
)

var _ catalog.Reader = (*Reader)(nil)

// Reader implements catalog.Reader. Missing rows yield catalog.ErrNotFound.
type Reader struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
}

// NewReader creates a catalog reader.
func NewReader(txManager *postgres.TxManager) *Reader {
	return &Reader{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

func (r *Reader) get(ctx context.Context, dst any, q squirrel.SelectBuilder) error {
	sql, args, err := q.Limit(1).ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), dst, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return catalog.ErrNotFound
		}
		return err
	}
	return nil
}

func (r *Reader) systemVariantQuery(systemVariantID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("id", "name", "sku").
		From("system_variants").
		Where(squirrel.Eq{"id": systemVariantID})
}

func (r *Reader) SystemVariant(ctx context.Context, systemVariantID id.ID) (catalog.SystemVariant, error) {
	var sv catalog.SystemVariant
	if err := r.get(ctx, &sv, r.systemVariantQuery(systemVariantID)); err != nil {
		return catalog.SystemVariant{}, fmt.Errorf("system variant %s: %w", systemVariantID, err)
	}
	return sv, nil
}

func (r *Reader) companyProductQuery(companyProductID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("id", "name", "COALESCE(description, '') AS description", "COALESCE(unit, '') AS unit").
		From("company_products").
		Where(squirrel.Eq{"id": companyProductID})
}

func (r *Reader) CompanyProduct(ctx context.Context, companyProductID id.ID) (catalog.CompanyProduct, error) {
	var cp catalog.CompanyProduct
	if err := r.get(ctx, &cp, r.companyProductQuery(companyProductID)); err != nil {
		return catalog.CompanyProduct{}, fmt.Errorf("company product %s: %w", companyProductID, err)
	}
	return cp, nil
}

type nameRow struct {
	Name string `db:"name"`
}

func (r *Reader) ServiceName(ctx context.Context, serviceID id.ID) (string, error) {
	var row nameRow
	q := r.builder.Select("name").From("services").Where(squirrel.Eq{"id": serviceID})
	if err := r.get(ctx, &row, q); err != nil {
		return "", fmt.Errorf("service %s: %w", serviceID, err)
	}
	return row.Name, nil
}

func (r *Reader) customerQuery(userID id.ID) squirrel.SelectBuilder {
	return r.builder.Select("TRIM(CONCAT_WS(' ', first_name, last_name)) AS name").
		From("users").
		Where(squirrel.Eq{"id": userID})
}

func (r *Reader) CustomerName(ctx context.Context, userID id.ID) (string, error) {
	var row nameRow
	if err := r.get(ctx, &row, r.customerQuery(userID)); err != nil {
		return "", fmt.Errorf("customer %s: %w", userID, err)
	}
	return row.Name, nil
}
