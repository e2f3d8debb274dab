// Package catalog defines the read-only view of the product catalog, service
// list and customer registry that the inventory and sale packages consult for
// display fields. Every lookup is best-effort: callers degrade to placeholders
// on error instead of failing.
package catalog

import (
	"context"
	"errors"

	"tillpoint/internal/core/id"
)

// ErrNotFound is returned by Reader implementations for unknown ids.
var ErrNotFound = errors.New("catalog entry not found")

// SystemVariant is the catalog-level variant a company variant inherits its
// name and SKU from.
type SystemVariant struct {
	ID   id.ID  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
	SKU  string `db:"sku" json:"sku"`
}

// CompanyProduct is a company's listing of a catalog product.
type CompanyProduct struct {
	ID          id.ID  `db:"id" json:"id"`
	Name        string `db:"name" json:"name"`
	Description string `db:"description" json:"description"`
	Unit        string `db:"unit" json:"unit"`
}

// Reader looks up display data by id.
type Reader interface {
	SystemVariant(ctx context.Context, systemVariantID id.ID) (SystemVariant, error)
	CompanyProduct(ctx context.Context, companyProductID id.ID) (CompanyProduct, error)
	ServiceName(ctx context.Context, serviceID id.ID) (string, error)
	CustomerName(ctx context.Context, userID id.ID) (string, error)
}
