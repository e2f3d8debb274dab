package sale

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/saleitem"
)

// Repository defines persistence for sale headers.
type Repository interface {
	Create(ctx context.Context, s *Sale) error

	// GetByID returns NOT_FOUND for an unknown sale.
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)

	// GetForUpdate is GetByID with a row lock on the header.
	GetForUpdate(ctx context.Context, saleID id.ID) (*Sale, error)

	UpdateTotals(ctx context.Context, saleID id.ID, totals saleitem.Totals, updatedAt time.Time) error

	Delete(ctx context.Context, saleID id.ID) (bool, error)

	// ListByCompany returns headers newest first plus the unpaged count.
	ListByCompany(ctx context.Context, companyID id.ID, filter ListFilter) ([]Sale, int, error)
}
