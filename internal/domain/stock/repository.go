package stock

import (
	"context"

	"tillpoint/internal/core/id"
)

// Repository defines persistence for stock lots.
// Implementations pick up the active transaction from ctx when present.
type Repository interface {
	Create(ctx context.Context, lot *Lot) error

	// GetByID returns NOT_FOUND for an unknown lot.
	GetByID(ctx context.Context, lotID id.ID) (*Lot, error)

	// GetForUpdate is GetByID with a row lock.
	GetForUpdate(ctx context.Context, lotID id.ID) (*Lot, error)

	// ListByVariant returns lots oldest first:
	// purchase_date ASC NULLS LAST, created_at ASC.
	ListByVariant(ctx context.Context, variantID id.ID, activeOnly bool) ([]Lot, error)

	// ListActiveForUpdate returns active lots in FIFO order and locks them
	// (SELECT ... FOR UPDATE) until the surrounding transaction ends.
	ListActiveForUpdate(ctx context.Context, variantID id.ID) ([]Lot, error)

	// SumActiveQuantity returns 0 when the variant has no active lots.
	SumActiveQuantity(ctx context.Context, variantID id.ID) (int, error)

	// Update persists every mutable field of lot. NOT_FOUND when no row matched.
	Update(ctx context.Context, lot *Lot) error

	// UpdateQuantity sets quantity (already floored at 0 by the caller).
	UpdateQuantity(ctx context.Context, lotID id.ID, quantity int) error

	// SetActive reports whether a row was affected.
	SetActive(ctx context.Context, lotID id.ID, active bool) (bool, error)

	// Delete is a hard delete and reports whether a row was affected.
	Delete(ctx context.Context, lotID id.ID) (bool, error)
}
