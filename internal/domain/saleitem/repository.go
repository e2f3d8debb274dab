package saleitem

import (
	"context"

	"tillpoint/internal/core/id"
)

// Repository defines persistence for sale items.
type Repository interface {
	// CreateMany inserts all items in one statement.
	CreateMany(ctx context.Context, items []Item) error

	// ListBySale orders services before products, each by created_at.
	ListBySale(ctx context.Context, saleID id.ID) ([]Item, error)

	// GetByID returns NOT_FOUND for an unknown item.
	GetByID(ctx context.Context, itemID id.ID) (*Item, error)

	Delete(ctx context.Context, itemID id.ID) (bool, error)
	DeleteBySale(ctx context.Context, saleID id.ID) (int64, error)
}
