package saleitem

import (
	"context"
	"fmt"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
)

// Service provides operations on sale lines.
type Service struct {
	repo      Repository
	txManager tx.Manager
	now       func() time.Time
}

// NewService creates a new sale item service.
func NewService(repo Repository, txManager tx.Manager) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ValidateAll checks every input and tags the failing line with its index.
func ValidateAll(ctx context.Context, inputs []Input) error {
	for i, in := range inputs {
		if err := in.Validate(ctx); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("index", i)
			}
			return err
		}
	}
	return nil
}

// CreateBulk persists the lines of a sale. Inside a caller transaction it
// joins it; standalone it runs in its own.
func (s *Service) CreateBulk(ctx context.Context, saleID id.ID, inputs []Input) ([]Item, error) {
	if id.IsNil(saleID) {
		return nil, apperror.NewRequired("saleId")
	}
	if err := ValidateAll(ctx, inputs); err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return []Item{}, nil
	}

	now := s.now()
	items := make([]Item, len(inputs))
	for i, in := range inputs {
		items[i] = newItem(saleID, in, now)
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.CreateMany(ctx, items)
	})
	if err != nil {
		return nil, fmt.Errorf("insert sale items: %w", err)
	}
	return items, nil
}

// FindBySaleID returns the lines of a sale, services first.
func (s *Service) FindBySaleID(ctx context.Context, saleID id.ID) ([]Item, error) {
	if id.IsNil(saleID) {
		return nil, apperror.NewRequired("saleId")
	}
	return s.repo.ListBySale(ctx, saleID)
}

// GetByID returns a single line.
func (s *Service) GetByID(ctx context.Context, itemID id.ID) (*Item, error) {
	if id.IsNil(itemID) {
		return nil, apperror.NewRequired("itemId")
	}
	return s.repo.GetByID(ctx, itemID)
}

// DeleteByID reports whether the line existed.
func (s *Service) DeleteByID(ctx context.Context, itemID id.ID) (bool, error) {
	ok, err := s.repo.Delete(ctx, itemID)
	if err != nil {
		return false, fmt.Errorf("delete sale item: %w", err)
	}
	return ok, nil
}

// DeleteBySaleID removes every line of a sale and returns how many went.
func (s *Service) DeleteBySaleID(ctx context.Context, saleID id.ID) (int64, error) {
	n, err := s.repo.DeleteBySale(ctx, saleID)
	if err != nil {
		return 0, fmt.Errorf("delete sale items: %w", err)
	}
	return n, nil
}
