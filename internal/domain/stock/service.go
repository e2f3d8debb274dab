package stock

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/audit"
	"tillpoint/pkg/logger"
)

var tracer = otel.Tracer("tillpoint/stock")

const auditEntity = "stock_lot"

// Service provides business operations for the stock ledger.
type Service struct {
	repo      Repository
	txManager tx.Manager
	audit     audit.Recorder
	now       func() time.Time
}

// NewService creates a new stock ledger service. recorder may be nil.
func NewService(repo Repository, txManager tx.Manager, recorder audit.Recorder) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &Service{
		repo:      repo,
		txManager: txManager,
		audit:     recorder,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Intake records a new lot for a variant.
// Pointing the variant's active stock at the new lot is the variant
// registry's job (variant.Service.IntakeStock).
func (s *Service) Intake(ctx context.Context, in IntakeInput) (*Lot, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	lot := newLot(in, s.now())
	if err := s.repo.Create(ctx, lot); err != nil {
		return nil, fmt.Errorf("create lot: %w", err)
	}

	logger.Info(ctx, "stock lot received",
		"lot_id", lot.ID,
		"variant_id", lot.VariantID,
		"quantity", lot.Quantity,
	)
	return lot, nil
}

// GetByID retrieves a single lot.
func (s *Service) GetByID(ctx context.Context, lotID id.ID) (*Lot, error) {
	if id.IsNil(lotID) {
		return nil, apperror.NewRequired("lotId")
	}
	return s.repo.GetByID(ctx, lotID)
}

// ListByVariant returns the variant's lots, oldest purchase first.
func (s *Service) ListByVariant(ctx context.Context, variantID id.ID, activeOnly bool) ([]Lot, error) {
	if id.IsNil(variantID) {
		return nil, apperror.NewRequired("variantId")
	}
	return s.repo.ListByVariant(ctx, variantID, activeOnly)
}

// TotalAvailable sums quantity over active lots. No lots yields 0.
func (s *Service) TotalAvailable(ctx context.Context, variantID id.ID) (int, error) {
	if id.IsNil(variantID) {
		return 0, apperror.NewRequired("variantId")
	}
	total, err := s.repo.SumActiveQuantity(ctx, variantID)
	if err != nil {
		return 0, fmt.Errorf("sum active quantity: %w", err)
	}
	return total, nil
}

// Update applies a partial update to a lot under a row lock.
func (s *Service) Update(ctx context.Context, lotID id.ID, patch LotPatch) (*Lot, error) {
	var updated *Lot
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lot, err := s.repo.GetForUpdate(ctx, lotID)
		if err != nil {
			return err
		}
		before := lot.auditState()
		if err := patch.Apply(lot); err != nil {
			return err
		}
		lot.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, lot); err != nil {
			return fmt.Errorf("update lot: %w", err)
		}
		updated = lot

		changes := audit.Diff(before, lot.auditState())
		if len(changes) == 0 {
			return nil
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: auditEntity,
			EntityID:   lotID,
			Action:     audit.ActionUpdate,
			Changes:    changes,
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Deactivate soft-removes a lot; its history is kept.
func (s *Service) Deactivate(ctx context.Context, lotID id.ID) error {
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		ok, err := s.repo.SetActive(ctx, lotID, false)
		if err != nil {
			return fmt.Errorf("deactivate lot: %w", err)
		}
		if !ok {
			return apperror.NewNotFound(auditEntity, lotID)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: auditEntity,
			EntityID:   lotID,
			Action:     audit.ActionDeactivate,
		})
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "stock lot deactivated", "lot_id", lotID)
	return nil
}

// Delete hard-removes a lot and reports whether it existed.
func (s *Service) Delete(ctx context.Context, lotID id.ID) (bool, error) {
	var deleted bool
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lot, err := s.repo.GetForUpdate(ctx, lotID)
		if apperror.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return err
		}
		deleted, err = s.repo.Delete(ctx, lotID)
		if err != nil {
			return fmt.Errorf("delete lot: %w", err)
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: auditEntity,
			EntityID:   lotID,
			Action:     audit.ActionDelete,
			Changes:    lot.auditState(),
		})
	})
	if err != nil {
		return false, err
	}
	return deleted, nil
}

// DeductFIFO takes quantity from the variant's active lots, oldest first.
//
// It joins the caller's transaction (or opens one) and locks the candidate
// lots before reading their quantities, so concurrent sales of the same
// variant serialize on those rows. A shortfall is reported in the
// Allocation, never as an error: whether it is acceptable is a sale policy.
func (s *Service) DeductFIFO(ctx context.Context, variantID id.ID, quantity int) (Allocation, error) {
	if id.IsNil(variantID) {
		return Allocation{}, apperror.NewRequired("variantId")
	}
	if quantity <= 0 {
		return Allocation{}, apperror.NewValidation("quantity must be positive").
			WithDetail("field", "quantity")
	}

	ctx, span := tracer.Start(ctx, "stock.DeductFIFO",
		trace.WithAttributes(
			attribute.String("variant.id", variantID),
			attribute.Int("quantity", quantity),
		))
	defer span.End()

	var alloc Allocation
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		lots, err := s.repo.ListActiveForUpdate(ctx, variantID)
		if err != nil {
			return fmt.Errorf("lock lots: %w", err)
		}

		alloc = allocateFIFO(variantID, lots, quantity)

		for _, draw := range alloc.Lots {
			if err := s.repo.UpdateQuantity(ctx, draw.LotID, draw.Remaining); err != nil {
				return fmt.Errorf("update lot %s: %w", draw.LotID, err)
			}
		}
		return nil
	})
	if err != nil {
		return Allocation{}, err
	}

	span.SetAttributes(attribute.Int("shortfall", alloc.Shortfall))
	logger.Debug(ctx, "fifo deduction",
		"variant_id", variantID,
		"requested", alloc.Requested,
		"allocated", alloc.Allocated,
		"lots", len(alloc.Lots),
	)
	return alloc, nil
}

// Valuation returns the active quantity of a variant and its value at cost.
func (s *Service) Valuation(ctx context.Context, variantID id.ID) (Valuation, error) {
	lots, err := s.ListByVariant(ctx, variantID, true)
	if err != nil {
		return Valuation{}, err
	}

	v := Valuation{VariantID: variantID, Value: types.Zero(), Lots: lots}
	for _, lot := range lots {
		v.Quantity += lot.Quantity
		v.Value = v.Value.Add(types.LineAmount(lot.Quantity, lot.CostPrice))
	}
	return v, nil
}
