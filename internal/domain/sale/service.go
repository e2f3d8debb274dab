package sale

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	corenumerator "tillpoint/internal/core/numerator"
	"tillpoint/internal/core/tx"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/catalog"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/pkg/logger"
)

var tracer = otel.Tracer("tillpoint/sale")

// errSaleMissing rolls back DeleteSale when the header is already gone.
var errSaleMissing = errors.New("sale header missing")

// Service provides business operations for sales.
type Service struct {
	repo      Repository
	items     ItemSet
	stock     StockDeducter
	variants  VariantResolver
	catalog   catalog.Reader
	tracker   ClientTracker
	audit     audit.Recorder
	numbers   corenumerator.Generator
	txManager tx.Manager
	cfg       Config
	now       func() time.Time
}

// NewService creates a new sale ledger service.
// tracker and recorder may be nil.
func NewService(
	repo Repository,
	items ItemSet,
	stockDeducter StockDeducter,
	variants VariantResolver,
	catalogReader catalog.Reader,
	tracker ClientTracker,
	recorder audit.Recorder,
	numbers corenumerator.Generator,
	txManager tx.Manager,
	cfg Config,
) *Service {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	if cfg.StockPolicy == "" {
		cfg.StockPolicy = StockPolicyLenient
	}
	if cfg.Numbering.Prefix == "" {
		cfg.Numbering = DefaultConfig().Numbering
	}
	return &Service{
		repo:      repo,
		items:     items,
		stock:     stockDeducter,
		variants:  variants,
		catalog:   catalogReader,
		tracker:   tracker,
		audit:     recorder,
		numbers:   numbers,
		txManager: txManager,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CreateSale posts a sale as one unit of work: header, lines and the FIFO
// deduction for every product line commit or roll back together.
// Totals are recomputed from the lines and win over the caller's figures.
// After commit the customer's activity is handed to the client tracker.
func (s *Service) CreateSale(ctx context.Context, in CreateInput) (*Sale, error) {
	if err := in.Validate(ctx); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "sale.CreateSale",
		trace.WithAttributes(
			attribute.String("company.id", in.CompanyID),
			attribute.Int("lines", len(in.Services)+len(in.Products)),
			attribute.String("stock.policy", string(s.cfg.StockPolicy)),
		))
	defer span.End()

	var created *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		now := s.now()

		numCfg := s.cfg.Numbering
		numCfg.Scope = in.CompanyID
		number, err := s.numbers.GetNextNumber(ctx, numCfg, nil, now)
		if err != nil {
			return fmt.Errorf("next sale number: %w", err)
		}

		header := &Sale{
			ID:             id.New(),
			Number:         number,
			CompanyID:      in.CompanyID,
			UserID:         in.UserID,
			StaffID:        in.StaffID,
			AppointmentID:  in.AppointmentID,
			Subtotal:       in.Subtotal,
			DiscountAmount: in.DiscountAmount,
			TotalAmount:    in.TotalAmount,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.repo.Create(ctx, header); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}

		items, err := s.items.CreateBulk(ctx, header.ID, in.itemInputs())
		if err != nil {
			return err
		}

		for _, item := range items {
			if item.ItemType != saleitem.TypeProduct {
				continue
			}
			if err := s.deductStock(ctx, header.ID, item); err != nil {
				return err
			}
		}

		computed := saleitem.ComputeTotals(items)
		if !totalsEqual(computed, in.callerTotals()) {
			logger.Warn(ctx, "sale totals differ from lines, using computed totals",
				"sale_id", header.ID,
				"caller_subtotal", in.Subtotal.String(),
				"caller_discount", in.DiscountAmount.String(),
				"caller_total", in.TotalAmount.String(),
				"subtotal", computed.Subtotal.String(),
				"discount", computed.DiscountAmount.String(),
				"total", computed.TotalAmount.String(),
			)
			if err := s.repo.UpdateTotals(ctx, header.ID, computed, now); err != nil {
				return fmt.Errorf("update sale totals: %w", err)
			}
		}
		header.setTotals(computed)
		header.Items = items
		created = header
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create sale failed")
		if apperror.IsAppError(err) {
			return nil, err
		}
		return nil, apperror.NewTransactionFailure("create sale", err)
	}

	logger.Info(ctx, "sale created",
		"sale_id", created.ID,
		"number", created.Number,
		"items", len(created.Items),
		"total", created.TotalAmount.String(),
	)
	s.trackClient(ctx, created)
	return created, nil
}

// deductStock runs the FIFO deduction for one product line and applies the
// stock policy to any shortfall.
func (s *Service) deductStock(ctx context.Context, saleID id.ID, item saleitem.Item) error {
	variantID := *item.VariantID

	alloc, err := s.stock.DeductFIFO(ctx, variantID, item.Quantity)
	if err != nil {
		return fmt.Errorf("deduct stock for variant %s: %w", variantID, err)
	}
	if alloc.Shortfall == 0 {
		return nil
	}

	// A variant without any active lot is not stock tracked: skip it under
	// either policy. Drained lots fall through to the shortfall rules.
	if alloc.NoStock() {
		logger.Info(ctx, "no active stock lots, deduction skipped",
			"sale_id", saleID,
			"variant_id", variantID,
			"requested", alloc.Requested,
		)
		return nil
	}

	if s.cfg.StockPolicy == StockPolicyStrict {
		return apperror.NewInsufficientStock(variantID, alloc.Requested, alloc.Allocated).
			WithDetail("sale_item_id", item.ID)
	}

	logger.Warn(ctx, "inventory shortfall",
		"sale_id", saleID,
		"variant_id", variantID,
		"requested", alloc.Requested,
		"shortfall", alloc.Shortfall,
	)
	return nil
}

func (s *Service) trackClient(ctx context.Context, sale *Sale) {
	if s.tracker == nil {
		return
	}
	err := s.tracker.TrackSale(ctx, ClientActivity{
		CompanyID:  sale.CompanyID,
		UserID:     sale.UserID,
		Kind:       ActivitySale,
		Amount:     sale.TotalAmount,
		SaleID:     sale.ID,
		OccurredAt: sale.CreatedAt,
	})
	if err != nil {
		logger.Warn(ctx, "client tracking failed",
			"sale_id", sale.ID,
			"user_id", sale.UserID,
			"error", err,
		)
	}
}

// FindByID returns the sale with its lines, services first.
func (s *Service) FindByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	if id.IsNil(saleID) {
		return nil, apperror.NewRequired("saleId")
	}
	header, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	items, err := s.items.FindBySaleID(ctx, saleID)
	if err != nil {
		return nil, fmt.Errorf("load sale items: %w", err)
	}
	header.Items = items
	return header, nil
}

// ListByCompany pages through a company's sale headers, newest first.
func (s *Service) ListByCompany(ctx context.Context, companyID id.ID, filter ListFilter) (ListResult, error) {
	if id.IsNil(companyID) {
		return ListResult{}, apperror.NewRequired("companyId")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return ListResult{}, apperror.NewValidation("from must not be after to").WithDetail("field", "from")
	}

	filter = filter.normalized()
	sales, total, err := s.repo.ListByCompany(ctx, companyID, filter)
	if err != nil {
		return ListResult{}, fmt.Errorf("list sales: %w", err)
	}
	if sales == nil {
		sales = []Sale{}
	}
	return ListResult{Items: sales, TotalCount: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// DeleteSaleItem removes one line and recomputes the sale totals in the same
// transaction. The sale header is locked for the duration.
func (s *Service) DeleteSaleItem(ctx context.Context, saleID, itemID id.ID) (*Sale, error) {
	if id.IsNil(saleID) {
		return nil, apperror.NewRequired("saleId")
	}
	if id.IsNil(itemID) {
		return nil, apperror.NewRequired("itemId")
	}

	var refreshed *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.repo.GetForUpdate(ctx, saleID); err != nil {
			return err
		}

		item, err := s.items.GetByID(ctx, itemID)
		if err != nil {
			return err
		}
		if item.SaleID != saleID {
			return apperror.NewNotFound("sale_item", itemID).WithDetail("sale_id", saleID)
		}

		ok, err := s.items.DeleteByID(ctx, itemID)
		if err != nil {
			return err
		}
		if !ok {
			return apperror.NewNotFound("sale_item", itemID)
		}

		refreshed, err = s.RecalculateTotals(ctx, saleID)
		if err != nil {
			return err
		}

		return s.audit.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   saleID,
			Action:     audit.ActionDeleteItem,
			Changes: map[string]any{
				"item_id":    item.ID,
				"item_type":  item.ItemType,
				"quantity":   item.Quantity,
				"unit_price": item.UnitPrice.String(),
				"discount":   item.Discount.String(),
				"total":      refreshed.TotalAmount.String(),
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale item deleted", "sale_id", saleID, "item_id", itemID)
	return refreshed, nil
}

// RecalculateTotals recomputes subtotal, discount and total from the
// remaining lines and persists them.
func (s *Service) RecalculateTotals(ctx context.Context, saleID id.ID) (*Sale, error) {
	var header *Sale
	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		header, err = s.repo.GetForUpdate(ctx, saleID)
		if err != nil {
			return err
		}
		items, err := s.items.FindBySaleID(ctx, saleID)
		if err != nil {
			return fmt.Errorf("load sale items: %w", err)
		}

		totals := saleitem.ComputeTotals(items)
		now := s.now()
		if err := s.repo.UpdateTotals(ctx, saleID, totals, now); err != nil {
			return fmt.Errorf("update sale totals: %w", err)
		}
		header.setTotals(totals)
		header.UpdatedAt = now
		header.Items = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return header, nil
}

// DeleteSale removes the lines and then the header in one transaction.
// It returns false, with everything rolled back, when the sale does not
// exist.
func (s *Service) DeleteSale(ctx context.Context, saleID id.ID) (bool, error) {
	if id.IsNil(saleID) {
		return false, apperror.NewRequired("saleId")
	}

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.items.DeleteBySaleID(ctx, saleID)
		if err != nil {
			return err
		}
		ok, err := s.repo.Delete(ctx, saleID)
		if err != nil {
			return fmt.Errorf("delete sale: %w", err)
		}
		if !ok {
			return errSaleMissing
		}
		return s.audit.Record(ctx, audit.Entry{
			EntityType: "sale",
			EntityID:   saleID,
			Action:     audit.ActionDelete,
			Changes:    map[string]any{"items_removed": removed},
		})
	})
	if errors.Is(err, errSaleMissing) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	logger.Info(ctx, "sale deleted", "sale_id", saleID)
	return true, nil
}
