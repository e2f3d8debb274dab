package sale

import (
	"context"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/pkg/logger"
)

// Display placeholders used when a lookup fails.
const (
	PlaceholderService = "Service"
	PlaceholderProduct = "Product"
)

// EnrichedItem is a sale line with display fields resolved.
type EnrichedItem struct {
	saleitem.Item
	Name             string      `json:"name"`
	Description      string      `json:"description,omitempty"`
	Unit             string      `json:"unit,omitempty"`
	VariantName      string      `json:"variantName,omitempty"`
	CompanyProductID *id.ID      `json:"companyProductId,omitempty"`
	LineTotal        types.Money `json:"lineTotal"`
}

// EnrichedSale is a sale ready for display.
type EnrichedSale struct {
	*Sale
	CustomerName string         `json:"customerName,omitempty"`
	Items        []EnrichedItem `json:"items"`
}

// Enrich resolves display names for a sale's customer and lines. It never
// fails: missing or broken references degrade to placeholders.
// Product lines follow variant to company product; the product is never
// stored on the line itself.
func (s *Service) Enrich(ctx context.Context, sale *Sale) *EnrichedSale {
	out := &EnrichedSale{Sale: sale, Items: make([]EnrichedItem, 0, len(sale.Items))}

	if s.catalog != nil {
		if name, err := s.catalog.CustomerName(ctx, sale.UserID); err == nil {
			out.CustomerName = name
		} else {
			logger.Debug(ctx, "customer lookup failed", "user_id", sale.UserID, "error", err)
		}
	}

	for _, item := range sale.Items {
		ei := EnrichedItem{
			Item:      item,
			LineTotal: item.Gross().Sub(item.DiscountAmount()),
		}
		switch item.ItemType {
		case saleitem.TypeService:
			ei.Name = s.serviceName(ctx, item)
		default:
			s.resolveProduct(ctx, &ei)
		}
		out.Items = append(out.Items, ei)
	}
	return out
}

func (s *Service) serviceName(ctx context.Context, item saleitem.Item) string {
	if item.ServiceID == nil || s.catalog == nil {
		return PlaceholderService
	}
	name, err := s.catalog.ServiceName(ctx, *item.ServiceID)
	if err != nil || name == "" {
		logger.Debug(ctx, "service lookup failed", "service_id", *item.ServiceID, "error", err)
		return PlaceholderService
	}
	return name
}

func (s *Service) resolveProduct(ctx context.Context, ei *EnrichedItem) {
	ei.Name = PlaceholderProduct
	if ei.VariantID == nil || s.variants == nil {
		return
	}

	v, err := s.variants.FindByID(ctx, *ei.VariantID)
	if err != nil {
		// Orphaned variant reference: the line keeps its placeholder.
		logger.Debug(ctx, "variant lookup failed", "variant_id", *ei.VariantID, "error", err)
		return
	}
	cpID := v.CompanyProductID
	ei.CompanyProductID = &cpID
	ei.VariantName = v.Name

	if s.catalog == nil {
		return
	}
	product, err := s.catalog.CompanyProduct(ctx, cpID)
	if err != nil {
		logger.Debug(ctx, "company product lookup failed", "company_product_id", cpID, "error", err)
		return
	}
	if product.Name != "" {
		ei.Name = product.Name
	}
	ei.Description = product.Description
	ei.Unit = product.Unit
}
