package sale

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/saleitem"
	"tillpoint/internal/domain/stock"
	"tillpoint/internal/domain/variant"
)

// ItemSet is the part of the sale item set the ledger uses.
type ItemSet interface {
	CreateBulk(ctx context.Context, saleID id.ID, inputs []saleitem.Input) ([]saleitem.Item, error)
	FindBySaleID(ctx context.Context, saleID id.ID) ([]saleitem.Item, error)
	GetByID(ctx context.Context, itemID id.ID) (*saleitem.Item, error)
	DeleteByID(ctx context.Context, itemID id.ID) (bool, error)
	DeleteBySaleID(ctx context.Context, saleID id.ID) (int64, error)
}

// StockDeducter takes sold quantities out of stock lots.
type StockDeducter interface {
	DeductFIFO(ctx context.Context, variantID id.ID, quantity int) (stock.Allocation, error)
}

// VariantResolver follows a sale line's variant to its company product.
type VariantResolver interface {
	FindByID(ctx context.Context, variantID id.ID) (*variant.Variant, error)
}

// ActivitySale is the ClientActivity kind emitted for a posted sale.
const ActivitySale = "sale"

// ClientActivity tells the company-client registry that a customer did
// something worth counting.
type ClientActivity struct {
	CompanyID  id.ID       `json:"companyId"`
	UserID     id.ID       `json:"userId"`
	Kind       string      `json:"kind"`
	Amount     types.Money `json:"amount"`
	SaleID     id.ID       `json:"saleId"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// ClientTracker receives client activity after a sale commits. Errors are
// logged by the ledger and never returned to the caller.
type ClientTracker interface {
	TrackSale(ctx context.Context, activity ClientActivity) error
}
