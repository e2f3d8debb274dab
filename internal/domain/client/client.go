// Package client keeps the per-company customer register fed by sales.
package client

import (
	"context"
	"time"

	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/domain/sale"
)

// CompanyClient aggregates one customer's activity at one company.
type CompanyClient struct {
	CompanyID      id.ID       `db:"company_id" json:"companyId"`
	UserID         id.ID       `db:"user_id" json:"userId"`
	VisitCount     int         `db:"visit_count" json:"visitCount"`
	TotalSpent     types.Money `db:"total_spent" json:"totalSpent"`
	LastActivityAt time.Time   `db:"last_activity_at" json:"lastActivityAt"`
	LastSaleID     *id.ID      `db:"last_sale_id" json:"lastSaleId,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updatedAt"`
}

// Apply folds an activity into the aggregate. Activity older than the last
// one seen still counts but does not move LastActivityAt back.
func (c *CompanyClient) Apply(a sale.ClientActivity, now time.Time) {
	if c.CreatedAt.IsZero() {
		c.CompanyID, c.UserID = a.CompanyID, a.UserID
		c.TotalSpent = types.Zero()
		c.CreatedAt = now
	}
	c.VisitCount++
	c.TotalSpent = c.TotalSpent.Add(a.Amount)
	if a.OccurredAt.After(c.LastActivityAt) {
		c.LastActivityAt = a.OccurredAt
		if !id.IsNil(a.SaleID) {
			saleID := a.SaleID
			c.LastSaleID = &saleID
		}
	}
	c.UpdatedAt = now
}

// Repository persists the register.
type Repository interface {
	// Upsert applies the activity to the (company, user) row, creating it
	// on first sight.
	Upsert(ctx context.Context, activity sale.ClientActivity) error
	Get(ctx context.Context, companyID, userID id.ID) (*CompanyClient, error)
}
