package memory

import (
	"context"
	"time"

	"tillpoint/internal/core/apperror"
	appctx "tillpoint/internal/core/context"
	"tillpoint/internal/core/id"
	corenumerator "tillpoint/internal/core/numerator"
	"tillpoint/internal/domain/audit"
	"tillpoint/internal/domain/client"
	"tillpoint/internal/domain/sale"
)

// Sequences implements numerator.Generator. Numbers taken inside a
// transaction that rolls back are handed out again.
type Sequences struct {
	store *Store
}

var _ corenumerator.Generator = (*Sequences)(nil)

func NewSequences(store *Store) *Sequences {
	return &Sequences{store: store}
}

func (q *Sequences) GetNextNumber(ctx context.Context, cfg corenumerator.Config, _ *corenumerator.Options, period time.Time) (string, error) {
	var num int64
	err := q.store.write(ctx, func(d *state) error {
		key := corenumerator.Key(cfg, period)
		d.sequences[key]++
		num = d.sequences[key]
		return nil
	})
	if err != nil {
		return "", err
	}
	return corenumerator.Format(cfg, period, num), nil
}

// AuditLog implements audit.Recorder.
type AuditLog struct {
	store *Store
}

var _ audit.Recorder = (*AuditLog)(nil)

func NewAuditLog(store *Store) *AuditLog {
	return &AuditLog{store: store}
}

func (a *AuditLog) Record(ctx context.Context, entry audit.Entry) error {
	if entry.UserID == "" {
		entry.UserID = appctx.GetUserID(ctx)
	}
	if id.IsNil(entry.ID) {
		entry.ID = id.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return a.store.write(ctx, func(d *state) error {
		d.audit = append(d.audit, entry)
		return nil
	})
}

// Entries returns the audit trail of one entity, oldest first.
func (a *AuditLog) Entries(entityType string, entityID id.ID) []audit.Entry {
	var out []audit.Entry
	_ = a.store.read(func(d *state) error {
		for _, e := range d.audit {
			if e.EntityType == entityType && e.EntityID == entityID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out
}

// ClientRegistry implements client.Repository and sale.ClientTracker. In
// memory mode there is no outbox: activity is applied directly.
type ClientRegistry struct {
	store *Store
	now   func() time.Time
}

var (
	_ client.Repository  = (*ClientRegistry)(nil)
	_ sale.ClientTracker = (*ClientRegistry)(nil)
)

func NewClientRegistry(store *Store) *ClientRegistry {
	return &ClientRegistry{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func clientKey(companyID, userID id.ID) string {
	return companyID + "/" + userID
}

func (c *ClientRegistry) TrackSale(ctx context.Context, activity sale.ClientActivity) error {
	return c.Upsert(ctx, activity)
}

func (c *ClientRegistry) Upsert(ctx context.Context, activity sale.ClientActivity) error {
	return c.store.write(ctx, func(d *state) error {
		key := clientKey(activity.CompanyID, activity.UserID)
		row := d.clients[key]
		row.Apply(activity, c.now())
		d.clients[key] = row
		return nil
	})
}

func (c *ClientRegistry) Get(_ context.Context, companyID, userID id.ID) (*client.CompanyClient, error) {
	var out *client.CompanyClient
	err := c.store.read(func(d *state) error {
		row, ok := d.clients[clientKey(companyID, userID)]
		if !ok {
			return apperror.NewNotFound("company_client", userID)
		}
		out = &row
		return nil
	})
	return out, err
}
