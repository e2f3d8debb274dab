// Package client_repo persists the company client register and feeds it
// through the transactional outbox.
package client_repo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/client"
	"tillpoint/internal/domain/sale"
	"tillpoint/internal/infrastructure/storage/postgres"
)

const (
	clientsTable = "company_clients"

	// EventClientActivity is the outbox event type for sale.ClientActivity.
	EventClientActivity = "ClientActivityRecorded"
	aggregateClient     = "company_client"
)

var _ client.Repository = (*Repo)(nil)

// Repo implements client.Repository.
type Repo struct {
	txManager *postgres.TxManager
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

// NewRepo creates the register repository.
func NewRepo(txManager *postgres.TxManager) *Repo {
	return &Repo{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Older activity still counts but never moves last_activity_at back.
const upsertSuffix = `ON CONFLICT (company_id, user_id) DO UPDATE SET
	visit_count = company_clients.visit_count + 1,
	total_spent = company_clients.total_spent + EXCLUDED.total_spent,
	last_sale_id = CASE WHEN EXCLUDED.last_activity_at > company_clients.last_activity_at
		THEN EXCLUDED.last_sale_id ELSE company_clients.last_sale_id END,
	last_activity_at = GREATEST(company_clients.last_activity_at, EXCLUDED.last_activity_at),
	updated_at = EXCLUDED.updated_at`

func (r *Repo) upsertQuery(a sale.ClientActivity, now time.Time) squirrel.InsertBuilder {
	var lastSale *id.ID
	if !id.IsNil(a.SaleID) {
		saleID := a.SaleID
		lastSale = &saleID
	}
	return r.builder.Insert(clientsTable).
		Columns("company_id", "user_id", "visit_count", "total_spent", "last_activity_at", "last_sale_id", "created_at", "updated_at").
		Values(a.CompanyID, a.UserID, 1, a.Amount, a.OccurredAt, lastSale, now, now).
		Suffix(upsertSuffix)
}

// Upsert implements client.Repository.
func (r *Repo) Upsert(ctx context.Context, a sale.ClientActivity) error {
	sql, args, err := r.upsertQuery(a, r.now()).ToSql()
	if err != nil {
		return fmt.Errorf("build client upsert: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("upsert company client: %w", postgres.MapError(err))
	}
	return nil
}

// Get implements client.Repository.
func (r *Repo) Get(ctx context.Context, companyID, userID id.ID) (*client.CompanyClient, error) {
	sql, args, err := r.builder.
		Select(postgres.ExtractDBColumns[client.CompanyClient]()...).
		From(clientsTable).
		Where(squirrel.Eq{"company_id": companyID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}
	var c client.CompanyClient
	if err := pgxscan.Get(ctx, r.txManager.GetQuerier(ctx), &c, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("company_client", userID).WithDetail("company_id", companyID)
		}
		return nil, fmt.Errorf("get company client: %w", err)
	}
	return &c, nil
}

var _ sale.ClientTracker = (*OutboxTracker)(nil)

// OutboxTracker implements sale.ClientTracker by writing the activity to the
// outbox in its own short transaction. The worker applies it later.
type OutboxTracker struct {
	txManager *postgres.TxManager
	publisher *postgres.OutboxPublisher
}

// NewOutboxTracker creates the tracker.
func NewOutboxTracker(txManager *postgres.TxManager, publisher *postgres.OutboxPublisher) *OutboxTracker {
	return &OutboxTracker{txManager: txManager, publisher: publisher}
}

// ActivityEvent builds the outbox event for an activity.
func ActivityEvent(a sale.ClientActivity) postgres.DomainEvent {
	return postgres.DomainEvent{
		AggregateType: aggregateClient,
		AggregateID:   a.CompanyID + "/" + a.UserID,
		EventType:     EventClientActivity,
		Payload:       a,
	}
}

// TrackSale implements sale.ClientTracker.
func (t *OutboxTracker) TrackSale(ctx context.Context, a sale.ClientActivity) error {
	return t.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return t.publisher.Publish(ctx, ActivityEvent(a))
	})
}

// ActivityHandler applies ClientActivityRecorded outbox messages to the
// register.
type ActivityHandler struct {
	repo client.Repository
}

// NewActivityHandler creates the handler.
func NewActivityHandler(repo client.Repository) *ActivityHandler {
	return &ActivityHandler{repo: repo}
}

// Decode parses the payload of a ClientActivityRecorded message.
func Decode(msg *postgres.OutboxMessage) (sale.ClientActivity, error) {
	var a sale.ClientActivity
	if err := json.Unmarshal(msg.Payload, &a); err != nil {
		return a, fmt.Errorf("decode client activity %s: %w", msg.ID, err)
	}
	if id.IsNil(a.CompanyID) || id.IsNil(a.UserID) {
		return a, fmt.Errorf("client activity %s: company and user are required", msg.ID)
	}
	return a, nil
}

// Handle implements postgres.OutboxHandler.
func (h *ActivityHandler) Handle(ctx context.Context, msg *postgres.OutboxMessage) error {
	a, err := Decode(msg)
	if err != nil {
		return err
	}
	return h.repo.Upsert(ctx, a)
}
