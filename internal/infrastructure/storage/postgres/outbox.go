package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/id"
	"tillpoint/pkg/logger"
)

const (
	outboxTable    = "sys_outbox"
	outboxDLQTable = "sys_outbox_dlq"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// OutboxMessage represents a message in the transactional outbox.
type OutboxMessage struct {
	ID            id.ID        `db:"id"`
	AggregateType string       `db:"aggregate_type"` // e.g. "company_client"
	AggregateID   string       `db:"aggregate_id"`
	EventType     string       `db:"event_type"` // e.g. "ClientActivityRecorded"
	Payload       []byte       `db:"payload"`
	Status        OutboxStatus `db:"status"`
	RetryCount    int          `db:"retry_count"`
	LastError     *string      `db:"last_error"`
	NextRetryAt   *time.Time   `db:"next_retry_at"`
	CreatedAt     time.Time    `db:"created_at"`
	PublishedAt   *time.Time   `db:"published_at"`
}

// DomainEvent represents an event to be published via outbox.
type DomainEvent struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       any
}

var outboxColumns = []string{
	"id", "aggregate_type", "aggregate_id", "event_type", "payload", "status",
	"retry_count", "last_error", "next_retry_at", "created_at", "published_at",
}

// OutboxPublisher writes events to the outbox table.
type OutboxPublisher struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
}

// NewOutboxPublisher creates a new outbox publisher.
func NewOutboxPublisher(txManager *TxManager) *OutboxPublisher {
	return &OutboxPublisher{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Publish writes an event to the outbox within the current transaction.
// MUST be called inside a transaction context.
func (p *OutboxPublisher) Publish(ctx context.Context, events ...DomainEvent) error {
	tx := p.txManager.GetTx(ctx)
	if tx == nil {
		return fmt.Errorf("outbox publish: %w", ErrNoTransaction)
	}
	if len(events) == 0 {
		return nil
	}

	q, err := p.insertQuery(time.Now().UTC(), events)
	if err != nil {
		return err
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build outbox insert: %w", err)
	}
	if _, err := tx.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

func (p *OutboxPublisher) insertQuery(now time.Time, events []DomainEvent) (squirrel.InsertBuilder, error) {
	q := p.builder.Insert(outboxTable).
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload", "status", "created_at")
	for _, event := range events {
		payload, err := json.Marshal(event.Payload)
		if err != nil {
			return q, fmt.Errorf("marshal event payload: %w", err)
		}
		q = q.Values(id.New(), event.AggregateType, event.AggregateID, event.EventType, payload, OutboxStatusPending, now)
	}
	return q, nil
}

// OutboxHandler processes outbox messages.
type OutboxHandler interface {
	// Handle processes a message and returns error if failed. It runs inside
	// the relay's transaction, under a savepoint.
	Handle(ctx context.Context, msg *OutboxMessage) error
}

// OutboxHandlerFunc adapts a function to OutboxHandler.
type OutboxHandlerFunc func(ctx context.Context, msg *OutboxMessage) error

func (f OutboxHandlerFunc) Handle(ctx context.Context, msg *OutboxMessage) error {
	return f(ctx, msg)
}

// OutboxRouter dispatches messages to a handler per event type.
type OutboxRouter map[string]OutboxHandler

// Handle implements OutboxHandler.
func (r OutboxRouter) Handle(ctx context.Context, msg *OutboxMessage) error {
	h, ok := r[msg.EventType]
	if !ok {
		return fmt.Errorf("no handler for event type %q", msg.EventType)
	}
	return h.Handle(ctx, msg)
}

// RelayConfig tunes the outbox relay.
type RelayConfig struct {
	BatchSize   int
	MaxRetries  int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// DefaultRelayConfig returns the relay defaults.
func DefaultRelayConfig() RelayConfig {
	return RelayConfig{
		BatchSize:   100,
		MaxRetries:  5,
		BaseBackoff: 30 * time.Second,
		MaxBackoff:  30 * time.Minute,
	}
}

// OutboxRelay reads and processes messages from the outbox.
// Used by the background worker.
type OutboxRelay struct {
	txManager *TxManager
	handler   OutboxHandler
	cfg       RelayConfig
	builder   squirrel.StatementBuilderType
	now       func() time.Time
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, handler OutboxHandler, cfg RelayConfig) *OutboxRelay {
	def := DefaultRelayConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = def.MaxRetries
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = def.BaseBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	return &OutboxRelay{
		txManager: txManager,
		handler:   handler,
		cfg:       cfg,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ProcessBatch fetches and processes pending messages in one transaction.
// The rows stay locked (SKIP LOCKED) until commit, so several workers can
// run side by side. Returns the number of messages handled successfully.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		messages, err := r.fetchPending(ctx)
		if err != nil {
			return err
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox message failed",
					"message_id", msg.ID,
					"event_type", msg.EventType,
					"retry_count", msg.RetryCount+1,
					"error", err,
				)
				if markErr := r.markFailed(ctx, msg, err); markErr != nil {
					return markErr
				}
				continue
			}
			if err := r.markPublished(ctx, msg.ID); err != nil {
				return err
			}
			processed++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return processed, nil
}

func (r *OutboxRelay) fetchQuery() squirrel.SelectBuilder {
	return r.builder.Select(outboxColumns...).
		From(outboxTable).
		Where(squirrel.Eq{"status": OutboxStatusPending}).
		Where("(next_retry_at IS NULL OR next_retry_at <= NOW())").
		OrderBy("created_at").
		Limit(uint64(r.cfg.BatchSize)).
		Suffix("FOR UPDATE SKIP LOCKED")
}

func (r *OutboxRelay) fetchPending(ctx context.Context) ([]*OutboxMessage, error) {
	sql, args, err := r.fetchQuery().ToSql()
	if err != nil {
		return nil, fmt.Errorf("build outbox fetch: %w", err)
	}
	var messages []*OutboxMessage
	if err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, sql, args...); err != nil {
		return nil, fmt.Errorf("fetch outbox messages: %w", err)
	}
	return messages, nil
}

// processMessage runs the handler under a savepoint so a failed handler
// leaves the relay transaction usable.
func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	opts := DefaultTxOptions()
	opts.UseSavepoint = true
	return r.txManager.RunInTransactionWithOptions(ctx, opts, func(ctx context.Context) error {
		return r.handler.Handle(ctx, msg)
	})
}

// backoff grows exponentially with the retry count and is capped.
func (r *OutboxRelay) backoff(retryCount int) time.Duration {
	d := r.cfg.BaseBackoff
	for i := 0; i < retryCount; i++ {
		d *= 2
		if d >= r.cfg.MaxBackoff {
			return r.cfg.MaxBackoff
		}
	}
	return d
}

func (r *OutboxRelay) markFailedQuery(msg *OutboxMessage, cause error) squirrel.UpdateBuilder {
	retries := msg.RetryCount + 1
	status := OutboxStatusPending
	if retries >= r.cfg.MaxRetries {
		status = OutboxStatusFailed
	}
	return r.builder.Update(outboxTable).
		Set("retry_count", retries).
		Set("last_error", cause.Error()).
		Set("next_retry_at", r.now().Add(r.backoff(msg.RetryCount))).
		Set("status", status).
		Where(squirrel.Eq{"id": msg.ID})
}

func (r *OutboxRelay) markFailed(ctx context.Context, msg *OutboxMessage, cause error) error {
	sql, args, err := r.markFailedQuery(msg, cause).ToSql()
	if err != nil {
		return fmt.Errorf("build outbox retry update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update failed message: %w", err)
	}
	return nil
}

func (r *OutboxRelay) markPublished(ctx context.Context, msgID id.ID) error {
	sql, args, err := r.builder.Update(outboxTable).
		Set("status", OutboxStatusPublished).
		Set("published_at", r.now()).
		Where(squirrel.Eq{"id": msgID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build outbox publish update: %w", err)
	}
	if _, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark message published: %w", err)
	}
	return nil
}

const moveToDLQSQL = `
	WITH moved AS (
		DELETE FROM ` + outboxTable + `
		WHERE status = $1
		RETURNING id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at
	)
	INSERT INTO ` + outboxDLQTable + ` (id, aggregate_type, aggregate_id, event_type, payload, retry_count, failure_reason, created_at, failed_at)
	SELECT id, aggregate_type, aggregate_id, event_type, payload, retry_count, last_error, created_at, NOW() FROM moved
`

// MoveToDLQ moves messages that ran out of retries to the dead letter queue.
func (r *OutboxRelay) MoveToDLQ(ctx context.Context) (int64, error) {
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, moveToDLQSQL, OutboxStatusFailed)
	if err != nil {
		return 0, fmt.Errorf("move to DLQ: %w", err)
	}
	return tag.RowsAffected(), nil
}

// PurgePublished deletes published messages older than the cutoff.
func (r *OutboxRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	sql, args, err := r.builder.Delete(outboxTable).
		Where(squirrel.Eq{"status": OutboxStatusPublished}).
		Where(squirrel.Lt{"published_at": r.now().Add(-olderThan)}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build outbox purge: %w", err)
	}
	tag, err := r.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}
