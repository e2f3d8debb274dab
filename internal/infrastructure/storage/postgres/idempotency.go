package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/idempotency"
)

const idempotencyTable = "sys_idempotency"

// stalePendingAfter is how long a pending key may sit before another request
// with the same key may take it over.
const stalePendingAfter = time.Minute

// IdempotencyRecord stores the result of an idempotent operation.
type IdempotencyRecord struct {
	Key         string             `db:"idempotency_key"`
	UserID      string             `db:"user_id"`
	Operation   string             `db:"operation"`
	Status      idempotency.Status `db:"status"`
	RequestHash string             `db:"request_hash"`
	Response    []byte             `db:"response"`
	StatusCode  *int               `db:"response_status"`
	ContentType *string            `db:"response_content_type"`
	CreatedAt   time.Time          `db:"created_at"`
	UpdatedAt   time.Time          `db:"updated_at"`
	ExpiresAt   time.Time          `db:"expires_at"`
	Inserted    bool               `db:"inserted"`
}

func (r IdempotencyRecord) replay() *idempotency.Replay {
	out := &idempotency.Replay{Body: r.Response}
	if r.StatusCode != nil {
		out.StatusCode = *r.StatusCode
	}
	if r.ContentType != nil {
		out.ContentType = *r.ContentType
	}
	return out.Normalize()
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore manages idempotency keys in sys_idempotency.
type IdempotencyStore struct {
	txManager *TxManager
	builder   squirrel.StatementBuilderType
	ttl       time.Duration
	now       func() time.Time
}

// NewIdempotencyStore creates a new idempotency store.
func NewIdempotencyStore(txManager *TxManager, ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		txManager: txManager,
		builder:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		ttl:       ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// xmax = 0 only on the row version this statement inserted.
const acquireKeySQL = `
	INSERT INTO sys_idempotency (idempotency_key, user_id, operation, status, request_hash, created_at, updated_at, expires_at)
	VALUES ($1, $2, $3, $4, $5, $6, $6, $7)
	ON CONFLICT (idempotency_key) DO UPDATE SET
		expires_at = GREATEST(sys_idempotency.expires_at, EXCLUDED.expires_at)
	RETURNING idempotency_key, user_id, operation, status, request_hash, response,
		response_status, response_content_type, created_at, updated_at, expires_at,
		(xmax = 0) AS inserted`

// AcquireKey implements idempotency.Store.
func (s *IdempotencyStore) AcquireKey(ctx context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	now := s.now()

	var record IdempotencyRecord
	err := pgxscan.Get(ctx, s.txManager.GetQuerier(ctx), &record, acquireKeySQL,
		key, userID, operation, idempotency.StatusPending, requestHash, now, now.Add(s.ttl))
	if err != nil {
		return nil, fmt.Errorf("acquire idempotency key: %w", err)
	}
	if record.Inserted {
		return nil, nil
	}

	if record.UserID != userID || record.Operation != operation || record.RequestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", record.Operation).
			WithDetail("request_operation", operation)
	}

	switch record.Status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		return record.replay(), nil
	case idempotency.StatusPending:
		if now.Sub(record.UpdatedAt) <= stalePendingAfter {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		// Likely a crashed request: take the key over.
		reclaimed, err := s.reclaim(ctx, key, record.UpdatedAt, now)
		if err != nil {
			return nil, err
		}
		if !reclaimed {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		return nil, nil
	}
	return nil, fmt.Errorf("idempotency key %s has unknown status %q", key, record.Status)
}

func (s *IdempotencyStore) reclaimQuery(key string, seen, now time.Time) squirrel.UpdateBuilder {
	return s.builder.Update(idempotencyTable).
		Set("updated_at", now).
		Where(squirrel.Eq{
			"idempotency_key": key,
			"status":          idempotency.StatusPending,
			"updated_at":      seen,
		})
}

func (s *IdempotencyStore) reclaim(ctx context.Context, key string, seen, now time.Time) (bool, error) {
	sql, args, err := s.reclaimQuery(key, seen, now).ToSql()
	if err != nil {
		return false, fmt.Errorf("build reclaim: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("reclaim stale key: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *IdempotencyStore) finishQuery(key string, status idempotency.Status, statusCode int, contentType string, body []byte) squirrel.UpdateBuilder {
	return s.builder.Update(idempotencyTable).
		Set("status", status).
		Set("response", body).
		Set("response_status", statusCode).
		Set("response_content_type", contentType).
		Set("updated_at", s.now()).
		Where(squirrel.Eq{"idempotency_key": key})
}

func (s *IdempotencyStore) finish(ctx context.Context, q squirrel.UpdateBuilder) error {
	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build idempotency update: %w", err)
	}
	if _, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("update idempotency key: %w", err)
	}
	return nil
}

// CompleteKey implements idempotency.Store.
func (s *IdempotencyStore) CompleteKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, s.finishQuery(key, idempotency.StatusSuccess, statusCode, contentType, body))
}

// FailKey implements idempotency.Store.
func (s *IdempotencyStore) FailKey(ctx context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(ctx, s.finishQuery(key, idempotency.StatusFailed, statusCode, contentType, body))
}

// CleanupExpired removes expired idempotency records.
func (s *IdempotencyStore) CleanupExpired(ctx context.Context) (int64, error) {
	sql, args, err := s.builder.Delete(idempotencyTable).
		Where(squirrel.Lt{"expires_at": s.now()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build idempotency cleanup: %w", err)
	}
	tag, err := s.txManager.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("cleanup idempotency keys: %w", err)
	}
	return tag.RowsAffected(), nil
}
