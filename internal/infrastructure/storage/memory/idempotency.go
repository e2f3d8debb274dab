package memory

import (
	"context"
	"sync"
	"time"

	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/idempotency"
)

type idempotencyRecord struct {
	userID, operation, requestHash string
	status                         idempotency.Status
	replay                         idempotency.Replay
	updatedAt, expiresAt           time.Time
}

var _ idempotency.Store = (*IdempotencyStore)(nil)

// IdempotencyStore implements idempotency.Store in process. Keys are kept
// apart from the transactional Store: a key outlives a rolled-back request.
type IdempotencyStore struct {
	mu    sync.Mutex
	keys  map[string]*idempotencyRecord
	ttl   time.Duration
	stale time.Duration
	now   func() time.Time
}

func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		keys:  make(map[string]*idempotencyRecord),
		ttl:   ttl,
		stale: time.Minute,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *IdempotencyStore) AcquireKey(_ context.Context, key, userID, operation, requestHash string) (*idempotency.Replay, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()

	rec, ok := s.keys[key]
	if !ok || now.After(rec.expiresAt) {
		s.keys[key] = &idempotencyRecord{
			userID:      userID,
			operation:   operation,
			requestHash: requestHash,
			status:      idempotency.StatusPending,
			updatedAt:   now,
			expiresAt:   now.Add(s.ttl),
		}
		return nil, nil
	}

	if rec.userID != userID || rec.operation != operation || rec.requestHash != requestHash {
		return nil, apperror.NewIdempotencyMismatch(key).
			WithDetail("stored_operation", rec.operation).
			WithDetail("request_operation", operation)
	}

	switch rec.status {
	case idempotency.StatusSuccess, idempotency.StatusFailed:
		replay := rec.replay
		return replay.Normalize(), nil
	default:
		if now.Sub(rec.updatedAt) <= s.stale {
			return nil, apperror.NewIdempotencyConflict(key)
		}
		rec.updatedAt = now
		return nil, nil
	}
}

func (s *IdempotencyStore) finish(key string, status idempotency.Status, statusCode int, contentType string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.keys[key]
	if !ok {
		return apperror.NewNotFound("idempotency_key", key)
	}
	rec.status = status
	rec.replay = idempotency.Replay{StatusCode: statusCode, ContentType: contentType, Body: append([]byte(nil), body...)}
	rec.updatedAt = s.now()
	return nil
}

func (s *IdempotencyStore) CompleteKey(_ context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(key, idempotency.StatusSuccess, statusCode, contentType, body)
}

func (s *IdempotencyStore) FailKey(_ context.Context, key string, statusCode int, contentType string, body []byte) error {
	return s.finish(key, idempotency.StatusFailed, statusCode, contentType, body)
}

func (s *IdempotencyStore) CleanupExpired(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var n int64
	for key, rec := range s.keys {
		if now.After(rec.expiresAt) {
			delete(s.keys, key)
			n++
		}
	}
	return n, nil
}
