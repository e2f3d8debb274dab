package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/idempotency"
)

func TestIdempotencyRecord_Replay(t *testing.T) {
	code, ct := 201, "application/json; charset=utf-8"
	full := IdempotencyRecord{Response: []byte(`{}`), StatusCode: &code, ContentType: &ct}
	assert.Equal(t, &idempotency.Replay{StatusCode: 201, ContentType: ct, Body: []byte(`{}`)}, full.replay())

	legacy := IdempotencyRecord{Response: []byte(`{}`)}
	r := legacy.replay()
	assert.Equal(t, 200, r.StatusCode)
	assert.Equal(t, "application/json", r.ContentType)
}

func TestIdempotencyStore_Queries(t *testing.T) {
	s := NewIdempotencyStore(nil, time.Hour)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	sql, args, err := s.finishQuery("k1", idempotency.StatusSuccess, 201, "application/json", []byte(`{}`)).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sys_idempotency SET status = $1, response = $2, response_status = $3, response_content_type = $4, updated_at = $5 WHERE idempotency_key = $6", sql)
	assert.Equal(t, []any{idempotency.StatusSuccess, []byte(`{}`), 201, "application/json", now, "k1"}, args)

	seen := now.Add(-2 * time.Minute)
	sql, args, err = s.reclaimQuery("k1", seen, now).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sys_idempotency SET updated_at = $1 WHERE idempotency_key = $2 AND status = $3 AND updated_at = $4", sql)
	assert.Equal(t, []any{now, "k1", idempotency.StatusPending, seen}, args)
}
