package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/apperror"
)

func TestIdempotencyStore_Lifecycle(t *testing.T) {
	s := NewIdempotencyStore(time.Hour)
	ctx := context.Background()

	replay, err := s.AcquireKey(ctx, "k1", "u1", "POST /sales", "h1")
	require.NoError(t, err)
	assert.Nil(t, replay)

	_, err = s.AcquireKey(ctx, "k1", "u1", "POST /sales", "h1")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))

	require.NoError(t, s.CompleteKey(ctx, "k1", 201, "", []byte(`{"id":"s1"}`)))

	replay, err = s.AcquireKey(ctx, "k1", "u1", "POST /sales", "h1")
	require.NoError(t, err)
	require.NotNil(t, replay)
	assert.Equal(t, 201, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
	assert.JSONEq(t, `{"id":"s1"}`, string(replay.Body))

	_, err = s.AcquireKey(ctx, "k1", "u1", "POST /sales", "other-body")
	assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
}

func TestIdempotencyStore_StaleAndExpired(t *testing.T) {
	s := NewIdempotencyStore(time.Hour)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	_, err := s.AcquireKey(ctx, "k1", "u1", "op", "h")
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	replay, err := s.AcquireKey(ctx, "k1", "u1", "op", "h")
	require.NoError(t, err)
	assert.Nil(t, replay)

	now = now.Add(2 * time.Hour)
	n, err := s.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.True(t, apperror.IsNotFound(s.CompleteKey(ctx, "k1", 200, "", nil)))
}
