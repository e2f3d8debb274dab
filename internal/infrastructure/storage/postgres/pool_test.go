package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPoolStats_IdlePool(t *testing.T) {
	// No connection is opened until the first acquire.
	pool, err := pgxpool.New(context.Background(), "postgres://tillpoint@127.0.0.1:1/tillpoint?pool_max_conns=3")
	require.NoError(t, err)
	defer pool.Close()

	stats := GetPoolStats(pool)
	assert.Equal(t, int32(3), stats.MaxConns)
	assert.Zero(t, stats.AcquiredConns)
	assert.Zero(t, stats.AcquireCount)

	LogPoolStats(context.Background(), pool)
}
