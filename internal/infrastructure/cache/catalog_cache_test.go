package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/core/id"
	"tillpoint/internal/domain/catalog"
)

// fakeRedis is an in-process stand-in for the Redis commands the cache uses.
type fakeRedis struct {
	mu   sync.Mutex
	data map[string]string
	ttl  map[string]time.Duration
	down bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

var errDown = errors.New("connection refused")

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStringResult("", errDown)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.down {
		return redis.NewStatusResult("", errDown)
	}
	f.data[key] = string(value.([]byte))
	f.ttl[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

// countingReader counts calls that reach the underlying catalog.
type countingReader struct {
	*catalog.Static
	calls int
}

func (r *countingReader) SystemVariant(ctx context.Context, v id.ID) (catalog.SystemVariant, error) {
	r.calls++
	return r.Static.SystemVariant(ctx, v)
}

func (r *countingReader) ServiceName(ctx context.Context, v id.ID) (string, error) {
	r.calls++
	return r.Static.ServiceName(ctx, v)
}

func newReader() *countingReader {
	static := catalog.NewStatic()
	static.PutSystemVariant(catalog.SystemVariant{ID: "sv1", Name: "Shampoo 250ml", SKU: "SH-250"})
	static.PutService("svc1", "Haircut")
	return &countingReader{Static: static}
}

func TestCatalogCache_ReadThrough(t *testing.T) {
	ctx := context.Background()
	inner := newReader()
	rdb := newFakeRedis()
	c := NewCatalogCache(inner, rdb, time.Minute)

	for i := 0; i < 3; i++ {
		sv, err := c.SystemVariant(ctx, "sv1")
		require.NoError(t, err)
		assert.Equal(t, "SH-250", sv.SKU)
	}
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, time.Minute, rdb.ttl[Key(KindSystemVariant, "sv1")])

	name, err := c.ServiceName(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, "Haircut", name)
	assert.Equal(t, 2, inner.calls)
}

func TestCatalogCache_MissIsNotCached(t *testing.T) {
	ctx := context.Background()
	inner := newReader()
	rdb := newFakeRedis()
	c := NewCatalogCache(inner, rdb, 0)

	_, err := c.ServiceName(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)
	_, err = c.ServiceName(ctx, "missing")
	assert.ErrorIs(t, err, catalog.ErrNotFound)

	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, rdb.data)
}

func TestCatalogCache_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	inner := newReader()
	rdb := newFakeRedis()
	rdb.down = true
	c := NewCatalogCache(inner, rdb, time.Minute)

	sv, err := c.SystemVariant(ctx, "sv1")
	require.NoError(t, err)
	assert.Equal(t, "Shampoo 250ml", sv.Name)
	assert.Equal(t, 1, inner.calls)
}

func TestCatalogCache_Evict(t *testing.T) {
	ctx := context.Background()
	inner := newReader()
	rdb := newFakeRedis()
	c := NewCatalogCache(inner, rdb, time.Minute)

	_, err := c.ServiceName(ctx, "svc1")
	require.NoError(t, err)

	inv := NewInvalidator(nil, c)
	inv.handle(ctx, "service:svc1")
	assert.NotContains(t, rdb.data, Key(KindService, "svc1"))

	_, err = c.ServiceName(ctx, "svc1")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestParsePayload(t *testing.T) {
	kind, entryID, err := ParsePayload(" company_product:cp9 ")
	require.NoError(t, err)
	assert.Equal(t, KindCompanyProduct, kind)
	assert.Equal(t, "cp9", entryID)

	for _, bad := range []string{"", "service", "service:", "warehouse:1"} {
		_, _, err := ParsePayload(bad)
		assert.Error(t, err, bad)
	}
}
