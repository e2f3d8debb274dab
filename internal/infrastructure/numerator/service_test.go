package numerator

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corenumerator "tillpoint/internal/core/numerator"
)

type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if ptr, ok := dest[0].(*int64); ok {
		*ptr = m.val
	}
	return nil
}

// mockQuerier simulates sys_sequences: one counter per key.
type mockQuerier struct {
	mu    sync.Mutex
	vals  map[string]int64
	calls int
	err   error
}

func (m *mockQuerier) QueryRow(_ context.Context, _ string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return &mockRow{err: m.err}
	}
	key := args[0].(string)
	m.vals[key] += args[1].(int64)
	return &mockRow{val: m.vals[key]}
}

func newMock() *mockQuerier {
	return &mockQuerier{vals: make(map[string]int64)}
}

func serviceOver(q *mockQuerier) *Service {
	return New(func(context.Context) Querier { return q })
}

var period = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

func TestGetNextNumber_StrictPerScope(t *testing.T) {
	q := newMock()
	svc := serviceOver(q)
	ctx := context.Background()

	cfgA := corenumerator.DefaultConfig("S")
	cfgA.Scope = "company-a"
	cfgB := cfgA
	cfgB.Scope = "company-b"

	n1, err := svc.GetNextNumber(ctx, cfgA, nil, period)
	require.NoError(t, err)
	n2, err := svc.GetNextNumber(ctx, cfgA, nil, period)
	require.NoError(t, err)
	n3, err := svc.GetNextNumber(ctx, cfgB, nil, period)
	require.NoError(t, err)

	assert.Equal(t, "S-2026-00001", n1)
	assert.Equal(t, "S-2026-00002", n2)
	assert.Equal(t, "S-2026-00001", n3)
	assert.Equal(t, 3, q.calls)
}

func TestGetNextNumber_CachedReservesRanges(t *testing.T) {
	q := newMock()
	svc := serviceOver(q)
	ctx := context.Background()
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 10}
	cfg := corenumerator.DefaultConfig("S")

	for i := 1; i <= 12; i++ {
		num, err := svc.GetNextNumber(ctx, cfg, opts, period)
		require.NoError(t, err)
		assert.Equal(t, int64(i), corenumerator.ParseNumber(num))
	}
	assert.Equal(t, 2, q.calls)
}

func TestGetNextNumber_CachedConcurrentUnique(t *testing.T) {
	q := newMock()
	svc := serviceOver(q)
	opts := &corenumerator.Options{Strategy: corenumerator.StrategyCached, RangeSize: 7}
	cfg := corenumerator.DefaultConfig("S")

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.GetNextNumber(context.Background(), cfg, opts, period)
			assert.NoError(t, err)
			mu.Lock()
			seen[num] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestGetNextNumber_Error(t *testing.T) {
	q := newMock()
	q.err = errors.New("db down")
	svc := serviceOver(q)

	_, err := svc.GetNextNumber(context.Background(), corenumerator.DefaultConfig("S"), nil, period)
	assert.ErrorContains(t, err, "db down")
}
