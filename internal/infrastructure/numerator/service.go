// Package numerator implements core/numerator.Generator on the sys_sequences
// table.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "tillpoint/internal/core/numerator"
)

// Querier is the subset of a pgx connection or transaction the service uses.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFunc resolves the querier for ctx, typically the transaction in
// ctx or the pool.
type QuerierFunc func(ctx context.Context) Querier

type cachedRange struct {
	current int64
	max     int64
}

// Service provides document numbering on PostgreSQL.
type Service struct {
	querier QuerierFunc

	cacheMu sync.Mutex
	ranges  map[string]*cachedRange
}

var _ corenumerator.Generator = (*Service)(nil)

// New creates a numerator service.
func New(querier QuerierFunc) *Service {
	return &Service{
		querier: querier,
		ranges:  make(map[string]*cachedRange),
	}
}

// GetNextNumber implements corenumerator.Generator.
func (s *Service) GetNextNumber(ctx context.Context, cfg corenumerator.Config, opts *corenumerator.Options, period time.Time) (string, error) {
	if opts == nil {
		opts = corenumerator.DefaultOptions()
	}

	key := corenumerator.Key(cfg, period)

	var (
		num int64
		err error
	)
	switch opts.Strategy {
	case corenumerator.StrategyCached:
		num, err = s.nextCached(ctx, key, opts)
	default:
		num, err = s.nextStrict(ctx, key)
	}
	if err != nil {
		return "", err
	}
	return corenumerator.Format(cfg, period, num), nil
}

const upsertSequenceSQL = `
	INSERT INTO sys_sequences (key, current_val)
	VALUES ($1, $2)
	ON CONFLICT (key) DO UPDATE SET current_val = sys_sequences.current_val + $2
	RETURNING current_val`

// nextStrict bumps the sequence by one. Run inside a transaction it holds the
// row lock until commit, so concurrent callers get consecutive numbers.
func (s *Service) nextStrict(ctx context.Context, key string) (int64, error) {
	var num int64
	if err := s.querier(ctx).QueryRow(ctx, upsertSequenceSQL, key, int64(1)).Scan(&num); err != nil {
		return 0, fmt.Errorf("next number %s: %w", key, err)
	}
	return num, nil
}

// nextCached hands out numbers from a reserved range, reserving a new one
// from the database when it runs out.
func (s *Service) nextCached(ctx context.Context, key string, opts *corenumerator.Options) (int64, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	rng, ok := s.ranges[key]
	if !ok {
		rng = &cachedRange{}
		s.ranges[key] = rng
	}

	if rng.current >= rng.max {
		size := opts.RangeSize
		if size <= 0 {
			size = 50
		}

		// current_val is the last reserved value: the new range is
		// (newMax-size, newMax].
		var newMax int64
		if err := s.querier(ctx).QueryRow(ctx, upsertSequenceSQL, key, size).Scan(&newMax); err != nil {
			return 0, fmt.Errorf("reserve range %s: %w", key, err)
		}
		rng.current = newMax - size
		rng.max = newMax
	}

	rng.current++
	return rng.current, nil
}
