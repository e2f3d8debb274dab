package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxRelay_FetchQuery(t *testing.T) {
	r := NewOutboxRelay(nil, nil, RelayConfig{BatchSize: 10})

	sql, args, err := r.fetchQuery().ToSql()
	require.NoError(t, err)

	assert.Equal(t, "SELECT id, aggregate_type, aggregate_id, event_type, payload, status, retry_count, last_error, next_retry_at, created_at, published_at "+
		"FROM sys_outbox WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= NOW()) "+
		"ORDER BY created_at LIMIT 10 FOR UPDATE SKIP LOCKED", sql)
	assert.Equal(t, []any{OutboxStatusPending}, args)
}

func TestOutboxRelay_Backoff(t *testing.T) {
	r := NewOutboxRelay(nil, nil, RelayConfig{BaseBackoff: time.Second, MaxBackoff: 10 * time.Second})

	assert.Equal(t, time.Second, r.backoff(0))
	assert.Equal(t, 2*time.Second, r.backoff(1))
	assert.Equal(t, 8*time.Second, r.backoff(3))
	assert.Equal(t, 10*time.Second, r.backoff(4))
	assert.Equal(t, 10*time.Second, r.backoff(40))
}

func TestOutboxRelay_MarkFailedExhaustsRetries(t *testing.T) {
	r := NewOutboxRelay(nil, nil, RelayConfig{MaxRetries: 3})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.now = func() time.Time { return now }

	_, args, err := r.markFailedQuery(&OutboxMessage{ID: "m1", RetryCount: 0}, errors.New("down")).ToSql()
	require.NoError(t, err)
	assert.Equal(t, []any{1, "down", now.Add(r.cfg.BaseBackoff), OutboxStatusPending, "m1"}, args)

	sql, args, err := r.markFailedQuery(&OutboxMessage{ID: "m1", RetryCount: 2}, errors.New("down")).ToSql()
	require.NoError(t, err)
	assert.Equal(t, "UPDATE sys_outbox SET retry_count = $1, last_error = $2, next_retry_at = $3, status = $4 WHERE id = $5", sql)
	assert.Equal(t, 3, args[0])
	assert.Equal(t, OutboxStatusFailed, args[3])
}

func TestOutboxPublisher_RequiresTransaction(t *testing.T) {
	p := NewOutboxPublisher(&TxManager{})

	err := p.Publish(context.Background(), DomainEvent{EventType: "X"})
	assert.ErrorIs(t, err, ErrNoTransaction)
}

func TestOutboxPublisher_InsertQuery(t *testing.T) {
	p := NewOutboxPublisher(nil)

	q, err := p.insertQuery(time.Now(), []DomainEvent{
		{AggregateType: "company_client", AggregateID: "c1/u1", EventType: "ClientActivityRecorded", Payload: map[string]int{"n": 1}},
	})
	require.NoError(t, err)
	sql, args, err := q.ToSql()
	require.NoError(t, err)

	assert.Equal(t, "INSERT INTO sys_outbox (id,aggregate_type,aggregate_id,event_type,payload,status,created_at) VALUES ($1,$2,$3,$4,$5,$6,$7)", sql)
	assert.Equal(t, []byte(`{"n":1}`), args[4])
	assert.Equal(t, OutboxStatusPending, args[5])

	_, err = p.insertQuery(time.Now(), []DomainEvent{{Payload: make(chan int)}})
	assert.Error(t, err)
}

func TestOutboxRouter(t *testing.T) {
	var seen string
	router := OutboxRouter{
		"A": OutboxHandlerFunc(func(_ context.Context, msg *OutboxMessage) error {
			seen = msg.AggregateID
			return nil
		}),
	}

	require.NoError(t, router.Handle(context.Background(), &OutboxMessage{EventType: "A", AggregateID: "x"}))
	assert.Equal(t, "x", seen)
	assert.Error(t, router.Handle(context.Background(), &OutboxMessage{EventType: "B"}))
}
