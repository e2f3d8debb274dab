package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"tillpoint/internal/core/id"
	"tillpoint/pkg/logger"
)

// NotifyChannel is the channel the catalog triggers NOTIFY on.
// Payload format: "<kind>:<id>", e.g. "service:4xTqz".
const NotifyChannel = "catalog_changed"

// Evicter drops cached catalog entries.
type Evicter interface {
	Evict(ctx context.Context, kind string, entryID id.ID) error
}

// Invalidator evicts catalog cache entries when PostgreSQL reports a change
// via LISTEN/NOTIFY, so edits show up before the TTL runs out.
type Invalidator struct {
	pool    *pgxpool.Pool
	evicter Evicter

	lifecycleMu sync.Mutex
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	started     bool
}

// NewInvalidator creates an invalidator. Call Start to begin listening.
func NewInvalidator(pool *pgxpool.Pool, evicter Evicter) *Invalidator {
	return &Invalidator{pool: pool, evicter: evicter}
}

// ParsePayload splits a NOTIFY payload into kind and id.
func ParsePayload(payload string) (kind string, entryID id.ID, err error) {
	kind, entryID, ok := strings.Cut(strings.TrimSpace(payload), ":")
	if !ok || entryID == "" {
		return "", "", fmt.Errorf("malformed catalog notification %q", payload)
	}
	switch kind {
	case KindSystemVariant, KindCompanyProduct, KindService, KindCustomer:
		return kind, entryID, nil
	}
	return "", "", fmt.Errorf("unknown catalog kind %q", kind)
}

// Start begins listening in the background.
func (i *Invalidator) Start(ctx context.Context) {
	i.lifecycleMu.Lock()
	defer i.lifecycleMu.Unlock()
	if i.started {
		return
	}
	i.ctx, i.cancel = context.WithCancel(ctx)
	i.started = true

	i.wg.Add(1)
	go i.listenLoop()
	logger.Info(i.ctx, "catalog invalidator started")
}

// Stop ends listening and waits for the loop to exit.
func (i *Invalidator) Stop() {
	i.lifecycleMu.Lock()
	if !i.started {
		i.lifecycleMu.Unlock()
		return
	}
	cancel := i.cancel
	i.started = false
	i.cancel = nil
	i.lifecycleMu.Unlock()

	cancel()
	i.wg.Wait()
	logger.Info(context.Background(), "catalog invalidator stopped")
}

func (i *Invalidator) listenLoop() {
	defer i.wg.Done()

	for {
		select {
		case <-i.ctx.Done():
			return
		default:
		}

		conn, err := i.pool.Acquire(i.ctx)
		if err != nil {
			if i.ctx.Err() != nil {
				return
			}
			logger.Error(i.ctx, "failed to acquire connection for LISTEN", "error", err)
			time.Sleep(time.Second)
			continue
		}

		if _, err := conn.Exec(i.ctx, "LISTEN "+NotifyChannel); err != nil {
			logger.Error(i.ctx, "failed to LISTEN", "error", err)
			conn.Release()
			time.Sleep(time.Second)
			continue
		}

		i.waitForNotifications(conn)
		conn.Release()
	}
}

func (i *Invalidator) waitForNotifications(conn *pgxpool.Conn) {
	for {
		// Bounded wait so shutdown is noticed.
		ctx, cancel := context.WithTimeout(i.ctx, 30*time.Second)
		notification, err := conn.Conn().WaitForNotification(ctx)
		cancel()

		if err != nil {
			if i.ctx.Err() != nil {
				return
			}
			if ctx.Err() != nil {
				continue
			}
			// Connection trouble: reacquire.
			logger.Warn(i.ctx, "catalog LISTEN connection lost", "error", err)
			return
		}
		i.handle(i.ctx, notification.Payload)
	}
}

func (i *Invalidator) handle(ctx context.Context, payload string) {
	kind, entryID, err := ParsePayload(payload)
	if err != nil {
		logger.Warn(ctx, "ignoring catalog notification", "error", err)
		return
	}
	if err := i.evicter.Evict(ctx, kind, entryID); err != nil {
		logger.Error(ctx, "failed to evict catalog entry", "kind", kind, "id", entryID, "error", err)
		return
	}
	logger.Debug(ctx, "catalog entry evicted", "kind", kind, "id", entryID)
}
