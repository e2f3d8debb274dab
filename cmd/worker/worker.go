package main

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"

	"tillpoint/pkg/logger"
)

const (
	maintenanceInterval = time.Hour
	maintenanceLockKey  = "tillpoint:lock:maintenance"
	maintenanceLockTTL  = 5 * time.Minute
)

// Relay is the slice of postgres.OutboxRelay the worker drives.
type Relay interface {
	ProcessBatch(ctx context.Context) (int, error)
	MoveToDLQ(ctx context.Context) (int64, error)
	PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Sweeper drops expired idempotency keys.
type Sweeper interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// LockFunc runs fn while holding key. ran is false when another holder has it.
type LockFunc func(ctx context.Context, key string, fn func(ctx context.Context)) (ran bool, err error)

func noLock(ctx context.Context, _ string, fn func(ctx context.Context)) (bool, error) {
	fn(ctx)
	return true, nil
}

func redisLock(locker *redislock.Client) LockFunc {
	return func(ctx context.Context, key string, fn func(ctx context.Context)) (bool, error) {
		lock, err := locker.Obtain(ctx, key, maintenanceLockTTL, nil)
		if errors.Is(err, redislock.ErrNotObtained) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		defer func() {
			if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
				logger.Warn(ctx, "failed to release maintenance lock", "error", err)
			}
		}()
		fn(ctx)
		return true, nil
	}
}

// Worker polls the outbox and periodically cleans up.
type Worker struct {
	relay        Relay
	idempotency  Sweeper
	pollInterval time.Duration
	retention    time.Duration
	lock         LockFunc
	log          *logger.Logger

	// reportStats logs this process's connection pool usage. Optional.
	reportStats func(ctx context.Context)
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ctx = logger.WithLogger(ctx, w.log)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	cleanupTicker := time.NewTicker(maintenanceInterval)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.drainOutbox(ctx)
		case <-cleanupTicker.C:
			w.maintain(ctx)
		}
	}
}

// drainOutbox keeps relaying while full batches come back.
func (w *Worker) drainOutbox(ctx context.Context) {
	for ctx.Err() == nil {
		n, err := w.relay.ProcessBatch(ctx)
		if err != nil {
			w.log.Errorw("outbox batch failed", "error", err)
			return
		}
		if n == 0 {
			return
		}
		w.log.Debugw("relayed outbox batch", "count", n)
	}
}

func (w *Worker) maintain(ctx context.Context) {
	if w.reportStats != nil {
		w.reportStats(ctx)
	}

	ran, err := w.lock(ctx, maintenanceLockKey, w.runMaintenance)
	if err != nil {
		w.log.Errorw("failed to obtain maintenance lock", "error", err)
		return
	}
	if !ran {
		w.log.Debug("maintenance running elsewhere, skipping")
	}
}

func (w *Worker) runMaintenance(ctx context.Context) {
	if n, err := w.relay.MoveToDLQ(ctx); err != nil {
		w.log.Errorw("failed to move outbox messages to DLQ", "error", err)
	} else if n > 0 {
		w.log.Warnw("moved outbox messages to DLQ", "count", n)
	}

	if n, err := w.relay.PurgePublished(ctx, w.retention); err != nil {
		w.log.Errorw("failed to purge published outbox messages", "error", err)
	} else if n > 0 {
		w.log.Infow("purged published outbox messages", "count", n)
	}

	if n, err := w.idempotency.CleanupExpired(ctx); err != nil {
		w.log.Errorw("failed to clean up idempotency keys", "error", err)
	} else if n > 0 {
		w.log.Infow("cleaned up idempotency keys", "count", n)
	}
}
