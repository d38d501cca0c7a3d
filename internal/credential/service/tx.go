package service

import (
	"context"
	"errors"
	"time"

	"quorumcred/internal/credential/metrics"
	"quorumcred/pkg/domain"
	dErrors "quorumcred/pkg/domain-errors"
	platformsync "quorumcred/pkg/platform/sync"
)

// defaultLockTimeout bounds the wait for a credential's lock, and the whole
// transaction when the caller set no deadline.
const defaultLockTimeout = 5 * time.Second

// credentialTx serializes mutations of one credential inside this process.
// Different credentials usually land on different shards and do not block
// each other. The store still enforces uniqueness on its own, so replicas
// sharing a database stay correct without this lock.
type credentialTx struct {
	mu          *platformsync.ShardedMutex
	store       Store
	lockTimeout time.Duration
	metrics     *metrics.Metrics
}

func (t *credentialTx) RunInTx(ctx context.Context, id domain.CredentialID, fn func(ctx context.Context, store Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.lockTimeout)
		defer cancel()
	}

	key := id.String()
	lockCtx, cancelLock := context.WithTimeout(ctx, t.lockTimeout)
	defer cancelLock()

	lockStart := time.Now()
	err := t.mu.LockContext(lockCtx, key)
	if t.metrics != nil {
		t.metrics.ObserveLockWait(time.Since(lockStart).Seconds())
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return dErrors.Wrap(err, dErrors.CodeTimeout, "timed out waiting for credential lock")
		}
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	defer t.mu.Unlock(key)

	return fn(ctx, t.store)
}
