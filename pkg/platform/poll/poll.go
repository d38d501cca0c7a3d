// Package poll waits for eventually consistent state to appear.
package poll

import (
	"context"
	"time"

	dErrors "quorumcred/pkg/domain-errors"
)

const (
	DefaultInterval = 50 * time.Millisecond
	DefaultTimeout  = 5 * time.Second
)

// Condition reports whether the awaited state is visible. A non-nil error
// stops polling immediately.
type Condition func(ctx context.Context) (bool, error)

// Until evaluates cond immediately and then every interval until it holds,
// returns an error, or timeout elapses. Expiry yields a CodeTimeout error.
func Until(ctx context.Context, interval, timeout time.Duration, cond Condition) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "condition not met before deadline")
		case <-ticker.C:
		}
	}
}
