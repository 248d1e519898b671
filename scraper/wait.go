package scraper

import (
	"context"
	"log/slog"
	"time"
)

// WaitUntil polls cond every interval until it reports true, returns an
// error, or timeout elapses. Expiry yields ErrTimeout; cancellation of ctx
// itself is returned as is.
func WaitUntil(ctx context.Context, interval, timeout time.Duration, cond func(context.Context) (bool, error)) error {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(waitCtx)
		if err != nil {
			if waitCtx.Err() != nil && ctx.Err() == nil {
				return ErrTimeout{Err: waitCtx.Err()}
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-waitCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return ErrTimeout{Err: waitCtx.Err()}
		case <-ticker.C:
		}
	}
}

// sleepCtx pauses for d unless ctx ends first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// bestEffort runs an optional UI action. Failures are logged at debug
// level and discarded; the return value only reports success.
func bestEffort(ctx context.Context, action string, fn func(context.Context) error) bool {
	if err := fn(ctx); err != nil {
		slog.Debug("best-effort action failed",
			slog.String("action", action),
			slog.Any("error", err),
		)
		return false
	}
	return true
}
