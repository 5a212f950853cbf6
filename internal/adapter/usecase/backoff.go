package usecase

import (
	"context"
	"time"
)

// backoff computes exponential retry delays: base, 2*base, 4*base and so
// on, starting from attempt 1.
type backoff struct {
	base time.Duration
}

func (b backoff) delay(attempt int) time.Duration {
	d := b.base
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	return d
}

// wait sleeps for the attempt's delay, honoring context cancellation.
func (b backoff) wait(ctx context.Context, attempt int) error {
	timer := time.NewTimer(b.delay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
