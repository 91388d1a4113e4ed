package judgeapi

import (
	"context"
	"sync"
	"time"
)

// Throttle enforces a minimum gap between the return of one call and the
// start of the next.
type Throttle struct {
	interval time.Duration
	mu       sync.Mutex
	last     time.Time // when the previous call returned; zero before the first call
	now      func() time.Time
}

func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval, now: time.Now}
}

// Wait blocks until the interval has elapsed since the last Done, or ctx ends.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	last := t.last
	t.mu.Unlock()

	if last.IsZero() || t.interval <= 0 {
		return ctx.Err()
	}
	remaining := t.interval - t.now().Sub(last)
	if remaining <= 0 {
		return ctx.Err()
	}
	return sleepCtx(ctx, remaining)
}

// Done marks the end of a call.
func (t *Throttle) Done() {
	t.mu.Lock()
	t.last = t.now()
	t.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
