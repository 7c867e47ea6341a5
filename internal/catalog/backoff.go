package catalog

import (
	"context"
	"math/rand"
	"time"
)

// BackoffStrategy paces the allocator's retry loop between collided assign
// attempts. Injected so tests can run the state machine without wall-clock
// delay.
type BackoffStrategy interface {
	// Wait blocks before retry number attempt (1-based). It returns early
	// when the context is done.
	Wait(ctx context.Context, attempt int)
}

// NoBackoff retries immediately.
type NoBackoff struct{}

func (NoBackoff) Wait(context.Context, int) {}

// FixedBackoff waits a constant delay between attempts.
type FixedBackoff struct {
	Delay time.Duration
}

func (b FixedBackoff) Wait(ctx context.Context, _ int) {
	sleep(ctx, b.Delay)
}

// JitterBackoff waits a uniformly random delay in [0, Max), spreading
// contending writers apart.
type JitterBackoff struct {
	Max time.Duration
}

func (b JitterBackoff) Wait(ctx context.Context, _ int) {
	if b.Max <= 0 {
		return
	}
	sleep(ctx, time.Duration(rand.Int63n(int64(b.Max))))
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
