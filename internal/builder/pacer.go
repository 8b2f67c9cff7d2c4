package builder

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// pacer enforces the request budget shared by all workers.
type pacer struct {
	every int
	pause time.Duration
	sleep SleepFunc

	// limiter is nil when no per-second budget is set.
	limiter *rate.Limiter

	mu     sync.Mutex
	n      int
	pauses int
}

func newPacer(every int, pause time.Duration, rps float64, sleep SleepFunc) *pacer {
	p := &pacer{every: every, pause: pause, sleep: sleep}
	if rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
	return p
}

// Wait blocks until the token bucket admits one more request.
func (p *pacer) Wait(ctx context.Context) error {
	if p.limiter == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

// Tick counts one dispatched entry. On every every-th call it runs settle,
// which blocks until in-flight entries finish, and then pauses.
func (p *pacer) Tick(ctx context.Context, settle func()) error {
	p.mu.Lock()
	p.n++
	due := p.every > 0 && p.pause > 0 && p.n%p.every == 0
	if due {
		p.pauses++
	}
	p.mu.Unlock()

	if !due {
		return nil
	}
	if settle != nil {
		settle()
	}
	return p.sleep(ctx, p.pause)
}

// Pauses returns how many pacing pauses were taken.
func (p *pacer) Pauses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pauses
}
