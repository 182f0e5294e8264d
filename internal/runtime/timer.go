package runtime

import (
	"context"
	"sync"
	"time"
)

// CountdownTimer ticks one question's remaining seconds down and fires an
// expiry callback at most once per arm. Re-arming with Start resets the
// fired guard and supersedes any previous run, so a question change faster
// than one tick never double-fires. It is display-side only; the server
// stays authoritative on whether time actually ran out.
type CountdownTimer struct {
	interval time.Duration
	onTick   func(remaining int)
	onExpire func(armID int)

	mu        sync.Mutex
	armID     int
	remaining int
	fired     bool
	cancel    context.CancelFunc
}

// NewCountdownTimer builds a timer ticking at the given interval (1s when
// zero). Callbacks may be nil and are invoked from the timer's goroutine,
// never under the timer's lock.
func NewCountdownTimer(interval time.Duration, onTick func(remaining int), onExpire func(armID int)) *CountdownTimer {
	if interval <= 0 {
		interval = time.Second
	}
	return &CountdownTimer{interval: interval, onTick: onTick, onExpire: onExpire}
}

// Start arms the timer with the question's remaining seconds, cancelling any
// previous run. A non-positive value expires immediately. The armID is handed
// back to the expiry callback, so an expiry that was already past the fired
// check when a re-arm raced it can still be matched to the arm it belongs to.
func (t *CountdownTimer) Start(armID, seconds int) {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	t.armID = armID
	t.fired = false
	t.remaining = seconds
	t.mu.Unlock()

	go t.run(ctx)
}

// Stop cancels the countdown. After Stop returns no expiry will fire for the
// current arm. Safe to call repeatedly.
func (t *CountdownTimer) Stop() {
	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.fired = true
	t.mu.Unlock()
}

// Remaining reports the seconds still on the clock.
func (t *CountdownTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

func (t *CountdownTimer) run(ctx context.Context) {
	if t.tryExpire(ctx) {
		return
	}

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.mu.Lock()
			if t.fired || ctx.Err() != nil {
				t.mu.Unlock()
				return
			}
			t.remaining--
			remaining := t.remaining
			t.mu.Unlock()

			if remaining > 0 {
				if t.onTick != nil {
					t.onTick(remaining)
				}
				continue
			}
			if t.tryExpire(ctx) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// tryExpire fires the expiry callback once if the countdown is at zero and
// this arm has not fired or been cancelled yet.
func (t *CountdownTimer) tryExpire(ctx context.Context) bool {
	t.mu.Lock()
	if t.fired || ctx.Err() != nil {
		t.mu.Unlock()
		return true
	}
	if t.remaining > 0 {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	armID := t.armID
	t.mu.Unlock()

	if t.onExpire != nil {
		t.onExpire(armID)
	}
	return true
}
