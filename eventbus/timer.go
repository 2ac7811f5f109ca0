package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/zoobzio/clockz"
)

// Timer is a monotonic-clock-driven periodic event. Tick granularity is a
// deployment parameter (spec.md §4.6); firing delegates to a dedicated
// timer task that notifies every listener exactly like a Local event.
//
// Grounded on github.com/zoobzio/clockz.Clock, the same fakeable-time
// abstraction pipz's WorkerPool and CircuitBreaker use for their own
// timeouts/reset windows, so timer-driven orchestration scenarios (spec.md
// S4) can be tested without real sleeps.
type Timer struct {
	local  *Local
	clock  clockz.Clock
	period time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// NewTimer creates a Timer event that fires every period, using clock for
// its ticks. Pass clockz.RealClock in production and a fake clock in tests.
func NewTimer(name string, period time.Duration, clock clockz.Clock) *Timer {
	return &Timer{
		local:  NewLocal(name),
		clock:  clock,
		period: period,
	}
}

// Listen registers a new listener, identical to Local.Listen.
func (t *Timer) Listen() *Listener { return t.local.Listen() }

// OnNotify mirrors Local.OnNotify for observability hooks.
func (t *Timer) OnNotify(handler func(context.Context, NotifyEvent)) error {
	return t.local.OnNotify(handler)
}

// Start launches the dedicated timer task that ticks every period and
// notifies listeners, until ctx is cancelled or Stop is called.
func (t *Timer) Start(ctx context.Context) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.running = true
	t.mu.Unlock()

	go func() {
		for {
			select {
			case <-t.clock.After(t.period):
				t.local.Notify(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the timer task. Idempotent.
func (t *Timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	t.running = false
}
