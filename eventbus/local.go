// Package eventbus implements the orchestration core's Event Bus: a
// Tag-addressed registry of Local, Global/IPC, and Timer events, each
// exposing edge-triggered, idempotent-notify, cancel-safe listeners
// (spec.md §4.6).
package eventbus

import (
	"context"
	"sync"

	"github.com/zoobzio/hookz"
)

// NotifyEvent is the payload delivered to observer hooks registered via
// Local.OnNotify — an observability channel distinct from the edge-
// triggered Listener wait/notify fast path below.
type NotifyEvent struct {
	Name string
}

// LocalEventNotified is the single hook key every Local event emits on.
var LocalEventNotified = hookz.Key("eventbus.local.notified")

// Local is an in-process, multi-listener, edge-triggered event. Notify
// records a pending bit on each listener not already pending; the bit
// survives a cancelled Wait (spec.md §4.6 contract: "cancellation never
// loses a pending notification").
//
// Grounded on github.com/zoobzio/hookz's Hooks[T], the pack's existing
// cancel-safe hook/emit primitive (used by pipz's switch.go and handle.go
// for their own observer hooks). hookz itself re-fires every Emit to every
// registered handler rather than collapsing repeats into a single edge, so
// it is used here only for the observability side-channel (OnNotify); the
// actual edge-collapsing wait/notify contract is the per-Listener pending
// bit, since that is the part spec.md §3 invariant 4 actually constrains.
type Local struct {
	name  string
	hooks *hookz.Hooks[NotifyEvent]

	mu        sync.Mutex
	listeners map[*Listener]struct{}
}

// NewLocal creates a named Local event.
func NewLocal(name string) *Local {
	return &Local{
		name:      name,
		hooks:     hookz.New[NotifyEvent](),
		listeners: make(map[*Listener]struct{}),
	}
}

// OnNotify registers an observer invoked (asynchronously, via hookz) every
// time Notify is called, regardless of whether it changed any listener's
// pending bit. Useful for tracing/metrics, not for synchronization.
func (l *Local) OnNotify(handler func(context.Context, NotifyEvent)) error {
	_, err := l.hooks.Hook(LocalEventNotified, handler)
	return err
}

// Close releases the observer-hook registry. Listener wait/notify state is
// unaffected.
func (l *Local) Close() error {
	l.hooks.Close()
	return nil
}

// Listener is one observer of a Local event. Each Listener owns an
// independent pending bit so multiple listeners on the same event don't
// interfere with each other's edge-collapsing.
type Listener struct {
	mu      sync.Mutex
	pending bool
	wake    chan struct{}
}

// Listen registers and returns a new Listener for this event.
func (l *Local) Listen() *Listener {
	lst := &Listener{wake: make(chan struct{}, 1)}
	l.mu.Lock()
	l.listeners[lst] = struct{}{}
	l.mu.Unlock()
	return lst
}

// Notify marks pending on every listener not already pending, collapsing
// repeat notifies into the single outstanding edge (spec.md §3 invariant 4).
func (l *Local) Notify(ctx context.Context) {
	l.mu.Lock()
	for lst := range l.listeners {
		lst.mark()
	}
	l.mu.Unlock()
	_ = l.hooks.Emit(ctx, LocalEventNotified, NotifyEvent{Name: l.name}) //nolint:errcheck
}

func (lst *Listener) mark() {
	lst.mu.Lock()
	defer lst.mu.Unlock()
	if lst.pending {
		return
	}
	lst.pending = true
	select {
	case lst.wake <- struct{}{}:
	default:
	}
}

// Wait blocks until a pending notification is observed or ctx is cancelled.
// Wait is cancellable; if ctx is cancelled first, the pending bit (if any
// notify raced in) is left set for the next Wait call.
func (lst *Listener) Wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	lst.mu.Lock()
	if lst.pending {
		lst.pending = false
		select {
		case <-lst.wake:
		default:
		}
		lst.mu.Unlock()
		return nil
	}
	lst.mu.Unlock()

	select {
	case <-lst.wake:
		lst.mu.Lock()
		lst.pending = false
		lst.mu.Unlock()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
