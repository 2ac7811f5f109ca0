package eventbus

import (
	"context"
	"errors"
	"fmt"
)

// Kind distinguishes the three event kinds the Bus can hold (spec.md §4.6).
type Kind int

const (
	KindLocal Kind = iota
	KindGlobal
	KindTimer
)

// ErrDuplicateTag is returned when Register is called twice for the same
// name with an incompatible kind — spec.md §9's open question ("two events
// of different kinds share a Tag") is resolved by rejecting at
// registration, never guessing a merge semantics.
var ErrDuplicateTag = errors.New("eventbus: tag already registered with a different kind")

// ErrUnknownEvent is returned by Listener lookups for an unregistered name.
var ErrUnknownEvent = errors.New("eventbus: unknown event")

// entry is the Bus's internal record for one registered event name.
type entry struct {
	kind   Kind
	local  *Local
	global *Global
	timer  *Timer
}

// Bus is the Tag-addressed registry of events the Program & Database layer
// builds on: one Bus per Program Database, populated at design time and
// bound to concrete transports/timers at deployment time.
type Bus struct {
	events map[string]*entry
}

// NewBus creates an empty event registry.
func NewBus() *Bus {
	return &Bus{events: make(map[string]*entry)}
}

// RegisterLocal registers name as a Local event. Returns ErrDuplicateTag if
// name is already registered with a different kind.
func (b *Bus) RegisterLocal(name string) (*Local, error) {
	if e, ok := b.events[name]; ok {
		if e.kind != KindLocal {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTag, name)
		}
		return e.local, nil
	}
	l := NewLocal(name)
	b.events[name] = &entry{kind: KindLocal, local: l}
	return l, nil
}

// RegisterGlobal registers name as a Global/IPC event bound to transport.
func (b *Bus) RegisterGlobal(name string, transport Transport) (*Global, error) {
	if e, ok := b.events[name]; ok {
		if e.kind != KindGlobal {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTag, name)
		}
		return e.global, nil
	}
	g := NewGlobal(name, transport)
	b.events[name] = &entry{kind: KindGlobal, global: g}
	return g, nil
}

// RegisterTimer registers name as a Timer event with the given period and
// clock, and starts its dedicated timer task under ctx.
func (b *Bus) RegisterTimer(ctx context.Context, name string, tm *Timer) (*Timer, error) {
	if e, ok := b.events[name]; ok {
		if e.kind != KindTimer {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTag, name)
		}
		return e.timer, nil
	}
	b.events[name] = &entry{kind: KindTimer, timer: tm}
	tm.Start(ctx)
	return tm, nil
}

// Kind reports the kind name was registered as.
func (b *Bus) Kind(name string) (Kind, error) {
	e, ok := b.events[name]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	return e.kind, nil
}

// Listen returns a Listener for any registered event kind, unifying Local,
// Global, and Timer behind the one wait contract the Action Kernel's Sync
// action uses.
func (b *Bus) Listen(ctx context.Context, name string) (*Listener, error) {
	e, ok := b.events[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	switch e.kind {
	case KindLocal:
		return e.local.Listen(), nil
	case KindTimer:
		return e.timer.Listen(), nil
	case KindGlobal:
		return e.global.Listen(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// Notify fires name's notification (the Action Kernel's Trigger action
// uses this): a Local event notifies its listeners directly, a Global
// event publishes on its Transport, and a Timer event is fired only by
// its own timer task, so Notify on one returns an error.
func (b *Bus) Notify(ctx context.Context, name string) error {
	e, ok := b.events[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
	switch e.kind {
	case KindLocal:
		e.local.Notify(ctx)
		return nil
	case KindGlobal:
		return e.global.Publish(ctx, nil)
	default:
		return fmt.Errorf("eventbus: cannot Notify a timer-driven event %q directly", name)
	}
}
