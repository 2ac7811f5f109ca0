package orchestration

import (
	"context"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/eventbus"
)

// Trigger notifies a registered event and returns immediately, without
// waiting for any observer to react (spec.md §4.7: "Trigger fires an
// event and completes"). It is the producing half of the Trigger/Sync
// pair; Sync is the consuming half.
type Trigger struct {
	name  Name
	bus   *eventbus.Bus
	event string
}

// NewTrigger creates a Trigger action that notifies event on bus.
func NewTrigger(name Name, bus *eventbus.Bus, event string) *Trigger {
	return &Trigger{name: name, bus: bus, event: event}
}

// Name returns the action's name.
func (t *Trigger) Name() Name { return t.name }

// Shape reports that a leaf trigger never fans out.
func (t *Trigger) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 0, BufferSlots: 0}
}

// Execute notifies the event and returns. Notify is itself
// edge-collapsing and cancel-safe (eventbus.Local/Global semantics); a
// Trigger never blocks waiting for an observer.
func (t *Trigger) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, t.name)

	start := time.Now()
	if notifyErr := t.bus.Notify(ctx, t.event); notifyErr != nil {
		return prependPath(t.name, &RuntimeError{Err: notifyErr})
	}

	capitan.Info(ctx, SignalTriggerNotified,
		FieldName.Field(t.name),
		FieldEventName.Field(t.event),
		FieldDuration.Field(time.Since(start).Seconds()),
	)
	return nil
}

// Describe implements Describable.
func (t *Trigger) Describe() Node {
	return Node{Name: t.name, Type: "trigger", Metadata: map[string]any{"event": t.event}}
}

// Close is a no-op; Trigger owns no resources of its own beyond the bus,
// which outlives any single action and is closed by its owner.
func (t *Trigger) Close() error { return nil }
