package orchestration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/eventbus"
)

// Sync blocks until a single pending notification on a registered event
// is observed, or the context is cancelled (spec.md §4.7: "Sync awaits
// one edge of a named event"). It is the consuming half of the
// Trigger/Sync pair.
//
// Each Sync action owns its own Listener, obtained lazily on first
// Execute so construction never needs a context.
type Sync struct {
	name  Name
	bus   *eventbus.Bus
	event string

	mu       sync.Mutex
	listener *eventbus.Listener
}

// NewSync creates a Sync action awaiting event on bus.
func NewSync(name Name, bus *eventbus.Bus, event string) *Sync {
	return &Sync{name: name, bus: bus, event: event}
}

// Name returns the action's name.
func (s *Sync) Name() Name { return s.name }

// Shape reports that a leaf sync never fans out.
func (s *Sync) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 0, BufferSlots: 0}
}

// Execute waits for the next pending notification on the event, or for
// ctx to be cancelled. A cancellation never loses a notification that
// races in concurrently: the underlying Listener's pending bit survives
// for the next Execute call.
func (s *Sync) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, s.name)

	s.mu.Lock()
	if s.listener == nil {
		listener, listenErr := s.bus.Listen(ctx, s.event)
		if listenErr != nil {
			s.mu.Unlock()
			return prependPath(s.name, &DeploymentError{Err: listenErr})
		}
		s.listener = listener
	}
	listener := s.listener
	s.mu.Unlock()

	start := time.Now()
	capitan.Info(ctx, SignalSyncWaiting, FieldName.Field(s.name), FieldEventName.Field(s.event))

	if waitErr := listener.Wait(ctx); waitErr != nil {
		return &KernelError{
			Err:       waitErr,
			Path:      []Name{s.name},
			Canceled:  errors.Is(waitErr, context.Canceled),
			Timeout:   errors.Is(waitErr, context.DeadlineExceeded),
			Timestamp: time.Now(),
			Duration:  time.Since(start),
		}
	}

	capitan.Info(ctx, SignalSyncObserved,
		FieldName.Field(s.name),
		FieldEventName.Field(s.event),
		FieldDuration.Field(time.Since(start).Seconds()),
	)
	return nil
}

// Describe implements Describable.
func (s *Sync) Describe() Node {
	return Node{Name: s.name, Type: "sync", Metadata: map[string]any{"event": s.event}}
}

// Close is a no-op; it does not unregister Sync's Listener from its event.
func (s *Sync) Close() error { return nil }
