package program

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/eventbus"
	"github.com/qorix-group/inc-orchestrator/kyron"
)

// Database is the design-time registry a Program composes against
// (spec.md §3, §4.8). It holds three independent Tag-indexed
// registries — actions, invocables, and conditions — plus the events a
// design declares on its shared eventbus.Bus; uniqueness of a name is
// enforced per kind, so "retry" can name an action and an invocable at
// once without colliding (spec.md §3: "Uniqueness is enforced per
// kind").
//
// Registration alone only declares intent: an invocable or event tag is
// "bound" only once deployment assigns it a concrete worker, transport,
// or timer (BindInvocableWorker, BindLocalEvent, BindGlobalEvent).
// Unbound registers that the program never runs against (Unbound) are
// what turns into ErrDeploymentIncomplete at api.Run.
type Database struct {
	mu sync.RWMutex

	actions      map[Tag]orchestration.Action
	actionNames  map[Tag]string
	invocables   map[Tag]orchestration.Invocable
	invocableNames map[Tag]string
	conditions   map[Tag]any // orchestration.Condition or orchestration.Discriminator
	conditionNames map[Tag]string
	eventNames   map[Tag]string

	boundInvocables map[Tag]bool
	boundEvents     map[Tag]bool

	bus *eventbus.Bus
}

// NewDatabase creates an empty Database with its own event bus.
func NewDatabase() *Database {
	return &Database{
		actions:        make(map[Tag]orchestration.Action),
		actionNames:    make(map[Tag]string),
		invocables:     make(map[Tag]orchestration.Invocable),
		invocableNames: make(map[Tag]string),
		conditions:     make(map[Tag]any),
		conditionNames: make(map[Tag]string),
		eventNames:     make(map[Tag]string),

		boundInvocables: make(map[Tag]bool),
		boundEvents:     make(map[Tag]bool),

		bus: eventbus.NewBus(),
	}
}

func registerUnique(names map[Tag]string, name string) (Tag, error) {
	tag := NewTag(name)
	if existing, ok := names[tag]; ok {
		if existing != name {
			return Tag{}, fmt.Errorf("program: tag collision between %q and %q (diagnostic id %s)", name, existing, uuid.NewString())
		}
		return Tag{}, fmt.Errorf("program: %q already registered", name)
	}
	return tag, nil
}

// RegisterAction tags action under name and returns its OrchestrationTag.
// Re-registering the same name with a different action is rejected: a
// Database entry, once tagged, is immutable for the life of the design
// (spec.md §8 invariant: "tags are stable for the life of a design").
func (d *Database) RegisterAction(name string, action orchestration.Action) (OrchestrationTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tag, err := registerUnique(d.actionNames, name)
	if err != nil {
		return OrchestrationTag{}, err
	}
	d.actions[tag] = action
	d.actionNames[tag] = name
	return OrchestrationTag{Tag: tag, Name: name}, nil
}

// Lookup resolves a Tag to its registered action.
func (d *Database) Lookup(tag Tag) (orchestration.Action, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.actions[tag]
	return a, ok
}

// Name returns the debug name an action Tag was registered under, for
// logging.
func (d *Database) Name(tag Tag) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	n, ok := d.actionNames[tag]
	return n, ok
}

// LookupActionByName resolves a registered action by its design-time
// name, the shape a file-config loader needs to turn a JSON/YAML
// reference into a live node.
func (d *Database) LookupActionByName(name string) (orchestration.Action, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	a, ok := d.actions[NewTag(name)]
	return a, ok
}

// RegisterInvocable tags invocable under name in the invocable registry
// (spec.md §3/§4.8). It is not usable by a deployment until
// BindInvocableWorker assigns it a worker.
func (d *Database) RegisterInvocable(name string, invocable orchestration.Invocable) (OrchestrationTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tag, err := registerUnique(d.invocableNames, name)
	if err != nil {
		return OrchestrationTag{}, err
	}
	d.invocables[tag] = invocable
	d.invocableNames[tag] = name
	return OrchestrationTag{Tag: tag, Name: name}, nil
}

// LookupInvocable resolves a Tag to its registered Invocable.
func (d *Database) LookupInvocable(tag Tag) (orchestration.Invocable, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	inv, ok := d.invocables[tag]
	return inv, ok
}

// LookupInvocableByName resolves a registered invocable by its
// design-time name.
func (d *Database) LookupInvocableByName(name string) (orchestration.Invocable, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	inv, ok := d.invocables[NewTag(name)]
	return inv, ok
}

// RegisterCondition tags a Condition or Discriminator under name in the
// condition registry (spec.md §3: Simple returns bool, Complex returns a
// discriminator — both share one registry since neither needs
// deployment-time binding, unlike invocables and events).
func (d *Database) RegisterCondition(name string, condition orchestration.Condition) (OrchestrationTag, error) {
	return d.registerConditionLike(name, condition)
}

// RegisterDiscriminator tags a Discriminator under name in the condition
// registry, alongside plain Conditions (see RegisterCondition).
func (d *Database) RegisterDiscriminator(name string, discriminator orchestration.Discriminator) (OrchestrationTag, error) {
	return d.registerConditionLike(name, discriminator)
}

func (d *Database) registerConditionLike(name string, v any) (OrchestrationTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tag, err := registerUnique(d.conditionNames, name)
	if err != nil {
		return OrchestrationTag{}, err
	}
	d.conditions[tag] = v
	d.conditionNames[tag] = name
	return OrchestrationTag{Tag: tag, Name: name}, nil
}

// LookupConditionByName resolves a registered Condition by name.
func (d *Database) LookupConditionByName(name string) (orchestration.Condition, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.conditions[NewTag(name)]
	if !ok {
		return nil, false
	}
	cond, ok := v.(orchestration.Condition)
	return cond, ok
}

// LookupDiscriminatorByName resolves a registered Discriminator by name.
func (d *Database) LookupDiscriminatorByName(name string) (orchestration.Discriminator, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.conditions[NewTag(name)]
	if !ok {
		return nil, false
	}
	disc, ok := v.(orchestration.Discriminator)
	return disc, ok
}

// RegisterEvent declares name in the event registry without binding it
// to a transport; BindLocalEvent or BindGlobalEvent is the
// deployment-time step that actually makes it usable, local or global
// respectively (spec.md §4.8).
func (d *Database) RegisterEvent(name string) (OrchestrationTag, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	tag, err := registerUnique(d.eventNames, name)
	if err != nil {
		return OrchestrationTag{}, err
	}
	d.eventNames[tag] = name
	return OrchestrationTag{Tag: tag, Name: name}, nil
}

// BindLocalEvent is the deployment-time binding for a declared local
// event: it registers name on the shared bus as a Local event and marks
// the tag bound (spec.md §4.8: "Deployment binds ... each event as
// local/global/timer").
func (d *Database) BindLocalEvent(tag Tag) (*eventbus.Local, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.eventNames[tag]
	if !ok {
		return nil, fmt.Errorf("program: event tag not registered")
	}
	local, err := d.bus.RegisterLocal(name)
	if err != nil {
		return nil, err
	}
	d.boundEvents[tag] = true
	return local, nil
}

// BindGlobalEvent is the deployment-time binding for a declared event
// routed through an external transport.
func (d *Database) BindGlobalEvent(tag Tag, transport eventbus.Transport) (*eventbus.Global, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	name, ok := d.eventNames[tag]
	if !ok {
		return nil, fmt.Errorf("program: event tag not registered")
	}
	global, err := d.bus.RegisterGlobal(name, transport)
	if err != nil {
		return nil, err
	}
	d.boundEvents[tag] = true
	return global, nil
}

// BindInvocableWorker is the deployment-time binding for a registered
// invocable: it builds a pinned orchestration.Invoke migrating onto
// where via runtime.Spawn (spec.md §4.8: "Deployment binds ... each
// invocable to a worker") and marks the tag bound.
func (d *Database) BindInvocableWorker(tag Tag, runtime *kyron.Runtime, where kyron.Where) (*orchestration.Invoke, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	inv, ok := d.invocables[tag]
	if !ok {
		return nil, fmt.Errorf("program: invocable tag not registered")
	}
	name := d.invocableNames[tag]

	invoke := orchestration.NewInvoke(name, inv).PinnedOn(runtime, where)
	d.boundInvocables[tag] = true
	return invoke, nil
}

// Unbound reports the debug names of every registered invocable and
// event tag that has not yet been bound at deployment time — the check
// api.Run performs before starting a Program (spec.md §4.9: "run()
// validates all tags are bound ... unbound tags fail run() with
// DeploymentIncomplete").
func (d *Database) Unbound() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var unbound []string
	for tag, name := range d.invocableNames {
		if !d.boundInvocables[tag] {
			unbound = append(unbound, name)
		}
	}
	for tag, name := range d.eventNames {
		if !d.boundEvents[tag] {
			unbound = append(unbound, name)
		}
	}
	return unbound
}

// Events returns the Database's event bus, for Trigger/Sync actions
// composed against this design and for registering named events on it.
func (d *Database) Events() *eventbus.Bus { return d.bus }
