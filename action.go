package orchestration

import "context"

// Name is a type alias for action names. Using this type encourages storing
// names as constants rather than inline strings, and names appear in
// KernelError.Path to identify exactly where a failure occurred.
type Name = string

// State is the lifecycle every non-leaf action moves through (spec.md
// §4.7): Idle until first Execute, Running while a child is in flight,
// then Completed (Ok or Err) or Cancelled.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateCompletedOk
	StateCompletedErr
	StateCancelled
)

// ResourceShape reports an action's static resource footprint, computed
// once at build time: the maximum number of concurrent child futures it can
// have in flight and how many buffer slots that requires. The Task & Future
// Pool sizes itself from the sum of every node's ResourceShape in the tree
// (spec.md §4.1, testable property 1).
type ResourceShape struct {
	MaxConcurrentChildren int
	BufferSlots           int
}

// Action is the uniform contract every node in a composed task tree
// implements. Execute runs the node to completion or failure, observing
// ctx for cancellation at every suspension point. Shape reports the node's
// static resource footprint for pool sizing at build time.
//
// Generalized from pipz's Chainable[T].Process(ctx, T) (T, *Error[T]): the
// orchestration core carries no typed payload between actions (they
// coordinate through shared Conditions and the event bus instead), so the
// contract collapses to Execute(ctx) error plus the build-time Shape report
// spec.md §4.7 requires.
type Action interface {
	// Execute runs the action. A nil return means success; any non-nil
	// return is expected to unwrap (via errors.As) to a *KernelError
	// carrying the path back to the failing leaf.
	Execute(ctx context.Context) error

	// Name returns the action's name, used in KernelError.Path and in
	// observability signals.
	Name() Name

	// Shape reports this action's static resource footprint.
	Shape() ResourceShape

	// Close releases any resources the action holds (child actions,
	// pools). Close is idempotent.
	Close() error
}

// Condition evaluates a boolean discriminator once per IfElse.Execute
// (spec.md §3: "Simple returns bool").
type Condition interface {
	Compute(ctx context.Context) bool
}

// ConditionFunc adapts a plain function to Condition.
type ConditionFunc func(ctx context.Context) bool

func (f ConditionFunc) Compute(ctx context.Context) bool { return f(ctx) }

// Discriminator evaluates a small-integer dispatch key once per
// Switch.Execute (spec.md §3: "Complex returns a value coercible to a
// small integer discriminator").
type Discriminator interface {
	Discriminate(ctx context.Context) uint64
}

// DiscriminatorFunc adapts a plain function to Discriminator.
type DiscriminatorFunc func(ctx context.Context) uint64

func (f DiscriminatorFunc) Discriminate(ctx context.Context) uint64 { return f(ctx) }

// Invocable is a nullary operation, optionally pinned to a specific worker
// (spec.md §3). User errors returned from Call propagate wrapped as
// UserError.
type Invocable interface {
	Call(ctx context.Context) error
}

// InvocableFunc adapts a plain function to Invocable.
type InvocableFunc func(ctx context.Context) error

func (f InvocableFunc) Call(ctx context.Context) error { return f(ctx) }
