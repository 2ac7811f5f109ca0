package orchestration

import (
	"context"
	"errors"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/kyron"
)

// Invoke runs a single nullary Invocable, the leaf node of an action tree
// (spec.md §3: "Invocable: a nullary callable, optionally pinned to a
// worker"). If the invocable is pinned, Execute migrates onto that worker
// via the supplied Migrate hook before calling it; unpinned invocables run
// inline on the calling goroutine.
type Invoke struct {
	name      Name
	invocable Invocable
	pinned    bool
	migrate   func(ctx context.Context, fn func(context.Context) error) error
}

// NewInvoke creates an Invoke action running the given Invocable inline.
func NewInvoke(name Name, invocable Invocable) *Invoke {
	return &Invoke{name: name, invocable: invocable}
}

// InvokeAction adapts a plain function into an Invoke action, the common
// case where no custom Invocable implementation is needed.
func InvokeAction(name Name, fn func(context.Context) error) *Invoke {
	return NewInvoke(name, InvocableFunc(fn))
}

// Pinned returns a copy of this Invoke that migrates to the given worker
// via migrate before calling the invocable (spec.md §4.5: Runtime.Spawn
// with Where targeting a specific engine/worker).
func (i *Invoke) Pinned(migrate func(ctx context.Context, fn func(context.Context) error) error) *Invoke {
	return &Invoke{name: i.name, invocable: i.invocable, pinned: true, migrate: migrate}
}

// PinnedOn builds the migrate hook from a real kyron.Runtime: calling it
// spawns the invocable's call onto where via Runtime.Spawn and blocks for
// the result, the concrete realization of spec.md §4.5's "migrate onto
// the pinned worker before calling it" for deployments that actually
// bind an invocable to a worker (program.Database.BindInvocableWorker).
func (i *Invoke) PinnedOn(runtime *kyron.Runtime, where kyron.Where) *Invoke {
	migrate := func(ctx context.Context, fn func(context.Context) error) error {
		done := make(chan error, 1)
		if spawnErr := runtime.Spawn(func() { done <- fn(ctx) }, where); spawnErr != nil {
			return spawnErr
		}
		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return i.Pinned(migrate)
}

// Name returns the invoke action's name.
func (i *Invoke) Name() Name { return i.name }

// Shape reports that a leaf invoke never fans out.
func (i *Invoke) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 0, BufferSlots: 0}
}

// Execute calls the invocable, migrating to its pinned worker first if
// one was configured. A panic inside the invocable (an FFI boundary
// crossing, in the general case) is recovered and reported as a
// RuntimeError wrapping ErrInvocableAborted.
func (i *Invoke) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, i.name)

	start := time.Now()
	capitan.Info(ctx, SignalInvokeStarted, FieldName.Field(i.name))

	call := func(ctx context.Context) error {
		return i.invocable.Call(ctx)
	}

	var callErr error
	if i.pinned && i.migrate != nil {
		callErr = i.migrate(ctx, call)
	} else {
		callErr = call(ctx)
	}

	if callErr != nil {
		capitan.Warn(ctx, SignalInvokeFinished,
			FieldName.Field(i.name),
			FieldError.Field(callErr.Error()),
			FieldDuration.Field(time.Since(start).Seconds()),
		)
		var uerr *UserError
		if errors.As(callErr, &uerr) {
			return prependPath(i.name, uerr)
		}
		return prependPath(i.name, &UserError{Err: callErr})
	}

	capitan.Info(ctx, SignalInvokeFinished,
		FieldName.Field(i.name),
		FieldDuration.Field(time.Since(start).Seconds()),
	)
	return nil
}

// Describe implements Describable.
func (i *Invoke) Describe() Node {
	return Node{Name: i.name, Type: "invoke", Metadata: map[string]any{"pinned": i.pinned}}
}

// Close is a no-op; Invoke owns no resources beyond the invocable itself.
func (i *Invoke) Close() error { return nil }
