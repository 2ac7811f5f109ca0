package orchestration

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/kyron"
)

// Concurrency runs all of its children in parallel and cancels the
// remaining siblings as soon as any one of them fails (spec.md §4.7:
// "Concurrency ... on first child error, cancels the rest and propagates
// that error"). This is a deliberate departure from a fan-out-and-collect
// shape: the action tree carries no payload to reduce into, so there is
// nothing useful a surviving sibling could contribute once one has
// already failed.
//
// Child futures are borrowed from a ReusableFuturePool sized to the
// action's child count at construction, so repeated Execute calls reuse
// the same slots instead of allocating new ones. When Deploy has bound a kyron.Runtime, every child future
// runs via Runtime.Spawn on the Where deploy assigned it, exercising the
// Engine/Scheduler/Worker machinery exactly as spec.md §1 describes; an
// undeployed Concurrency (the common case in unit tests composing a tree
// directly) falls back to a bare goroutine per child.
type Concurrency struct {
	name     Name
	children []Action
	futures  *kyron.ReusableFuturePool

	mu        sync.RWMutex
	runtime   *kyron.Runtime
	where     func(i int, child Action) kyron.Where
	closeOnce sync.Once
	closeErr  error
}

// NewConcurrency creates a Concurrency action over the given children.
func NewConcurrency(name Name, children ...Action) *Concurrency {
	width := len(children)
	if width == 0 {
		width = 1
	}
	return &Concurrency{
		name:     name,
		children: children,
		futures:  kyron.NewReusableFuturePool(name, width),
	}
}

// Deploy binds this Concurrency to runtime, routing child i's future
// through where(i, child) via Runtime.Spawn instead of a bare goroutine
// (spec.md §4.5, invariant 2: "a task spawned on a dedicated worker is
// resumed only on that same worker"). Deploy may be called again to
// redeploy the same tree elsewhere.
func (c *Concurrency) Deploy(runtime *kyron.Runtime, where func(i int, child Action) kyron.Where) *Concurrency {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runtime = runtime
	c.where = where
	return c
}

// Add appends a child to the concurrent execution list.
func (c *Concurrency) Add(child Action) *Concurrency {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.children = append(c.children, child)
	return c
}

// Remove removes the child at the specified index.
func (c *Concurrency) Remove(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.children) {
		return ErrIndexOutOfBounds
	}
	c.children = append(c.children[:index], c.children[index+1:]...)
	return nil
}

// Len returns the number of children.
func (c *Concurrency) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.children)
}

// Name returns the action's name.
func (c *Concurrency) Name() Name { return c.name }

// Shape reports that every child may be in flight simultaneously.
func (c *Concurrency) Shape() ResourceShape {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return ResourceShape{MaxConcurrentChildren: len(c.children), BufferSlots: len(c.children)}
}

// Execute runs every child concurrently under a context derived from ctx.
// The first child to fail cancels that derived context, which every other
// child observes as a cancellation (spec.md §5: "cancellation propagates
// to every in-flight child"); the original failure — not the resulting
// cancellations — is what Execute returns.
func (c *Concurrency) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, c.name)

	start := time.Now()

	// Held for the whole fan-out: Add/Remove are design-time-adjacent
	// mutators, not steady-state operations, so serializing them against
	// a run is the tradeoff for reading c.children directly below
	// instead of copying it on every Execute call.
	c.mu.RLock()
	defer c.mu.RUnlock()

	children := c.children
	runtime := c.runtime
	where := c.where

	if len(children) == 0 {
		return nil
	}

	childCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var firstErrOnce sync.Once
	var firstErr error

	wg.Add(len(children))
	for i, child := range children {
		slot := c.futures.Borrow(i)
		task := func() {
			defer wg.Done()
			childErr := child.Execute(childCtx)
			if childErr != nil {
				first := false
				firstErrOnce.Do(func() {
					first = true
					firstErr = childErr
					capitan.Warn(ctx, SignalConcurrencyCancelled,
						FieldName.Field(c.name),
						FieldError.Field(childErr.Error()),
					)
					cancel()
				})
				if !first {
					// Errors after the first are logged and discarded.
					capitan.Warn(ctx, SignalConcurrencyCancelled,
						FieldName.Field(c.name),
						FieldError.Field(childErr.Error()),
					)
				}
			}
			slot.Signal(childErr)
		}
		if runtime != nil {
			w := kyron.Current()
			if where != nil {
				w = where(i, child)
			}
			if spawnErr := runtime.Spawn(task, w); spawnErr != nil {
				wg.Done()
				slot.Signal(spawnErr)
				firstErrOnce.Do(func() {
					firstErr = spawnErr
					cancel()
				})
				continue
			}
		} else {
			go task()
		}
	}
	wg.Wait()

	capitan.Info(ctx, SignalConcurrencyCompleted,
		FieldName.Field(c.name),
		FieldChildCount.Field(len(children)),
		FieldDuration.Field(time.Since(start).Seconds()),
	)

	if firstErr != nil {
		if errors.Is(firstErr, context.Canceled) && ctx.Err() != nil {
			return prependPath(c.name, ctx.Err())
		}
		return prependPath(c.name, firstErr)
	}
	return nil
}

// Describe implements Describable.
func (c *Concurrency) Describe() Node {
	c.mu.RLock()
	children := make([]Action, len(c.children))
	copy(children, c.children)
	c.mu.RUnlock()

	descs := make([]Node, len(children))
	for i, child := range children {
		descs[i] = describeChild(child)
	}
	return Node{Name: c.name, Type: "concurrency", Flow: ConcurrencyFlow{Children: descs}}
}

// Close shuts down all children. Idempotent.
func (c *Concurrency) Close() error {
	c.closeOnce.Do(func() {
		c.mu.RLock()
		defer c.mu.RUnlock()

		var errs []error
		for _, child := range c.children {
			if err := child.Close(); err != nil {
				errs = append(errs, err)
			}
		}
		c.closeErr = errors.Join(errs...)
	})
	return c.closeErr
}
