package orchestration

import (
	"errors"
	"sync"
	"time"

	"context"

	"github.com/zoobzio/capitan"

	"github.com/qorix-group/inc-orchestrator/kyron"
)

// Select runs all of its children in parallel and returns once the first
// one succeeds, cancelling the rest (spec.md §4.7: "Select ... first Ok
// wins; losers are cancelled"). If every child fails, Select returns the
// last error observed. Grounded on pipz's Race[T], generalized to the
// untyped Action contract (no Cloner[T] input to copy per competitor).
//
// Execute waits for every launched child to observe cancellation before
// returning, rather than returning the instant the winner is known: that
// keeps each child's ReusableFuturePool slot free of a previous run's
// result before the next Execute call reuses it, the same no-allocation
// guarantee Concurrency gives its children.
type Select struct {
	name     Name
	children []Action
	futures  *kyron.ReusableFuturePool

	mu        sync.RWMutex
	runtime   *kyron.Runtime
	where     func(i int, child Action) kyron.Where
	closeOnce sync.Once
	closeErr  error
}

// NewSelect creates a Select action over the given children.
func NewSelect(name Name, children ...Action) *Select {
	width := len(children)
	if width == 0 {
		width = 1
	}
	return &Select{
		name:     name,
		children: children,
		futures:  kyron.NewReusableFuturePool(name, width),
	}
}

// Deploy binds this Select to runtime, routing child i's future through
// where(i, child) via Runtime.Spawn instead of a bare goroutine (spec.md
// §4.5). Deploy may be called again to redeploy the same tree elsewhere.
func (s *Select) Deploy(runtime *kyron.Runtime, where func(i int, child Action) kyron.Where) *Select {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runtime = runtime
	s.where = where
	return s
}

// Add appends a child to the selection list.
func (s *Select) Add(child Action) *Select {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, child)
	s.futures = kyron.NewReusableFuturePool(s.name, max(len(s.children), 1))
	return s
}

// Remove removes the child at the specified index.
func (s *Select) Remove(index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index >= len(s.children) {
		return ErrIndexOutOfBounds
	}
	s.children = append(s.children[:index], s.children[index+1:]...)
	s.futures = kyron.NewReusableFuturePool(s.name, max(len(s.children), 1))
	return nil
}

// Len returns the number of children.
func (s *Select) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

// Name returns the action's name.
func (s *Select) Name() Name { return s.name }

// Shape reports that every child may be in flight simultaneously until one
// wins.
func (s *Select) Shape() ResourceShape {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ResourceShape{MaxConcurrentChildren: len(s.children), BufferSlots: len(s.children)}
}

// Execute runs every child concurrently and returns nil once the first
// one completes without error, cancelling the remaining children's
// context and waiting for them to observe it. If every child fails, the
// last observed error is returned.
func (s *Select) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, s.name)

	start := time.Now()

	// Held for the whole fan-out, mirroring Concurrency: Add/Remove are
	// design-time-adjacent, so serializing them against a run lets
	// Execute read s.children directly instead of copying it every call.
	s.mu.RLock()
	defer s.mu.RUnlock()

	children := s.children
	runtime := s.runtime
	where := s.where

	if len(children) == 0 {
		return prependPath(s.name, errors.New("no children provided to Select"))
	}

	selectCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var winOnce sync.Once
	var mu kyron.OrchestrationMutex
	var won bool
	var lastErr error

	wg.Add(len(children))
	for i, child := range children {
		slot := s.futures.Borrow(i)
		task := func() {
			defer wg.Done()
			childErr := child.Execute(selectCtx)
			if childErr == nil {
				winOnce.Do(func() {
					won = true
					cancel()
					capitan.Info(ctx, SignalSelectWon,
						FieldName.Field(s.name),
						FieldDuration.Field(time.Since(start).Seconds()),
					)
				})
			} else {
				mu.Lock()
				if !won {
					lastErr = childErr
				}
				mu.Unlock()
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
				mu.Lock()
				if !won {
					lastErr = spawnErr
				}
				mu.Unlock()
				continue
			}
		} else {
			go task()
		}
	}
	wg.Wait()

	if won {
		return nil
	}

	select {
	case <-ctx.Done():
		return prependPath(s.name, ctx.Err())
	default:
	}

	return prependPath(s.name, lastErr)
}

// Describe implements Describable.
func (s *Select) Describe() Node {
	s.mu.RLock()
	children := s.children
	cands := make([]Node, len(children))
	for i, child := range children {
		cands[i] = describeChild(child)
	}
	s.mu.RUnlock()
	return Node{Name: s.name, Type: "select", Flow: SelectFlow{Candidates: cands}}
}

// Close shuts down all children. Idempotent.
func (s *Select) Close() error {
	s.closeOnce.Do(func() {
		s.mu.RLock()
		defer s.mu.RUnlock()

		var errs []error
		for i := len(s.children) - 1; i >= 0; i-- {
			if err := s.children[i].Close(); err != nil {
				errs = append(errs, err)
			}
		}
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}
