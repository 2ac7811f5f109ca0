package orchestration

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/zoobzio/capitan"
)

// Sequence runs a list of child actions in order, stopping at the first
// error (spec.md §4.7: "runs children in order; aborts on the first
// error"). It maintains an ordered, mutable list of children, mirroring
// pipz's Sequence[T] API generalized to the untyped Action contract.
type Sequence struct {
	name      Name
	children  []Action
	mu        sync.RWMutex
	closeOnce sync.Once
	closeErr  error
}

// NewSequence creates a Sequence with the given name and optional initial
// children. Additional children can be appended later with Register.
func NewSequence(name Name, children ...Action) *Sequence {
	return &Sequence{
		name:     name,
		children: slices.Clone(children),
	}
}

// Register appends children to the end of the sequence. Thread-safe.
func (s *Sequence) Register(children ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, children...)
}

// Name returns the sequence's name.
func (s *Sequence) Name() Name { return s.name }

// Shape reports the sequence's resource footprint: a sequence never runs
// more than one child at a time, so it needs exactly one concurrent slot.
func (s *Sequence) Shape() ResourceShape {
	return ResourceShape{MaxConcurrentChildren: 1, BufferSlots: 1}
}

// Execute runs each child in order. The context is checked before each
// child; if it is done, execution stops and the cancellation is reported
// as a KernelError. If a child returns an error, execution stops and the
// error's path is extended with this sequence's name.
func (s *Sequence) Execute(ctx context.Context) (err error) {
	defer recoverFromPanic(&err, s.name)

	start := time.Now()

	s.mu.RLock()
	children := make([]Action, len(s.children))
	copy(children, s.children)
	s.mu.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}

	for _, child := range children {
		select {
		case <-ctx.Done():
			return &KernelError{
				Err:       ctx.Err(),
				Path:      []Name{s.name},
				Timeout:   errors.Is(ctx.Err(), context.DeadlineExceeded),
				Canceled:  errors.Is(ctx.Err(), context.Canceled),
				Timestamp: time.Now(),
				Duration:  time.Since(start),
			}
		default:
			if err := child.Execute(ctx); err != nil {
				return prependPath(s.name, err)
			}
		}
	}

	capitan.Info(ctx, SignalSequenceCompleted,
		FieldName.Field(s.name),
		FieldProcessorCount.Field(len(children)),
		FieldDuration.Field(time.Since(start).Seconds()),
	)

	return nil
}

// Len returns the number of children in the sequence.
func (s *Sequence) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.children)
}

// Clear removes all children from the sequence.
func (s *Sequence) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = s.children[:0]
}

// Unshift adds children to the front of the sequence (runs first).
func (s *Sequence) Unshift(children ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = slices.Insert(s.children, 0, children...)
}

// Push adds children to the back of the sequence (runs last).
func (s *Sequence) Push(children ...Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.children = append(s.children, children...)
}

// Shift removes and returns the first child.
func (s *Sequence) Shift() (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.children) == 0 {
		return nil, ErrEmptySequence
	}
	child := s.children[0]
	s.children = s.children[1:]
	return child, nil
}

// Pop removes and returns the last child.
func (s *Sequence) Pop() (Action, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.children) == 0 {
		return nil, ErrEmptySequence
	}
	last := len(s.children) - 1
	child := s.children[last]
	s.children = s.children[:last]
	return child, nil
}

// Names returns the names of all children in order.
func (s *Sequence) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.children))
	for i, child := range s.children {
		names[i] = child.Name()
	}
	return names
}

// Remove removes the first child with the given name.
func (s *Sequence) Remove(name Name) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, child := range s.children {
		if child.Name() == name {
			s.children = slices.Delete(s.children, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("action %q not found", name)
}

// Replace replaces the first child with the given name.
func (s *Sequence) Replace(name Name, child Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c.Name() == name {
			s.children[i] = child
			return nil
		}
	}
	return fmt.Errorf("action %q not found", name)
}

// After inserts children immediately after the first child with the given
// name.
func (s *Sequence) After(after Name, children ...Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c.Name() == after {
			s.children = slices.Insert(s.children, i+1, children...)
			return nil
		}
	}
	return fmt.Errorf("action %q not found", after)
}

// Before inserts children immediately before the first child with the
// given name.
func (s *Sequence) Before(before Name, children ...Action) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c.Name() == before {
			s.children = slices.Insert(s.children, i, children...)
			return nil
		}
	}
	return fmt.Errorf("action %q not found", before)
}

// Describe implements Describable.
func (s *Sequence) Describe() Node {
	s.mu.RLock()
	children := make([]Action, len(s.children))
	copy(children, s.children)
	s.mu.RUnlock()

	steps := make([]Node, len(children))
	for i, c := range children {
		steps[i] = describeChild(c)
	}
	return Node{Name: s.name, Type: "sequence", Flow: SequenceFlow{Steps: steps}}
}

// Close shuts down the sequence and all its children, in reverse order
// (LIFO), mirroring typical resource cleanup. Idempotent.
func (s *Sequence) Close() error {
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
