package kyron

import (
	"context"
	"sync"

	"github.com/zoobzio/capitan"
	"go.uber.org/atomic"
)

// slotState is the lifecycle of a single TaskSlot.
type slotState int32

const (
	slotIdle slotState = iota
	slotReady
	slotRunning
	slotCompleted
)

// TaskSlot is a preallocated cell holding an erased task, its state, and a
// waker. Slots never move once the Pool is built — Task & Future Pool
// invariant 1 (no heap allocation on steady-state paths) depends on this.
type TaskSlot struct {
	state atomic.Int32
	task  func()
	waker func()
	next  int32 // free-list link, -1 terminates
}

func (s *TaskSlot) reset() {
	s.state.Store(int32(slotIdle))
	s.task = nil
	s.waker = nil
}

// Pool is a fixed-capacity array of TaskSlots with a lock-free free-list.
// Acquire/Release never allocate after Build — the free-list is a singly
// linked list threaded through the preallocated slot array itself.
type Pool struct {
	slots []TaskSlot
	free  atomic.Int32 // head of free-list, -1 means exhausted
	name  string
}

// NewPool preallocates capacity TaskSlots. capacity must be derived
// statically from the action tree's shape at build time (spec.md §4.1);
// there is no resize operation.
func NewPool(name string, capacity int) *Pool {
	if capacity <= 0 {
		capacity = 1
	}
	p := &Pool{
		slots: make([]TaskSlot, capacity),
		name:  name,
	}
	for i := range p.slots {
		p.slots[i].next = int32(i + 1)
	}
	p.slots[len(p.slots)-1].next = -1
	p.free.Store(0)
	return p
}

// Cap reports the pool's fixed capacity.
func (p *Pool) Cap() int { return len(p.slots) }

// Acquire pops a free slot off the free-list, or returns ErrExhausted.
func (p *Pool) Acquire() (*TaskSlot, error) {
	for {
		head := p.free.Load()
		if head < 0 {
			emitPoolSaturated(p.name, len(p.slots))
			return nil, ErrExhausted
		}
		next := p.slots[head].next
		if p.free.CAS(head, next) {
			slot := &p.slots[head]
			slot.state.Store(int32(slotIdle))
			return slot, nil
		}
	}
}

// Release returns a slot to the free-list after its task completes.
func (p *Pool) Release(slot *TaskSlot) {
	idx := p.indexOf(slot)
	slot.reset()
	for {
		head := p.free.Load()
		slot.next = head
		if p.free.CAS(head, idx) {
			return
		}
	}
}

func (p *Pool) indexOf(slot *TaskSlot) int32 {
	return int32(slot - &p.slots[0])
}

// futureSlot is one reusable entry in a ReusableFuturePool: unlike a bare
// TaskSlot it carries the child action's result so variable-fanout actions
// (Concurrency, Select, LocalGraph) can read it back after completion.
type futureSlot struct {
	err  error
	done chan struct{}
	used atomic.Bool
}

// ReusableFuturePool is a per-action pool of future slots, sized to the
// action's maximum fan-out, reused across program iterations without
// allocation (spec.md §4.1, GLOSSARY "ReusableFuturePool").
type ReusableFuturePool struct {
	mu    sync.Mutex
	slots []*futureSlot
	name  string
}

// NewReusableFuturePool preallocates width slots, width being the action's
// static max concurrent child count.
func NewReusableFuturePool(name string, width int) *ReusableFuturePool {
	if width <= 0 {
		width = 1
	}
	rp := &ReusableFuturePool{name: name, slots: make([]*futureSlot, width)}
	for i := range rp.slots {
		rp.slots[i] = &futureSlot{done: make(chan struct{}, 1)}
	}
	return rp
}

// Width is the preallocated fan-out capacity.
func (rp *ReusableFuturePool) Width() int { return len(rp.slots) }

// Borrow claims slot i for this iteration's child i. Borrow never grows the
// pool: an index at or beyond Width wraps around (i mod Width) and shares
// that slot with a lower index.
func (rp *ReusableFuturePool) Borrow(i int) *futureSlot {
	s := rp.slots[i%len(rp.slots)]
	s.used.Store(true)
	return s
}

// Signal marks slot completion with an optional error and wakes a single
// waiter (non-blocking, matching Event Bus's edge-triggered notify).
func (s *futureSlot) Signal(err error) {
	s.err = err
	select {
	case s.done <- struct{}{}:
	default:
	}
}

// Wait blocks until Signal fires for this iteration, returning the recorded
// error.
func (s *futureSlot) Wait() error {
	<-s.done
	return s.err
}

// emitPoolSaturated logs a RuntimeError-adjacent signal each time Acquire
// finds a Pool fully exhausted, mirroring WorkerPool's saturation signal.
func emitPoolSaturated(name string, capacity int) {
	capitan.Warn(context.Background(), SignalPoolExhausted,
		FieldName.Field(name),
		FieldWorkerCount.Field(capacity),
	)
}
