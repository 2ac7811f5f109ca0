package kyron

import (
	"context"
	"runtime"
	"sync"

	"github.com/zoobzio/capitan"
	"github.com/zoobzio/metricz"
	"go.uber.org/atomic"
)

// Kind distinguishes an async work-stealing worker from a pinned dedicated
// worker (spec.md §3, Worker data model).
type Kind int

const (
	// Async workers participate in the Scheduler's work-stealing pool.
	Async Kind = iota
	// Dedicated workers only run tasks explicitly bound to them; no
	// stealing occurs into or out of a dedicated worker's queue.
	Dedicated
)

// WorkerState is the lifecycle every Worker moves through.
type WorkerState int32

const (
	Idle WorkerState = iota
	Running
	Parked
	Stopping
	Terminated
)

// WorkerSpec configures a single worker at Engine build time.
type WorkerSpec struct {
	ID       string
	Kind     Kind
	Priority int  // OS thread priority; -20..19 nice-style range, validated by EngineBuilder.
	Affinity []uint32 // CPU ids to pin to; empty means unconstrained.
	// QueueSize is the worker's overflow/pinned queue capacity.
	QueueSize int
}

// Worker is a single thread hosting a ready queue. Async workers expose
// their overflow queue to the Scheduler for stealing; dedicated workers
// reject any enqueue not explicitly bound to them.
type Worker struct {
	id       string
	kind     Kind
	priority int
	affinity []uint32

	state atomic.Int32

	mu       sync.Mutex
	local    []func() // LIFO local deque, accessed only by the owning goroutine
	overflow []func() // FIFO overflow, stealable by peers (async only)
	notify   chan struct{}

	rerunRequested atomic.Bool

	metrics *metricz.Registry
	wg      sync.WaitGroup
}

// NewWorker constructs a Worker in the Idle state. It does not start its
// run loop; call Run for that.
func NewWorker(spec WorkerSpec) *Worker {
	qsize := spec.QueueSize
	if qsize <= 0 {
		qsize = 64
	}
	w := &Worker{
		id:       spec.ID,
		kind:     spec.Kind,
		priority: spec.Priority,
		affinity: spec.Affinity,
		notify:   make(chan struct{}, 1),
		overflow: make([]func(), 0, qsize),
		metrics:  metricz.New(),
	}
	w.state.Store(int32(Idle))
	return w
}

// ID returns the worker's identifier (also its engine-scoped name).
func (w *Worker) ID() string { return w.id }

// Kind reports whether this is an async or dedicated worker.
func (w *Worker) Kind() Kind { return w.kind }

// State reports the current lifecycle state.
func (w *Worker) State() WorkerState { return WorkerState(w.state.Load()) }

// bindOSThread locks the calling goroutine to its OS thread and applies the
// worker's CPU affinity. The worker's priority is not applied to the
// thread. Its callers (Engine.Start, Scheduler.Run) discard the returned
// error, so a failure here is not reported anywhere; EngineBuilder.Build
// validates affinity and priority values up front.
func (w *Worker) bindOSThread() error {
	runtime.LockOSThread()
	return applyAffinity(w.affinity)
}

// Enqueue places a task on the worker's queue. Dedicated workers reject any
// task enqueued with bound=false; Engine.spawnDedicated passes bound=true
// for tasks routed to a dedicated worker by id.
func (w *Worker) Enqueue(task func(), bound bool) error {
	if w.State() >= Stopping {
		return ErrEnqueueRejected
	}
	if w.kind == Dedicated && !bound {
		capitan.Warn(context.Background(), SignalWorkerRejected,
			FieldWorkerID.Field(w.id),
		)
		return ErrEnqueueRejected
	}
	w.mu.Lock()
	w.overflow = append(w.overflow, task)
	w.mu.Unlock()
	w.metrics.Gauge("queue_depth").Set(float64(w.queueDepth()))
	w.wake()
	return nil
}

// pushLocal pushes to the LIFO local deque; only the owning worker goroutine
// calls this (e.g. a task spawning a child on itself).
func (w *Worker) pushLocal(task func()) {
	w.mu.Lock()
	w.local = append(w.local, task)
	w.mu.Unlock()
	w.wake()
}

// popLocal pops the most recently pushed local task (LIFO).
func (w *Worker) popLocal() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.local)
	if n == 0 {
		return nil, false
	}
	t := w.local[n-1]
	w.local = w.local[:n-1]
	return t, true
}

// popOverflow pops the oldest overflow task (FIFO).
func (w *Worker) popOverflow() (func(), bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.overflow) == 0 {
		return nil, false
	}
	t := w.overflow[0]
	w.overflow = w.overflow[1:]
	return t, true
}

// stealHalf removes and returns up to half of the overflow queue, leaving
// the local deque untouched — Scheduler invariant: "never from local deque
// head" (spec.md §4.3).
func (w *Worker) stealHalf() []func() {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := len(w.overflow)
	if n == 0 {
		return nil
	}
	take := (n + 1) / 2
	stolen := make([]func(), take)
	copy(stolen, w.overflow[:take])
	w.overflow = w.overflow[take:]
	return stolen
}

func (w *Worker) queueDepth() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.local) + len(w.overflow)
}

func (w *Worker) wake() {
	if w.State() == Running {
		// Wake while running marks rerun-requested, examined at suspension
		// (spec.md §4.3 wake discipline).
		w.rerunRequested.Store(true)
		return
	}
	select {
	case w.notify <- struct{}{}:
	default:
	}
}

// Park transitions the worker to Parked and blocks until woken or the
// context is cancelled.
func (w *Worker) Park(ctx context.Context) {
	if !w.state.CAS(int32(Running), int32(Parked)) && !w.state.CAS(int32(Idle), int32(Parked)) {
		return // Stopping: leave it for the run loop to observe
	}
	if w.rerunRequested.Swap(false) {
		// A wake arrived while the worker still read as Running, after the
		// run loop's last queue check; resume instead of blocking.
		w.state.CAS(int32(Parked), int32(Running))
		return
	}
	capitan.Info(ctx, SignalWorkerParked, FieldWorkerID.Field(w.id))
	select {
	case <-w.notify:
		capitan.Info(ctx, SignalWorkerWoken, FieldWorkerID.Field(w.id))
	case <-ctx.Done():
	}
	w.state.CAS(int32(Parked), int32(Running))
}

// Shutdown transitions through Stopping to Terminated once the run loop
// observes it.
func (w *Worker) Shutdown() {
	w.state.Store(int32(Stopping))
	w.wake()
}

// Run drives this worker's loop: run local (LIFO) tasks, polling overflow
// every fairnessInterval pops to bound starvation, parking when both queues
// are empty, until shutdown.
func (w *Worker) Run(ctx context.Context, steal func() (func(), bool)) {
	defer func() {
		w.state.Store(int32(Terminated))
		capitan.Info(ctx, SignalWorkerTerminate, FieldWorkerID.Field(w.id))
	}()

	const fairnessInterval = 61
	localPops := 0

	for {
		if w.State() == Stopping {
			return
		}

		if localPops > 0 && localPops%fairnessInterval == 0 {
			if t, ok := w.popOverflow(); ok {
				w.runTask(t)
				localPops++
				continue
			}
		}

		if t, ok := w.popLocal(); ok {
			w.runTask(t)
			localPops++
			continue
		}

		if t, ok := w.popOverflow(); ok {
			w.runTask(t)
			localPops++
			continue
		}

		if w.kind == Async && steal != nil {
			if t, ok := steal(); ok {
				w.runTask(t)
				localPops++
				continue
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
		w.Park(ctx)
		if w.State() == Stopping {
			return
		}
	}
}

func (w *Worker) runTask(t func()) {
	w.state.Store(int32(Running))
	w.rerunRequested.Store(false)
	t()
	if w.rerunRequested.Load() {
		// A wake during the task left its work on a queue, which the run
		// loop pops before it would park; the task itself is not re-queued.
		// Clearing the flag keeps Park from treating that wake as pending.
		w.rerunRequested.Store(false)
	}
}
