package kyron

import (
	"context"
	"errors"
	"fmt"

	"github.com/zoobzio/capitan"
)

// DedicatedWorkerSpec configures one pinned worker at Engine build time
// (spec.md §4.4).
type DedicatedWorkerSpec struct {
	ID       string
	Priority int
	Affinity []uint32
}

// EngineBuilder constructs a runnable Engine. Builder-configured per
// spec.md §4.4: async worker count, dedicated worker specs, queue sizing,
// and an optional I/O driver.
type EngineBuilder struct {
	id               string
	asyncWorkers     int
	dedicatedWorkers []DedicatedWorkerSpec
	taskQueueSize    int
	ioDriver         bool
	priority         int
	affinity         []uint32
}

// NewEngineBuilder starts a builder for an engine identified by id.
func NewEngineBuilder(id string) *EngineBuilder {
	return &EngineBuilder{id: id, asyncWorkers: 1, taskQueueSize: 64}
}

func (b *EngineBuilder) WithAsyncWorkers(n int) *EngineBuilder {
	b.asyncWorkers = n
	return b
}

func (b *EngineBuilder) WithWorkerParameters(priority int, affinity []uint32) *EngineBuilder {
	b.priority = priority
	b.affinity = affinity
	return b
}

func (b *EngineBuilder) WithDedicatedWorkers(specs ...DedicatedWorkerSpec) *EngineBuilder {
	b.dedicatedWorkers = append(b.dedicatedWorkers, specs...)
	return b
}

func (b *EngineBuilder) WithTaskQueueSize(n int) *EngineBuilder {
	b.taskQueueSize = n
	return b
}

func (b *EngineBuilder) WithIODriver(enabled bool) *EngineBuilder {
	b.ioDriver = enabled
	return b
}

// Build validates configuration and constructs the Engine. All reported
// faults are collected and joined — Engine bring-up is where
// affinity/priority/capacity errors surface, never per-task (spec.md §4.2,
// §4.4).
func (b *EngineBuilder) Build() (*Engine, error) {
	var errs []error

	if b.taskQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("%w: task_queue_size", ErrZeroCapacity))
	}
	if b.priority < -20 || b.priority > 19 {
		errs = append(errs, fmt.Errorf("%w: priority %d", ErrInvalidPriority, b.priority))
	}
	if err := validateAffinity(b.affinity); err != nil {
		errs = append(errs, err)
	}
	for _, d := range b.dedicatedWorkers {
		if d.Priority < -20 || d.Priority > 19 {
			errs = append(errs, fmt.Errorf("%w: dedicated worker %q priority %d", ErrInvalidPriority, d.ID, d.Priority))
		}
		if err := validateAffinity(d.Affinity); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", d.ID, err))
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	async := make([]*Worker, b.asyncWorkers)
	for i := range async {
		async[i] = NewWorker(WorkerSpec{
			ID:        fmt.Sprintf("%s/async-%d", b.id, i),
			Kind:      Async,
			Priority:  b.priority,
			Affinity:  b.affinity,
			QueueSize: b.taskQueueSize,
		})
	}

	dedicated := make(map[string]*Worker, len(b.dedicatedWorkers))
	for _, d := range b.dedicatedWorkers {
		dedicated[d.ID] = NewWorker(WorkerSpec{
			ID:        d.ID,
			Kind:      Dedicated,
			Priority:  d.Priority,
			Affinity:  d.Affinity,
			QueueSize: b.taskQueueSize,
		})
	}

	e := &Engine{
		id:        b.id,
		async:     async,
		dedicated: dedicated,
		scheduler: NewScheduler(async),
		ioDriver:  b.ioDriver,
	}
	capitan.Info(context.Background(), SignalEngineBuilt,
		FieldEngineID.Field(b.id),
		FieldWorkerCount.Field(len(async)+len(dedicated)),
	)
	return e, nil
}

func validateAffinity(cpus []uint32) error {
	seen := make(map[uint32]struct{}, len(cpus))
	for _, c := range cpus {
		if _, dup := seen[c]; dup {
			return fmt.Errorf("%w: duplicate cpu %d", ErrInvalidAffinity, c)
		}
		seen[c] = struct{}{}
	}
	return nil
}

// Engine is a set of workers sharing a scheduling policy. Engines are
// disjoint in thread membership (spec.md §3 invariant 3).
type Engine struct {
	id        string
	async     []*Worker
	dedicated map[string]*Worker
	scheduler *Scheduler
	ioDriver  bool
	cancel    context.CancelFunc
}

// ID returns the engine's identifier.
func (e *Engine) ID() string { return e.id }

// Start launches every worker's run loop in the background. It returns
// immediately; Stop (called by Runtime.Shutdown) signals the workers to
// exit and does not wait for them.
func (e *Engine) Start(ctx context.Context) context.Context {
	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go e.scheduler.Run(ctx)
	for _, w := range e.dedicated {
		go func(w *Worker) {
			_ = w.bindOSThread()
			w.Run(ctx, nil)
		}(w)
	}
	return ctx
}

// Stop signals every worker in this engine to shut down.
func (e *Engine) Stop() {
	for _, w := range e.async {
		w.Shutdown()
	}
	for _, w := range e.dedicated {
		w.Shutdown()
	}
	if e.cancel != nil {
		e.cancel()
	}
}

// spawnAsync routes a task to the least-loaded async worker.
func (e *Engine) spawnAsync(task func()) error {
	return e.scheduler.Dispatch(task)
}

// spawnDedicated routes a task to the named dedicated worker. A task spawned
// here is resumed only on that worker for its entire lifetime (spec.md §3
// invariant 2) because Worker.Enqueue with bound=true is the only path onto
// a dedicated worker's queue.
func (e *Engine) spawnDedicated(workerID string, task func()) error {
	w, ok := e.dedicated[workerID]
	if !ok {
		return ErrNoSuchWorker
	}
	return w.Enqueue(task, true)
}
