// Package kyron is the cooperative, multi-engine async runtime underlying
// the orchestration core. It owns preallocated task/future slots, workers
// (async work-stealing and pinned dedicated), engines, and the runtime that
// composes them.
package kyron

import "errors"

// Sentinel errors reported by engine bring-up, worker enqueue, and pool
// exhaustion. All are wrapped into the Build/Runtime taxonomy the
// orchestration layer exposes; kyron itself stays taxonomy-free so it can be
// used standalone.
var (
	// ErrExhausted is returned by Pool.Acquire when no slot is free.
	ErrExhausted = errors.New("kyron: task slot pool exhausted")

	// ErrInvalidAffinity is returned by EngineBuilder.Build for a malformed
	// CPU affinity mask.
	ErrInvalidAffinity = errors.New("kyron: invalid worker affinity")

	// ErrInvalidPriority is returned by EngineBuilder.Build when priority is
	// out of the accepted range.
	ErrInvalidPriority = errors.New("kyron: invalid worker priority")

	// ErrZeroCapacity is returned by EngineBuilder.Build when a worker's
	// task queue size is zero.
	ErrZeroCapacity = errors.New("kyron: zero task queue capacity")

	// ErrEnqueueRejected is returned when a task is enqueued on a dedicated
	// worker it was not bound to, or after the worker began stopping.
	ErrEnqueueRejected = errors.New("kyron: enqueue rejected")

	// ErrNoSuchEngine is returned by Runtime.Spawn for an unknown engine id.
	ErrNoSuchEngine = errors.New("kyron: no such engine")

	// ErrNoSuchWorker is returned by Runtime.Spawn for an unknown worker id.
	ErrNoSuchWorker = errors.New("kyron: no such worker")

	// ErrShuttingDown is returned by Runtime.Spawn once shutdown has begun.
	ErrShuttingDown = errors.New("kyron: runtime is shutting down")
)
