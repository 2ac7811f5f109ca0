package kyron

import "github.com/zoobzio/capitan"

// Signal constants for kyron runtime events.
// Signals follow the pattern: <component>.<event>.
const (
	// Pool signals.
	SignalPoolExhausted capitan.Signal = "pool.exhausted"

	// Worker signals.
	SignalWorkerParked    capitan.Signal = "worker.parked"
	SignalWorkerWoken     capitan.Signal = "worker.woken"
	SignalWorkerStopping  capitan.Signal = "worker.stopping"
	SignalWorkerTerminate capitan.Signal = "worker.terminated"
	SignalWorkerRejected  capitan.Signal = "worker.enqueue-rejected"

	// Scheduler signals.
	SignalSchedulerStealAttempt capitan.Signal = "scheduler.steal-attempt"
	SignalSchedulerStealSuccess capitan.Signal = "scheduler.steal-success"
	SignalSchedulerOverflowPoll capitan.Signal = "scheduler.overflow-poll"

	// Engine signals.
	SignalEngineBuilt capitan.Signal = "engine.built"

	// Runtime signals.
	SignalRuntimeSpawn        capitan.Signal = "runtime.spawn"
	SignalRuntimeShutdownBeg  capitan.Signal = "runtime.shutdown-begin"
	SignalRuntimeShutdownDone capitan.Signal = "runtime.shutdown-complete"
	SignalRuntimeForceKilled  capitan.Signal = "runtime.force-terminated"
)

// Common field keys using capitan primitive types, shared across the
// kyron runtime's signals.
var (
	FieldName          = capitan.NewStringKey("name")
	FieldError         = capitan.NewStringKey("error")
	FieldTimestamp     = capitan.NewFloat64Key("timestamp")
	FieldWorkerCount   = capitan.NewIntKey("worker_count")
	FieldActiveWorkers = capitan.NewIntKey("active_workers")
	FieldWorkerID      = capitan.NewStringKey("worker_id")
	FieldEngineID      = capitan.NewStringKey("engine_id")
	FieldQueueDepth    = capitan.NewIntKey("queue_depth")
	FieldDuration      = capitan.NewFloat64Key("duration")
)
