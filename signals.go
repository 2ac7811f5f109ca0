package orchestration

import "github.com/zoobzio/capitan"

// Signal constants for Action Kernel events.
// Signals follow the pattern: <action-kind>.<event>.
const (
	SignalSequenceCompleted capitan.Signal = "sequence.completed"
	SignalSequenceFailed    capitan.Signal = "sequence.failed"

	SignalConcurrencyCompleted capitan.Signal = "concurrency.completed"
	SignalConcurrencyCancelled capitan.Signal = "concurrency.cancelled-sibling"

	SignalSelectWon       capitan.Signal = "select.won"
	SignalSelectCancelled capitan.Signal = "select.cancelled-loser"

	SignalIfElseBranchTaken capitan.Signal = "ifelse.branch-taken"

	SignalSwitchDispatched capitan.Signal = "switch.dispatched"
	SignalSwitchMiss       capitan.Signal = "switch.miss"

	SignalInvokeStarted  capitan.Signal = "invoke.started"
	SignalInvokeFinished capitan.Signal = "invoke.finished"
	SignalInvokePanicked capitan.Signal = "invoke.panicked"

	SignalTriggerNotified capitan.Signal = "trigger.notified"

	SignalSyncWaiting  capitan.Signal = "sync.waiting"
	SignalSyncObserved capitan.Signal = "sync.observed"

	SignalCatchRecovered   capitan.Signal = "catch.recovered"
	SignalCatchUnrecovered capitan.Signal = "catch.unrecovered"
	SignalCatchHandlerErr  capitan.Signal = "catch.handler-error"

	SignalLocalGraphCompleted capitan.Signal = "localgraph.completed"
	SignalLocalGraphLayerDone capitan.Signal = "localgraph.layer-done"

	// Guard signals (Guard is a circuit-breaker Action wrapping a single
	// child, not one of the kernel's composition primitives, but its state
	// transitions are worth naming on their own).
	SignalGuardOpened   capitan.Signal = "guard.opened"
	SignalGuardHalfOpen capitan.Signal = "guard.half-open"
	SignalGuardClosed   capitan.Signal = "guard.closed"
)

// Common field keys using capitan primitive types, shared across the
// orchestration core's signals. All keys use primitive types to avoid
// custom struct serialization.
var (
	// Common fields.
	FieldName      = capitan.NewStringKey("name")
	FieldError     = capitan.NewStringKey("error")
	FieldTimestamp = capitan.NewFloat64Key("timestamp")
	FieldDuration  = capitan.NewFloat64Key("duration")

	// Sequence / Concurrency / Select fields.
	FieldProcessorCount = capitan.NewIntKey("processor_count")
	FieldChildCount     = capitan.NewIntKey("child_count")
	FieldWinnerIndex    = capitan.NewIntKey("winner_index")

	// IfElse / Switch fields.
	FieldBranch        = capitan.NewStringKey("branch")
	FieldCase          = capitan.NewStringKey("case")
	FieldDiscriminator = capitan.NewIntKey("discriminator")

	// Trigger / Sync fields.
	FieldEventName = capitan.NewStringKey("event_name")

	// Guard fields.
	FieldState            = capitan.NewStringKey("state")
	FieldFailures         = capitan.NewIntKey("failures")
	FieldSuccesses        = capitan.NewIntKey("successes")
	FieldFailureThreshold = capitan.NewIntKey("failure_threshold")
	FieldSuccessThreshold = capitan.NewIntKey("success_threshold")
	FieldResetTimeout     = capitan.NewFloat64Key("reset_timeout")
	FieldGeneration       = capitan.NewIntKey("generation")
)
