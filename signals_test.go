package orchestration

import "testing"

// TestSignalsInitialized verifies all signals are properly initialized.
// This file tests declaration-only code in signals.go.
func TestSignalsInitialized(t *testing.T) {
	signals := []struct {
		name   string
		signal any
	}{
		{"SequenceCompleted", SignalSequenceCompleted},
		{"SequenceFailed", SignalSequenceFailed},
		{"ConcurrencyCompleted", SignalConcurrencyCompleted},
		{"ConcurrencyCancelled", SignalConcurrencyCancelled},
		{"SelectWon", SignalSelectWon},
		{"SelectCancelled", SignalSelectCancelled},
		{"IfElseBranchTaken", SignalIfElseBranchTaken},
		{"SwitchDispatched", SignalSwitchDispatched},
		{"SwitchMiss", SignalSwitchMiss},
		{"InvokeStarted", SignalInvokeStarted},
		{"InvokeFinished", SignalInvokeFinished},
		{"InvokePanicked", SignalInvokePanicked},
		{"TriggerNotified", SignalTriggerNotified},
		{"SyncWaiting", SignalSyncWaiting},
		{"SyncObserved", SignalSyncObserved},
		{"CatchRecovered", SignalCatchRecovered},
		{"CatchUnrecovered", SignalCatchUnrecovered},
		{"CatchHandlerErr", SignalCatchHandlerErr},
		{"LocalGraphCompleted", SignalLocalGraphCompleted},
		{"LocalGraphLayerDone", SignalLocalGraphLayerDone},
		{"GuardOpened", SignalGuardOpened},
		{"GuardHalfOpen", SignalGuardHalfOpen},
		{"GuardClosed", SignalGuardClosed},
	}

	for _, s := range signals {
		if s.signal == nil {
			t.Errorf("Signal %s is nil", s.name)
		}
	}
}

// TestFieldKeysInitialized verifies all field keys are properly initialized.
func TestFieldKeysInitialized(t *testing.T) {
	fields := []struct {
		name string
		key  any
	}{
		{"Name", FieldName},
		{"Error", FieldError},
		{"Timestamp", FieldTimestamp},
		{"Duration", FieldDuration},
		{"ProcessorCount", FieldProcessorCount},
		{"ChildCount", FieldChildCount},
		{"WinnerIndex", FieldWinnerIndex},
		{"Branch", FieldBranch},
		{"Case", FieldCase},
		{"Discriminator", FieldDiscriminator},
		{"EventName", FieldEventName},
		{"State", FieldState},
		{"Failures", FieldFailures},
		{"Successes", FieldSuccesses},
		{"FailureThreshold", FieldFailureThreshold},
		{"SuccessThreshold", FieldSuccessThreshold},
		{"ResetTimeout", FieldResetTimeout},
		{"Generation", FieldGeneration},
	}

	for _, f := range fields {
		if f.key == nil {
			t.Errorf("Field key %s is nil", f.name)
		}
	}
}
