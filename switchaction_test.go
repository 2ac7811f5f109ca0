package orchestration

import (
	"context"
	"errors"
	"testing"
)

func TestSwitchDispatchesToMatchingCase(t *testing.T) {
	var ran string
	sw := NewSwitch("test", DiscriminatorFunc(func(context.Context) uint64 { return 2 }))
	sw.AddCase(1, InvokeAction("one", func(context.Context) error { ran = "one"; return nil }))
	sw.AddCase(2, InvokeAction("two", func(context.Context) error { ran = "two"; return nil }))

	if err := sw.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran != "two" {
		t.Errorf("expected case two to run, got %q", ran)
	}
}

func TestSwitchFallsBackToDefault(t *testing.T) {
	var ran bool
	sw := NewSwitch("test", DiscriminatorFunc(func(context.Context) uint64 { return 99 }))
	sw.AddCase(1, InvokeAction("one", func(context.Context) error { return nil }))
	sw.SetDefault(InvokeAction("default", func(context.Context) error { ran = true; return nil }))

	if err := sw.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ran {
		t.Error("expected default case to run")
	}
}

func TestSwitchMissWithNoDefault(t *testing.T) {
	sw := NewSwitch("test", DiscriminatorFunc(func(context.Context) uint64 { return 42 }))
	sw.AddCase(1, InvokeAction("one", func(context.Context) error { return nil }))

	err := sw.Execute(context.Background())
	if err == nil {
		t.Fatal("expected ErrSwitchMiss")
	}
	var kerr *KernelError
	if !errors.As(err, &kerr) {
		t.Fatal("expected *KernelError")
	}
	if !errors.Is(kerr.Err, ErrSwitchMiss) {
		t.Errorf("expected ErrSwitchMiss, got %v", kerr.Err)
	}
}

func TestSwitchPropagatesCaseError(t *testing.T) {
	sw := NewSwitch("test", DiscriminatorFunc(func(context.Context) uint64 { return 1 }))
	sw.AddCase(1, InvokeAction("fails", func(context.Context) error { return errors.New("boom") }))

	err := sw.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error from case")
	}
	var kerr *KernelError
	if !errors.As(err, &kerr) || len(kerr.Path) != 2 || kerr.Path[0] != "test" || kerr.Path[1] != "fails" {
		t.Errorf("expected path [test fails], got %v", err)
	}
}

func TestSwitchHasCaseAndRemoveCase(t *testing.T) {
	sw := NewSwitch("test", DiscriminatorFunc(func(context.Context) uint64 { return 1 }))
	sw.AddCase(1, InvokeAction("one", func(context.Context) error { return nil }))

	if !sw.HasCase(1) {
		t.Error("expected case 1 to be registered")
	}
	sw.RemoveCase(1)
	if sw.HasCase(1) {
		t.Error("expected case 1 to be removed")
	}
}

func TestSwitchObservability(t *testing.T) {
	sw := NewSwitch("test", DiscriminatorFunc(func(context.Context) uint64 { return 1 }))
	sw.AddCase(1, InvokeAction("one", func(context.Context) error { return nil }))
	if err := sw.OnDispatched(func(_ context.Context, _ SwitchEvent) error {
		return nil
	}); err != nil {
		t.Fatalf("unexpected error registering hook: %v", err)
	}

	if err := sw.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sw.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
}
