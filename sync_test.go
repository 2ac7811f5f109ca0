package orchestration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/qorix-group/inc-orchestrator/eventbus"
)

func TestSyncObservesTrigger(t *testing.T) {
	bus := eventbus.NewBus()
	if _, err := bus.RegisterLocal("ready"); err != nil {
		t.Fatalf("unexpected error registering event: %v", err)
	}

	s := NewSync("wait-ready", bus, "ready")
	trig := NewTrigger("fire-ready", bus, "ready")

	done := make(chan error, 1)
	go func() { done <- s.Execute(context.Background()) }()

	// Give the Sync goroutine a chance to register its Listener before
	// firing, since the pending bit must exist to be marked.
	time.Sleep(10 * time.Millisecond)
	if err := trig.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error triggering: %v", err)
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for sync to observe trigger")
	}
}

func TestSyncCancellationPreservesPending(t *testing.T) {
	bus := eventbus.NewBus()
	if _, err := bus.RegisterLocal("ready"); err != nil {
		t.Fatalf("unexpected error registering event: %v", err)
	}
	s := NewSync("wait-ready", bus, "ready")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Execute(ctx)
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	var kerr *KernelError
	if !errors.As(err, &kerr) || !kerr.Canceled {
		t.Errorf("expected a canceled KernelError, got %v", err)
	}

	// A notification that lands while nobody waits survives a second
	// cancelled Execute and is observed by the next live one.
	if err := bus.Notify(context.Background(), "ready"); err != nil {
		t.Fatalf("unexpected error notifying: %v", err)
	}
	if err := s.Execute(ctx); err == nil {
		t.Fatal("expected cancellation error from the second cancelled Execute")
	}
	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	if err := s.Execute(waitCtx); err != nil {
		t.Fatalf("expected the pending notification to survive cancellation, got %v", err)
	}
}

func TestSyncUnknownEventFails(t *testing.T) {
	bus := eventbus.NewBus()
	s := NewSync("wait-missing", bus, "missing")
	if err := s.Execute(context.Background()); err == nil {
		t.Fatal("expected error for unregistered event")
	}
}

func TestSyncShapeAndClose(t *testing.T) {
	bus := eventbus.NewBus()
	bus.RegisterLocal("ready") //nolint:errcheck
	s := NewSync("wait-ready", bus, "ready")

	shape := s.Shape()
	if shape.MaxConcurrentChildren != 0 || shape.BufferSlots != 0 {
		t.Errorf("unexpected shape: %+v", shape)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
}
