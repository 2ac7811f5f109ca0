package orchestration

import (
	"context"
	"errors"
	"testing"
)

func TestInvokeSuccess(t *testing.T) {
	called := false
	act := InvokeAction("test", func(context.Context) error {
		called = true
		return nil
	})
	if err := act.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("expected invocable to be called")
	}
}

func TestInvokeFailureWrapsUserError(t *testing.T) {
	act := InvokeAction("test", func(context.Context) error {
		return errors.New("boom")
	})
	err := act.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	var kerr *KernelError
	if !errors.As(err, &kerr) {
		t.Fatal("expected *KernelError")
	}
	var uerr *UserError
	if !errors.As(kerr.Err, &uerr) {
		t.Fatal("expected wrapped *UserError")
	}
	if len(kerr.Path) != 1 || kerr.Path[0] != "test" {
		t.Errorf("expected path [test], got %v", kerr.Path)
	}
}

func TestInvokePanicRecovered(t *testing.T) {
	act := InvokeAction("test", func(context.Context) error {
		panic("kaboom")
	})
	err := act.Execute(context.Background())
	if err == nil {
		t.Fatal("expected error from panic recovery")
	}
	var kerr *KernelError
	if !errors.As(err, &kerr) {
		t.Fatal("expected *KernelError")
	}
	if !errors.Is(kerr.Err, ErrInvocableAborted) {
		t.Errorf("expected ErrInvocableAborted, got %v", kerr.Err)
	}
}

func TestInvokePinnedMigratesBeforeCalling(t *testing.T) {
	var migratedOnto string
	act := NewInvoke("test", InvocableFunc(func(context.Context) error {
		return nil
	})).Pinned(func(ctx context.Context, fn func(context.Context) error) error {
		migratedOnto = "worker-1"
		return fn(ctx)
	})

	if err := act.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if migratedOnto != "worker-1" {
		t.Error("expected migrate hook to run before invocable")
	}
}

func TestInvokeShapeIsLeaf(t *testing.T) {
	act := InvokeAction("test", func(context.Context) error { return nil })
	shape := act.Shape()
	if shape.MaxConcurrentChildren != 0 {
		t.Errorf("expected leaf shape, got %+v", shape)
	}
}
