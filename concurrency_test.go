package orchestration

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestConcurrencyRunsAllChildren(t *testing.T) {
	var ran atomic.Int32
	conc := NewConcurrency("test",
		InvokeAction("a", func(context.Context) error { ran.Add(1); return nil }),
		InvokeAction("b", func(context.Context) error { ran.Add(1); return nil }),
		InvokeAction("c", func(context.Context) error { ran.Add(1); return nil }),
	)
	if err := conc.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ran.Load() != 3 {
		t.Errorf("expected all 3 children to run, got %d", ran.Load())
	}
}

func TestConcurrencyEmptySucceeds(t *testing.T) {
	conc := NewConcurrency("test")
	if err := conc.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConcurrencyCancelsSiblingsOnFirstError(t *testing.T) {
	var siblingCanceled atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	conc := NewConcurrency("test",
		InvokeAction("fails-fast", func(context.Context) error {
			return errors.New("boom")
		}),
		InvokeAction("slow-sibling", func(ctx context.Context) error {
			defer wg.Done()
			select {
			case <-ctx.Done():
				siblingCanceled.Store(true)
				return ctx.Err()
			case <-time.After(2 * time.Second):
				return nil
			}
		}),
	)

	err := conc.Execute(context.Background())
	wg.Wait()

	if err == nil {
		t.Fatal("expected error propagated")
	}
	if !siblingCanceled.Load() {
		t.Error("expected slow sibling to observe cancellation")
	}
}

func TestConcurrencyAddRemove(t *testing.T) {
	conc := NewConcurrency("test", InvokeAction("a", func(context.Context) error { return nil }))
	conc.Add(InvokeAction("b", func(context.Context) error { return nil }))
	if conc.Len() != 2 {
		t.Errorf("expected 2 children, got %d", conc.Len())
	}
	if err := conc.Remove(0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conc.Len() != 1 {
		t.Errorf("expected 1 child after remove, got %d", conc.Len())
	}
	if err := conc.Remove(5); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", err)
	}
}

func TestConcurrencyClose(t *testing.T) {
	a := newTrackingAction("a")
	b := newTrackingAction("b")
	conc := NewConcurrency("test", a, b)
	if err := conc.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.closeCalls != 1 || b.closeCalls != 1 {
		t.Error("expected both children closed")
	}
	if err := conc.Close(); err != nil {
		t.Fatalf("close should be idempotent: %v", err)
	}
}
