package orchestration

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"
)

func TestNewSequence(t *testing.T) {
	seq := NewSequence("test")
	if seq == nil {
		t.Fatal("NewSequence should not return nil")
	}
	if seq.Len() != 0 {
		t.Errorf("new Sequence should be empty, got length %d", seq.Len())
	}
}

func TestSequenceRegister(t *testing.T) {
	t.Run("Register Single Child", func(t *testing.T) {
		seq := NewSequence("test")
		seq.Register(InvokeAction("step", func(context.Context) error { return nil }))
		if seq.Len() != 1 {
			t.Errorf("expected 1 child, got %d", seq.Len())
		}
	})

	t.Run("Register Multiple Children", func(t *testing.T) {
		seq := NewSequence("test")
		seq.Register(
			InvokeAction("a", func(context.Context) error { return nil }),
			InvokeAction("b", func(context.Context) error { return nil }),
			InvokeAction("c", func(context.Context) error { return nil }),
		)
		if seq.Len() != 3 {
			t.Errorf("expected 3 children, got %d", seq.Len())
		}
		names := seq.Names()
		expected := []string{"a", "b", "c"}
		if !reflect.DeepEqual(names, expected) {
			t.Errorf("expected names %v, got %v", expected, names)
		}
	})
}

func TestSequenceExecute(t *testing.T) {
	t.Run("Empty Sequence Succeeds", func(t *testing.T) {
		seq := NewSequence("test")
		if err := seq.Execute(context.Background()); err != nil {
			t.Fatalf("empty sequence should not error: %v", err)
		}
	})

	t.Run("Runs Children In Order", func(t *testing.T) {
		var order []string
		seq := NewSequence("test",
			InvokeAction("a", func(context.Context) error { order = append(order, "a"); return nil }),
			InvokeAction("b", func(context.Context) error { order = append(order, "b"); return nil }),
			InvokeAction("c", func(context.Context) error { order = append(order, "c"); return nil }),
		)
		if err := seq.Execute(context.Background()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(order, []string{"a", "b", "c"}) {
			t.Errorf("expected order [a b c], got %v", order)
		}
	})

	t.Run("Stops At First Error", func(t *testing.T) {
		ran := map[string]bool{}
		seq := NewSequence("test",
			InvokeAction("a", func(context.Context) error { ran["a"] = true; return nil }),
			InvokeAction("b", func(context.Context) error {
				ran["b"] = true
				return errors.New("b failed")
			}),
			InvokeAction("c", func(context.Context) error { ran["c"] = true; return nil }),
		)
		err := seq.Execute(context.Background())
		if err == nil {
			t.Fatal("expected error from b")
		}
		if !ran["a"] || !ran["b"] || ran["c"] {
			t.Errorf("expected a and b to run but not c, got %v", ran)
		}

		var kerr *KernelError
		if !errors.As(err, &kerr) {
			t.Fatal("expected *KernelError")
		}
		expected := []Name{"test", "b"}
		if !reflect.DeepEqual(kerr.Path, expected) {
			t.Errorf("expected path %v, got %v", expected, kerr.Path)
		}
	})

	t.Run("Context Cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		seq := NewSequence("test", InvokeAction("a", func(context.Context) error { return nil }))
		err := seq.Execute(ctx)
		if err == nil {
			t.Fatal("expected context cancellation error")
		}
		var kerr *KernelError
		if !errors.As(err, &kerr) || !kerr.IsCanceled() {
			t.Errorf("expected canceled KernelError, got %v", err)
		}
	})

	t.Run("Context Timeout", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
		defer cancel()

		seq := NewSequence("test", InvokeAction("slow", func(ctx context.Context) error {
			select {
			case <-time.After(100 * time.Millisecond):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}))

		err := seq.Execute(ctx)
		if err == nil {
			t.Fatal("expected timeout error")
		}
		var kerr *KernelError
		if !errors.As(err, &kerr) || !kerr.IsTimeout() {
			t.Errorf("expected timeout KernelError, got %v", err)
		}
	})

	t.Run("Panic Recovered", func(t *testing.T) {
		seq := NewSequence("panic_sequence",
			InvokeAction("step1", func(context.Context) error { return nil }),
			InvokeAction("panic_step", func(context.Context) error { panic("boom") }),
			InvokeAction("step3", func(context.Context) error {
				t.Error("should not reach step3 after panic")
				return nil
			}),
		)
		err := seq.Execute(context.Background())
		if err == nil {
			t.Fatal("expected error from panic recovery")
		}
		var kerr *KernelError
		if !errors.As(err, &kerr) {
			t.Fatal("expected *KernelError from panic recovery")
		}
		expected := []Name{"panic_sequence", "panic_step"}
		if !reflect.DeepEqual(kerr.Path, expected) {
			t.Errorf("expected path %v, got %v", expected, kerr.Path)
		}
	})
}

func TestSequenceModification(t *testing.T) {
	t.Run("Clear", func(t *testing.T) {
		seq := NewSequence("test",
			InvokeAction("a", func(context.Context) error { return nil }),
			InvokeAction("b", func(context.Context) error { return nil }),
		)
		seq.Clear()
		if seq.Len() != 0 {
			t.Errorf("expected 0 after Clear, got %d", seq.Len())
		}
	})

	t.Run("Unshift", func(t *testing.T) {
		seq := NewSequence("test", InvokeAction("a", func(context.Context) error { return nil }))
		seq.Unshift(InvokeAction("head", func(context.Context) error { return nil }))
		expected := []string{"head", "a"}
		if !reflect.DeepEqual(seq.Names(), expected) {
			t.Errorf("expected %v, got %v", expected, seq.Names())
		}
	})

	t.Run("Push", func(t *testing.T) {
		seq := NewSequence("test", InvokeAction("a", func(context.Context) error { return nil }))
		seq.Push(InvokeAction("tail", func(context.Context) error { return nil }))
		expected := []string{"a", "tail"}
		if !reflect.DeepEqual(seq.Names(), expected) {
			t.Errorf("expected %v, got %v", expected, seq.Names())
		}
	})

	t.Run("Shift Empty Errors", func(t *testing.T) {
		seq := NewSequence("test")
		if _, err := seq.Shift(); err == nil {
			t.Error("expected error shifting empty sequence")
		}
	})

	t.Run("Pop Empty Errors", func(t *testing.T) {
		seq := NewSequence("test")
		if _, err := seq.Pop(); err == nil {
			t.Error("expected error popping empty sequence")
		}
	})

	t.Run("Remove", func(t *testing.T) {
		seq := NewSequence("test",
			InvokeAction("a", func(context.Context) error { return nil }),
			InvokeAction("b", func(context.Context) error { return nil }),
		)
		if err := seq.Remove("a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(seq.Names(), []string{"b"}) {
			t.Errorf("expected [b], got %v", seq.Names())
		}
		if err := seq.Remove("missing"); err == nil {
			t.Error("expected error removing missing action")
		}
	})

	t.Run("Replace", func(t *testing.T) {
		var ran string
		seq := NewSequence("test", InvokeAction("a", func(context.Context) error { ran = "old"; return nil }))
		if err := seq.Replace("a", InvokeAction("a", func(context.Context) error { ran = "new"; return nil })); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = seq.Execute(context.Background())
		if ran != "new" {
			t.Errorf("expected replaced action to run, got %q", ran)
		}
	})

	t.Run("After and Before", func(t *testing.T) {
		seq := NewSequence("test",
			InvokeAction("a", func(context.Context) error { return nil }),
			InvokeAction("c", func(context.Context) error { return nil }),
		)
		if err := seq.After("a", InvokeAction("b", func(context.Context) error { return nil })); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected := []string{"a", "b", "c"}
		if !reflect.DeepEqual(seq.Names(), expected) {
			t.Errorf("expected %v, got %v", expected, seq.Names())
		}
		if err := seq.Before("a", InvokeAction("zero", func(context.Context) error { return nil })); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		expected = []string{"zero", "a", "b", "c"}
		if !reflect.DeepEqual(seq.Names(), expected) {
			t.Errorf("expected %v, got %v", expected, seq.Names())
		}
	})
}

func TestSequenceConcurrentAccess(t *testing.T) {
	seq := NewSequence("test", InvokeAction("a", func(context.Context) error { return nil }))

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			_ = seq.Len()
			_ = seq.Names()
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			seq.Push(InvokeAction("extra", func(context.Context) error { return nil }))
			_, _ = seq.Shift()
		}
	}()
	wg.Wait()
}

// trackingAction tracks Close() calls for testing.
type trackingAction struct {
	name       Name
	closeCalls int
	closeErr   error
}

func newTrackingAction(name Name) *trackingAction { return &trackingAction{name: name} }

func (a *trackingAction) Execute(context.Context) error { return nil }
func (a *trackingAction) Name() Name                    { return a.name }
func (a *trackingAction) Shape() ResourceShape          { return ResourceShape{} }
func (a *trackingAction) Close() error {
	a.closeCalls++
	return a.closeErr
}

func TestSequenceClose(t *testing.T) {
	t.Run("Closes All Children In Reverse Order", func(t *testing.T) {
		var order []string
		a := &closeOrderAction{name: "a", record: &order}
		b := &closeOrderAction{name: "b", record: &order}
		seq := NewSequence("test", a, b)
		if err := seq.Close(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(order, []string{"b", "a"}) {
			t.Errorf("expected close order [b a], got %v", order)
		}
	})

	t.Run("Idempotent", func(t *testing.T) {
		p := newTrackingAction("p")
		seq := NewSequence("test", p)
		_ = seq.Close()
		_ = seq.Close()
		if p.closeCalls != 1 {
			t.Errorf("expected 1 close call, got %d", p.closeCalls)
		}
	})

	t.Run("Aggregates Errors", func(t *testing.T) {
		p1 := newTrackingAction("p1")
		p1.closeErr = errors.New("p1 error")
		p2 := newTrackingAction("p2")
		seq := NewSequence("test", p1, p2)
		if err := seq.Close(); err == nil {
			t.Error("expected aggregated error")
		}
	})
}

type closeOrderAction struct {
	name   Name
	record *[]string
}

func (a *closeOrderAction) Execute(context.Context) error { return nil }
func (a *closeOrderAction) Name() Name                    { return a.name }
func (a *closeOrderAction) Shape() ResourceShape          { return ResourceShape{} }
func (a *closeOrderAction) Close() error {
	*a.record = append(*a.record, a.name)
	return nil
}
