package orchestration

import (
	"context"
	"testing"

	"github.com/qorix-group/inc-orchestrator/kyron"
)

// These exercise spec.md §5's allocator guard (kyron.AssertNoAlloc)
// against the three variable-fanout actions' steady-state Execute path,
// after the one-time construction/Build cost has already happened. The
// bounds are deliberately generous rather than 0: capitan's logging
// calls on the Execute path allocate their own field slices, so a true
// zero is not this guard's job here — catching a regression that adds a
// new slice/map/channel allocation per call is.

func TestLocalGraphExecuteAllocationGuard(t *testing.T) {
	g := NewLocalGraph("alloc-graph").
		AddNode(InvokeAction("a", func(context.Context) error { return nil })).
		AddNode(InvokeAction("b", func(context.Context) error { return nil }), "a")

	if err := g.Execute(context.Background()); err != nil {
		t.Fatalf("warm-up execute failed: %v", err)
	}

	kyron.AssertNoAlloc(t, "LocalGraph.Execute steady state", 64, func() {
		if err := g.Execute(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestConcurrencyExecuteAllocationGuard(t *testing.T) {
	conc := NewConcurrency("alloc-concurrency",
		InvokeAction("a", func(context.Context) error { return nil }),
		InvokeAction("b", func(context.Context) error { return nil }),
	)

	if err := conc.Execute(context.Background()); err != nil {
		t.Fatalf("warm-up execute failed: %v", err)
	}

	kyron.AssertNoAlloc(t, "Concurrency.Execute steady state", 64, func() {
		if err := conc.Execute(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestSelectExecuteAllocationGuard(t *testing.T) {
	sel := NewSelect("alloc-select",
		InvokeAction("a", func(context.Context) error { return nil }),
		InvokeAction("b", func(context.Context) error { return nil }),
	)

	if err := sel.Execute(context.Background()); err != nil {
		t.Fatalf("warm-up execute failed: %v", err)
	}

	kyron.AssertNoAlloc(t, "Select.Execute steady state", 64, func() {
		if err := sel.Execute(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestInvokeExecuteAllocationGuardUnpinned(t *testing.T) {
	inv := InvokeAction("alloc-invoke", func(context.Context) error { return nil })

	if err := inv.Execute(context.Background()); err != nil {
		t.Fatalf("warm-up execute failed: %v", err)
	}

	kyron.AssertNoAlloc(t, "Invoke.Execute steady state (unpinned)", 32, func() {
		if err := inv.Execute(context.Background()); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
