package orchestration

import (
	"context"
	"testing"
)

func buildDescribedTree() Action {
	leafA := InvokeAction("leaf-a", func(context.Context) error { return nil })
	leafB := InvokeAction("leaf-b", func(context.Context) error { return nil })
	inner := NewSequence("inner", leafA, leafB)
	return NewSequence("root", inner, InvokeAction("leaf-c", func(context.Context) error { return nil }))
}

func TestSequenceDescribe(t *testing.T) {
	root := buildDescribedTree()
	node := root.(*Sequence).Describe()

	if node.Name != "root" || node.Type != "sequence" {
		t.Fatalf("unexpected root node: %+v", node)
	}
	flow, ok := node.Flow.(SequenceFlow)
	if !ok || len(flow.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %+v", node.Flow)
	}
	if flow.Steps[0].Name != "inner" || flow.Steps[1].Name != "leaf-c" {
		t.Errorf("unexpected step order: %+v", flow.Steps)
	}
}

func TestSchemaWalkFindCount(t *testing.T) {
	schema := NewSchema(buildDescribedTree())

	if got := schema.Count(); got != 5 {
		t.Errorf("expected 5 nodes, got %d", got)
	}

	found := schema.FindByName("leaf-b")
	if found == nil {
		t.Fatal("expected to find leaf-b")
	}

	invokes := schema.FindByType("invoke")
	if len(invokes) != 3 {
		t.Errorf("expected 3 invoke nodes, got %d", len(invokes))
	}
}

func TestConcurrencyDescribe(t *testing.T) {
	c := NewConcurrency("fanout",
		InvokeAction("a", func(context.Context) error { return nil }),
		InvokeAction("b", func(context.Context) error { return nil }),
	)
	node := c.Describe()
	flow, ok := node.Flow.(ConcurrencyFlow)
	if !ok || len(flow.Children) != 2 {
		t.Fatalf("unexpected concurrency flow: %+v", node.Flow)
	}
}

func TestSelectDescribe(t *testing.T) {
	s := NewSelect("race",
		InvokeAction("a", func(context.Context) error { return nil }),
		InvokeAction("b", func(context.Context) error { return nil }),
	)
	node := s.Describe()
	flow, ok := node.Flow.(SelectFlow)
	if !ok || len(flow.Candidates) != 2 {
		t.Fatalf("unexpected select flow: %+v", node.Flow)
	}
}

func TestSwitchDescribe(t *testing.T) {
	sw := NewSwitch("route", DiscriminatorFunc(func(context.Context) uint64 { return 1 }))
	sw.AddCase(1, InvokeAction("one", func(context.Context) error { return nil }))
	sw.SetDefault(InvokeAction("default", func(context.Context) error { return nil }))

	node := sw.Describe()
	flow, ok := node.Flow.(SwitchFlow)
	if !ok {
		t.Fatalf("expected SwitchFlow, got %T", node.Flow)
	}
	if _, ok := flow.Cases["1"]; !ok {
		t.Error("expected case 1 in described flow")
	}
	if flow.Default == nil || flow.Default.Name != "default" {
		t.Error("expected default case in described flow")
	}
}

func TestCatchDescribe(t *testing.T) {
	c := NewCatch("guarded",
		InvokeAction("child", func(context.Context) error { return nil }),
		MatchAny,
		RecoverableHandler("handler", func(context.Context, error) error { return nil }),
	)
	node := c.Describe()
	flow, ok := node.Flow.(CatchFlow)
	if !ok {
		t.Fatalf("expected CatchFlow, got %T", node.Flow)
	}
	if flow.HandlerName != "handler" || !flow.Recoverable {
		t.Errorf("unexpected catch flow: %+v", flow)
	}
}

func TestGuardDescribe(t *testing.T) {
	g := NewGuard("breaker", InvokeAction("child", func(context.Context) error { return nil }), 3, 0)
	node := g.Describe()
	flow, ok := node.Flow.(GuardFlow)
	if !ok || flow.Child.Name != "child" {
		t.Fatalf("unexpected guard flow: %+v", node.Flow)
	}
}

func TestInvokeDescribeLeaf(t *testing.T) {
	inv := InvokeAction("leaf", func(context.Context) error { return nil })
	node := inv.Describe()
	if node.Flow != nil {
		t.Errorf("expected leaf node with nil flow, got %+v", node.Flow)
	}
}
