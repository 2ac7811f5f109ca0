package api

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	orchestration "github.com/qorix-group/inc-orchestrator"
)

func newTraceDesign(t *testing.T) (*DesignConfigurator, func() []string) {
	t.Helper()
	design := NewDesignConfigurator()

	var mu sync.Mutex
	var trace []string
	record := func(step string) orchestration.InvocableFunc {
		return func(context.Context) error {
			mu.Lock()
			trace = append(trace, step)
			mu.Unlock()
			return nil
		}
	}
	for _, name := range []string{"a", "b", "c"} {
		if _, err := design.RegisterInvocable(name, record(name)); err != nil {
			t.Fatalf("unexpected error registering invocable %q: %v", name, err)
		}
	}
	if _, err := design.RegisterCondition("always", orchestration.ConditionFunc(func(context.Context) bool { return true })); err != nil {
		t.Fatalf("unexpected error registering condition: %v", err)
	}

	return design, func() []string { mu.Lock(); defer mu.Unlock(); return trace }
}

func TestBuildActionSequenceOfInvokes(t *testing.T) {
	design, trace := newTraceDesign(t)

	cfg := NodeConfig{
		Type: "sequence",
		Name: "root",
		Children: []NodeConfig{
			{Type: "invoke", Name: "step-a", Invocable: "a"},
			{Type: "invoke", Name: "step-b", Invocable: "b"},
		},
	}

	action, err := BuildAction(cfg, design.Database())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := action.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error executing built action: %v", err)
	}
	if got := trace(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("unexpected trace: %v", got)
	}
}

func TestBuildActionIfElseResolvesCondition(t *testing.T) {
	design, trace := newTraceDesign(t)

	cfg := NodeConfig{
		Type: "ifelse",
		Name: "root",
		Cond: "always",
		Then: &NodeConfig{Type: "invoke", Name: "step-a", Invocable: "a"},
		Else: &NodeConfig{Type: "invoke", Name: "step-b", Invocable: "b"},
	}

	action, err := BuildAction(cfg, design.Database())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := action.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := trace(); len(got) != 1 || got[0] != "a" {
		t.Fatalf("expected only the then-branch to run, got %v", got)
	}
}

func TestBuildActionLocalGraphResolvesDependencies(t *testing.T) {
	design, trace := newTraceDesign(t)

	cfg := NodeConfig{
		Type: "local_graph",
		Name: "root",
		Nodes: []GraphNodeConfig{
			{NodeConfig: NodeConfig{Type: "invoke", Name: "step-a", Invocable: "a"}},
			{NodeConfig: NodeConfig{Type: "invoke", Name: "step-b", Invocable: "b"}, DependsOn: []string{"step-a"}},
		},
	}

	action, err := BuildAction(cfg, design.Database())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := action.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := trace()
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected a before b, got %v", got)
	}
}

func TestBuildActionUnknownTypeFails(t *testing.T) {
	design, _ := newTraceDesign(t)
	if _, err := BuildAction(NodeConfig{Type: "bogus", Name: "root"}, design.Database()); err == nil {
		t.Fatal("expected error for unknown node type")
	}
}

func TestBuildActionUnknownInvocableFails(t *testing.T) {
	design, _ := newTraceDesign(t)
	if _, err := BuildAction(NodeConfig{Type: "invoke", Name: "root", Invocable: "ghost"}, design.Database()); err == nil {
		t.Fatal("expected error for unresolved invocable reference")
	}
}

func TestLoadProgramConfigYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "program.yaml")
	content := `
type: sequence
name: root
children:
  - type: invoke
    name: step-a
    invocable: a
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("unexpected error writing config: %v", err)
	}

	cfg, err := LoadProgramConfig(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Type != "sequence" || len(cfg.Children) != 1 || cfg.Children[0].Invocable != "a" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
