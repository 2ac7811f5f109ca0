package program

import (
	"context"
	"testing"

	orchestration "github.com/qorix-group/inc-orchestrator"
	"github.com/qorix-group/inc-orchestrator/kyron"
)

func TestDatabaseRegistriesAreIndependentPerKind(t *testing.T) {
	db := NewDatabase()

	if _, err := db.RegisterAction("retry", orchestration.InvokeAction("retry", func(context.Context) error { return nil })); err != nil {
		t.Fatalf("unexpected error registering action: %v", err)
	}
	if _, err := db.RegisterInvocable("retry", orchestration.InvocableFunc(func(context.Context) error { return nil })); err != nil {
		t.Fatalf("expected action name and invocable name to coexist, got: %v", err)
	}
	if _, err := db.RegisterCondition("retry", orchestration.ConditionFunc(func(context.Context) bool { return true })); err != nil {
		t.Fatalf("expected condition name to coexist with action/invocable names, got: %v", err)
	}
}

func TestDatabaseRegisterInvocableRejectsDuplicateName(t *testing.T) {
	db := NewDatabase()
	inv := orchestration.InvocableFunc(func(context.Context) error { return nil })
	if _, err := db.RegisterInvocable("worker", inv); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.RegisterInvocable("worker", inv); err == nil {
		t.Fatal("expected error re-registering the same invocable name")
	}
}

func TestDatabaseConditionAndDiscriminatorShareRegistry(t *testing.T) {
	db := NewDatabase()
	if _, err := db.RegisterCondition("is-ready", orchestration.ConditionFunc(func(context.Context) bool { return true })); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.RegisterDiscriminator("is-ready", orchestration.DiscriminatorFunc(func(context.Context) uint64 { return 0 })); err == nil {
		t.Fatal("expected error re-registering the name under the sibling kind")
	}

	if _, ok := db.LookupConditionByName("is-ready"); !ok {
		t.Error("expected the registered condition to be found by name")
	}
	if _, ok := db.LookupDiscriminatorByName("is-ready"); ok {
		t.Error("expected a Condition not to satisfy a Discriminator lookup")
	}
}

func TestDatabaseUnboundReportsRegisteredButUnboundTags(t *testing.T) {
	db := NewDatabase()
	if _, err := db.RegisterInvocable("worker", orchestration.InvocableFunc(func(context.Context) error { return nil })); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.RegisterEvent("ready"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	unbound := db.Unbound()
	if len(unbound) != 2 {
		t.Fatalf("expected both tags unbound, got %v", unbound)
	}
}

func TestDatabaseBindLocalEventClearsUnbound(t *testing.T) {
	db := NewDatabase()
	tag, err := db.RegisterEvent("ready")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.BindLocalEvent(tag.Tag); err != nil {
		t.Fatalf("unexpected error binding event: %v", err)
	}
	if unbound := db.Unbound(); len(unbound) != 0 {
		t.Fatalf("expected no unbound tags after binding, got %v", unbound)
	}
}

func TestDatabaseBindInvocableWorkerClearsUnbound(t *testing.T) {
	db := NewDatabase()
	tag, err := db.RegisterInvocable("worker", orchestration.InvocableFunc(func(context.Context) error { return nil }))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	engine, err := kyron.NewEngineBuilder("e0").WithAsyncWorkers(1).Build()
	if err != nil {
		t.Fatalf("unexpected error building engine: %v", err)
	}
	rt := kyron.NewRuntime(engine)
	rt.Start()
	defer rt.Shutdown(0) //nolint:errcheck

	invoke, err := db.BindInvocableWorker(tag.Tag, rt, kyron.OnEngine("e0"))
	if err != nil {
		t.Fatalf("unexpected error binding invocable: %v", err)
	}
	if invoke == nil {
		t.Fatal("expected a non-nil pinned Invoke")
	}
	if unbound := db.Unbound(); len(unbound) != 0 {
		t.Fatalf("expected no unbound tags after binding, got %v", unbound)
	}

	if err := invoke.Execute(context.Background()); err != nil {
		t.Fatalf("unexpected error executing the bound invocable: %v", err)
	}
}

func TestDatabaseBindUnregisteredTagFails(t *testing.T) {
	db := NewDatabase()
	if _, err := db.BindLocalEvent(NewTag("ghost")); err == nil {
		t.Fatal("expected error binding an unregistered event tag")
	}
}
