package kyron

import "testing"

func TestEngineBuilderValidatesCapacity(t *testing.T) {
	_, err := NewEngineBuilder("e0").WithTaskQueueSize(0).Build()
	if err == nil {
		t.Fatal("expected error for zero task queue size")
	}
}

func TestEngineBuilderValidatesPriority(t *testing.T) {
	_, err := NewEngineBuilder("e0").WithWorkerParameters(100, nil).Build()
	if err == nil {
		t.Fatal("expected error for out-of-range priority")
	}
}

func TestEngineBuilderValidatesDuplicateAffinity(t *testing.T) {
	_, err := NewEngineBuilder("e0").WithWorkerParameters(0, []uint32{1, 1}).Build()
	if err == nil {
		t.Fatal("expected error for duplicate affinity entry")
	}
}

func TestEngineBuilderBuildsDedicatedWorkers(t *testing.T) {
	e, err := NewEngineBuilder("e0").
		WithAsyncWorkers(2).
		WithDedicatedWorkers(DedicatedWorkerSpec{ID: "io", Priority: 0}).
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(e.async) != 2 {
		t.Errorf("expected 2 async workers, got %d", len(e.async))
	}
	if _, ok := e.dedicated["io"]; !ok {
		t.Errorf("expected dedicated worker %q", "io")
	}
}

func TestEngineBuilderJoinsMultipleErrors(t *testing.T) {
	_, err := NewEngineBuilder("e0").
		WithTaskQueueSize(0).
		WithWorkerParameters(100, nil).
		Build()
	if err == nil {
		t.Fatal("expected a joined error")
	}
}
